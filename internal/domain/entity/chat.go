package entity

// Content part types carried by a chat message.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// ChatMessage is one turn of the incoming conversation, already decoded from
// the OpenAI wire format.
type ChatMessage struct {
	Role  string // user, assistant, system
	Parts []MessagePart
}

// MessagePart is one content part of a message.
type MessagePart struct {
	Type string // PartText or PartImageURL
	Text string
	URL  string
}

// TransferMethod says how a file reaches the workflow backend.
type TransferMethod string

const (
	// TransferLocalFile references a file previously uploaded to the backend.
	TransferLocalFile TransferMethod = "local_file"
	// TransferRemoteURL lets the backend fetch the file itself.
	TransferRemoteURL TransferMethod = "remote_url"
)

// FileInput is one file slot in the workflow input contract. Exactly one of
// UploadFileID/URL is set, matching TransferMethod.
type FileInput struct {
	Type           string         `json:"type"`
	TransferMethod TransferMethod `json:"transfer_method"`
	URL            string         `json:"url,omitempty"`
	UploadFileID   string         `json:"upload_file_id,omitempty"`
}

// WorkflowResult is the final output of one workflow run. Output is either a
// single named output value or the whole outputs object, depending on the
// configured output variable.
type WorkflowResult struct {
	Output      any
	TotalTokens int
}

// StreamChunk is one unit of a streaming workflow response. A stream carries
// exactly one terminal chunk: either IsEnd with the full result, or Err.
type StreamChunk struct {
	Content     any
	TotalTokens int
	IsEnd       bool
	Err         error
}
