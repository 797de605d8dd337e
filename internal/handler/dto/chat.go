package dto

import "github.com/bytedance/sonic"

// ============ OpenAI-compatible wire format (HTTP layer) ============

// ChatCompletionRequest is the OpenAI-style chat request (HTTP).
type ChatCompletionRequest struct {
	Messages []ChatCompletionMessage `json:"messages"`
	Model    string                  `json:"model,omitempty"`
	Stream   bool                    `json:"stream"`
	User     string                  `json:"user,omitempty"`
}

// ChatCompletionMessage is one OpenAI-format message. Content accepts both
// wire encodings: a plain string or an array of typed parts.
type ChatCompletionMessage struct {
	Role    string         `json:"role"` // user, assistant, system
	Content MessageContent `json:"content"`
}

// ContentPart is one element of an array-form message content.
type ContentPart struct {
	Type     string        `json:"type"` // "text" | "image_url"
	Text     string        `json:"text,omitempty"`
	ImageURL *ContentImage `json:"image_url,omitempty"`
}

// ContentImage carries an image reference: a data: URI or an http(s) URL.
type ContentImage struct {
	URL string `json:"url"`
}

// MessageContent is the string-or-parts union of an OpenAI message content.
// When Parts is nil the content was (or is coerced to) a plain string.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// UnmarshalJSON accepts a string, an array of parts, or anything else as its
// raw JSON text (defensive fallback for malformed clients).
func (m *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := sonic.Unmarshal(data, &s); err == nil {
		m.Text = s
		m.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := sonic.Unmarshal(data, &parts); err == nil {
		m.Parts = parts
		m.Text = ""
		return nil
	}

	m.Text = string(data)
	m.Parts = nil
	return nil
}

// MarshalJSON restores the original encoding.
func (m MessageContent) MarshalJSON() ([]byte, error) {
	if m.Parts != nil {
		return sonic.Marshal(m.Parts)
	}
	return sonic.Marshal(m.Text)
}

// ChatCompletionResponse is the blocking OpenAI response (HTTP).
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"` // "chat.completion"
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   ChatCompletionUsage    `json:"usage"`
}

// ChatCompletionChoice is one response choice.
type ChatCompletionChoice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

// AssistantMessage is the assistant turn of a response. Content is the
// selected workflow output value, or the whole outputs object when no output
// variable is configured.
type AssistantMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ChatCompletionUsage is the token usage block.
type ChatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one streaming response chunk (HTTP).
type ChatCompletionChunk struct {
	ID      string                       `json:"id"`
	Object  string                       `json:"object"` // "chat.completion.chunk"
	Created int64                        `json:"created"`
	Model   string                       `json:"model"`
	Choices []ChatCompletionStreamChoice `json:"choices"`
}

// ChatCompletionStreamChoice is one streaming choice.
type ChatCompletionStreamChoice struct {
	Index        int                 `json:"index"`
	Delta        ChatCompletionDelta `json:"delta"`
	FinishReason *string             `json:"finish_reason"`
}

// ChatCompletionDelta is the incremental content of a chunk.
type ChatCompletionDelta struct {
	Role    string `json:"role,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ErrorResponse is the error document returned by the chat endpoint and the
// payload of an SSE error frame.
type ErrorResponse struct {
	Error string `json:"error"`
}
