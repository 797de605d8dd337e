package usecase

import (
	"context"
	"path"
	"strings"

	"github.com/realcbb/Dify2OpenAI/internal/domain"
	"github.com/realcbb/Dify2OpenAI/internal/domain/entity"
)

// fileTypeByExt maps a URL extension to the workflow file-type category.
var fileTypeByExt = map[string]string{
	".png":  "image",
	".jpg":  "image",
	".jpeg": "image",
	".gif":  "image",
	".webp": "image",
	".svg":  "image",

	".pdf":      "document",
	".txt":      "document",
	".md":       "document",
	".markdown": "document",
	".html":     "document",
	".doc":      "document",
	".docx":     "document",
	".xls":      "document",
	".xlsx":     "document",
	".ppt":      "document",
	".pptx":     "document",
	".csv":      "document",
	".xml":      "document",
	".epub":     "document",

	".mp3": "audio",
	".m4a": "audio",
	".wav": "audio",
	".amr": "audio",

	".mp4":  "video",
	".mov":  "video",
	".mpeg": "video",
	".avi":  "video",
	".webm": "video",
}

// Images arrive through image_url content parts, so an unrecognized
// extension still counts as an image.
const defaultFileType = "image"

// extract walks every message of the request and produces the intent bundle:
// system prompt, user query and the ordered file inputs. All messages are
// scanned, not only the last turn, so the workflow receives the full
// conversational context folded into one query.
func (u *chatUsecase) extract(ctx context.Context, msgs []entity.ChatMessage, user string) (*domain.ChatInput, error) {
	in := &domain.ChatInput{User: user}

	var systemPrompt, query strings.Builder
	for _, msg := range msgs {
		// Image parts first: uploads run sequentially, preserving message order.
		for _, part := range msg.Parts {
			if part.Type != entity.PartImageURL {
				continue
			}
			if strings.HasPrefix(part.URL, "data:") {
				fileID, err := u.workflow.UploadFile(ctx, part.URL, user)
				if err != nil {
					return nil, err
				}
				in.Files = append(in.Files, entity.FileInput{
					Type:           "image",
					TransferMethod: entity.TransferLocalFile,
					UploadFileID:   fileID,
				})
			} else {
				// Remote URLs are handed to the backend as-is, no fetch here.
				in.Files = append(in.Files, entity.FileInput{
					Type:           fileTypeForURL(part.URL),
					TransferMethod: entity.TransferRemoteURL,
					URL:            part.URL,
				})
			}
		}

		switch msg.Role {
		case "system":
			if text := messageText(msg); text != "" {
				systemPrompt.WriteString(text)
				systemPrompt.WriteString("\n")
			}
		case "user":
			if text := messageText(msg); text != "" {
				query.WriteString(text)
				query.WriteString("\n")
			}
		}
	}

	in.SystemPrompt = strings.TrimSpace(systemPrompt.String())
	in.Query = strings.TrimSpace(query.String())

	return in, nil
}

// messageText folds the text parts of one message. Non-text parts are
// skipped; they are handled by the image pass or intentionally ignored.
func messageText(msg entity.ChatMessage) string {
	texts := make([]string, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		if part.Type == entity.PartText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// fileTypeForURL derives the workflow file-type category from the URL's
// extension.
func fileTypeForURL(rawURL string) string {
	// Strip query and fragment before looking at the extension.
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	if t, ok := fileTypeByExt[strings.ToLower(path.Ext(rawURL))]; ok {
		return t
	}
	return defaultFileType
}
