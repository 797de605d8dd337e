package dify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/realcbb/Dify2OpenAI/internal/domain"
)

// dataURIPattern matches data:<mime>;base64,<payload>.
var dataURIPattern = regexp.MustCompile(`^data:([^;,]+);base64,(.+)$`)

type uploadResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	CreatedAt int64  `json:"created_at"`
}

// UploadFile decodes an inline data-URI image and pushes it to the backend
// file store. Returns the backend-assigned file id. One attempt, no retries;
// the caller decides whether a failed upload aborts the request.
func (c *Client) UploadFile(ctx context.Context, dataURI, user string) (string, error) {
	m := dataURIPattern.FindStringSubmatch(dataURI)
	if m == nil {
		return "", domain.NewInvalidInputError("image url must be of the form data:<mime>;base64,<payload>")
	}
	mimeType, payload := m[1], m[2]

	// Common alias sent by some clients.
	if mimeType == "image/jpg" {
		mimeType = "image/jpeg"
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", domain.NewInvalidInputError("image data is not valid base64")
	}

	filename := "file." + extensionFor(mimeType)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	if part, err := form.CreatePart(header); err == nil {
		if _, err := part.Write(raw); err != nil {
			return "", fmt.Errorf("failed to write upload body: %w", err)
		}
	} else {
		// Degraded path: ship the payload as a plain base64 field instead of
		// a binary part. The backend accepts both.
		c.logger.Warn("falling back to base64 form field for upload", "error", err)
		if err := form.WriteField("file", payload); err != nil {
			return "", fmt.Errorf("failed to write upload body: %w", err)
		}
	}
	if err := form.WriteField("user", user); err != nil {
		return "", fmt.Errorf("failed to write upload body: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload body: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.cfg.BaseURL + endpointFileUpload)
	req.Header.SetContentTypeBytes([]byte(form.FormDataContentType()))
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.SetBody(buf.Bytes())

	if err := c.do(ctx, req, resp); err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return "", domain.NewUpstreamError(code, resp.Body())
	}

	var ur uploadResponse
	if err := sonic.Unmarshal(resp.Body(), &ur); err != nil {
		return "", fmt.Errorf("failed to unmarshal upload response: %w", err)
	}
	if ur.ID == "" {
		return "", fmt.Errorf("upload response carries no file id")
	}

	c.logger.Debug("file uploaded", "file_id", ur.ID, "mime_type", mimeType, "size", len(raw))

	return ur.ID, nil
}

// extensionFor derives a file extension from the MIME subtype.
func extensionFor(mimeType string) string {
	if i := strings.IndexByte(mimeType, '/'); i >= 0 && i+1 < len(mimeType) {
		return mimeType[i+1:]
	}
	return "bin"
}
