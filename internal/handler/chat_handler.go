package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/protocol/sse"

	"github.com/realcbb/Dify2OpenAI/internal/domain"
	"github.com/realcbb/Dify2OpenAI/internal/domain/entity"
	"github.com/realcbb/Dify2OpenAI/internal/handler/dto"
)

// ChatHandler serves the OpenAI-compatible chat endpoint.
type ChatHandler struct {
	usecase      domain.ChatUsecase
	defaultModel string
	logger       *slog.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(usecase domain.ChatUsecase, defaultModel string, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		usecase:      usecase,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// CreateChatCompletion handles an OpenAI-format chat request.
//
//	@Summary		Chat completion endpoint
//	@Description	OpenAI-compatible chat endpoint, supports streaming and blocking responses
//	@Tags			Chat
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ChatCompletionRequest	true	"Chat request"
//	@Success		200		{object}	dto.ChatCompletionResponse	"Chat response"
//	@Failure		400		{object}	dto.ErrorResponse			"Invalid request"
//	@Router			/chat/completions [post]
func (h *ChatHandler) CreateChatCompletion(ctx context.Context, c *app.RequestContext) {
	var req dto.ChatCompletionRequest
	if err := c.BindJSON(&req); err != nil {
		h.logger.Error("failed to bind request", "error", err)
		ErrorResponse(c, domain.NewInvalidInputError("malformed request body"))
		return
	}

	if len(req.Messages) == 0 {
		h.logger.Error("messages is required")
		ErrorResponse(c, domain.NewInvalidInputError("messages is required"))
		return
	}

	chatReq := &domain.ChatRequest{
		Messages: toDomainMessages(req.Messages),
		User:     req.User,
	}

	h.logger.Info("chat request received",
		"model", req.Model,
		"messages", len(req.Messages),
		"stream", req.Stream,
	)

	if req.Stream {
		h.handleStreaming(ctx, c, chatReq, req.Model)
	} else {
		h.handleBlocking(ctx, c, chatReq, req.Model)
	}
}

// handleBlocking serves the non-streaming path.
func (h *ChatHandler) handleBlocking(ctx context.Context, c *app.RequestContext, chatReq *domain.ChatRequest, model string) {
	result, err := h.usecase.Chat(ctx, chatReq)
	if err != nil {
		h.logger.Error("chat failed", "error", err)
		ErrorResponse(c, err)
		return
	}

	resp := dto.ChatCompletionResponse{
		ID:      newCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   h.model(model),
		Choices: []dto.ChatCompletionChoice{
			{
				Index: 0,
				Message: dto.AssistantMessage{
					Role:    "assistant",
					Content: result.Content,
				},
				FinishReason: "stop",
			},
		},
		Usage: dto.ChatCompletionUsage{
			TotalTokens: result.TotalTokens,
		},
	}

	c.JSON(consts.StatusOK, resp)
}

// handleStreaming serves the SSE path. The workflow stream yields exactly one
// terminal chunk, which is re-framed as a chat.completion.chunk followed by
// the [DONE] sentinel.
func (h *ChatHandler) handleStreaming(ctx context.Context, c *app.RequestContext, chatReq *domain.ChatRequest, model string) {
	streamCh, err := h.usecase.ChatStreaming(ctx, chatReq)
	if err != nil {
		h.logger.Error("streaming chat failed", "error", err)
		ErrorResponse(c, err)
		return
	}

	// Status must be set before the SSE writer takes over the response.
	c.SetStatusCode(consts.StatusOK)

	writer := sse.NewWriter(c)
	defer writer.Close()

	chatID := newCompletionID()
	created := time.Now().Unix()
	modelName := h.model(model)

	for chunk := range streamCh {
		if chunk.Err != nil {
			h.logger.Error("stream error", "error", chunk.Err)
			h.writeSSEJSON(writer, dto.ErrorResponse{Error: errorMessage(chunk.Err)})
			break
		}

		if chunk.IsEnd {
			finishReason := "stop"
			terminal := dto.ChatCompletionChunk{
				ID:      chatID,
				Object:  "chat.completion.chunk",
				Created: created,
				Model:   modelName,
				Choices: []dto.ChatCompletionStreamChoice{
					{
						Index: 0,
						Delta: dto.ChatCompletionDelta{
							Role:    "assistant",
							Content: chunk.Content,
						},
						FinishReason: &finishReason,
					},
				},
			}
			if err := h.writeSSEJSON(writer, terminal); err != nil {
				h.logger.Error("failed to write terminal chunk", "error", err)
			}
			break
		}
	}

	// Exactly one [DONE] per stream, whatever ended it.
	if err := writer.WriteEvent("", "", []byte("[DONE]")); err != nil {
		h.logger.Error("failed to write done event", "error", err)
	}
}

// writeSSEJSON sends one JSON payload through the Hertz SSE writer, which
// adds the "data: " framing and flushes.
func (h *ChatHandler) writeSSEJSON(writer *sse.Writer, data interface{}) error {
	jsonData, err := sonic.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	return writer.WriteEvent("", "", jsonData)
}

// model resolves the model name echoed back to the client.
func (h *ChatHandler) model(requested string) string {
	if requested == "" {
		return h.defaultModel
	}
	return requested
}

func newCompletionID() string {
	return fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
}

// toDomainMessages converts wire messages into domain messages. Plain-string
// content becomes a single text part.
func toDomainMessages(msgs []dto.ChatCompletionMessage) []entity.ChatMessage {
	out := make([]entity.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		dm := entity.ChatMessage{Role: m.Role}
		if m.Content.Parts == nil {
			dm.Parts = []entity.MessagePart{{Type: entity.PartText, Text: m.Content.Text}}
		} else {
			for _, p := range m.Content.Parts {
				part := entity.MessagePart{Type: p.Type, Text: p.Text}
				if p.ImageURL != nil {
					part.URL = p.ImageURL.URL
				}
				dm.Parts = append(dm.Parts, part)
			}
		}
		out = append(out, dm)
	}
	return out
}
