package domain

import (
	"context"

	"github.com/realcbb/Dify2OpenAI/internal/domain/entity"
)

// ============ Usecase-facing DTOs ============

// ChatRequest is the internal chat request (usecase layer).
type ChatRequest struct {
	Messages []entity.ChatMessage
	User     string
}

// ChatInput is the intent extracted from one chat request: the folded system
// prompt, the folded user query and the ordered file inputs.
type ChatInput struct {
	SystemPrompt string
	Query        string
	Files        []entity.FileInput
	User         string
}

// ChatResult is the internal blocking chat response.
type ChatResult struct {
	Content     any
	TotalTokens int
}

// WorkflowClient talks to the workflow backend.
type WorkflowClient interface {
	// UploadFile pushes an inline data-URI image to the backend file store
	// and returns the backend-assigned file id.
	UploadFile(ctx context.Context, dataURI, user string) (string, error)

	// RunBlocking executes the workflow and waits for the full result.
	RunBlocking(ctx context.Context, inputs map[string]any, user string) (*entity.WorkflowResult, error)

	// RunStreaming executes the workflow and returns a channel that carries
	// exactly one terminal chunk.
	RunStreaming(ctx context.Context, inputs map[string]any, user string) (<-chan entity.StreamChunk, error)
}

// ChatUsecase is the chat use case interface.
type ChatUsecase interface {
	// Chat executes one chat turn and waits for the full response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// ChatStreaming executes one chat turn and streams the response.
	ChatStreaming(ctx context.Context, req *ChatRequest) (<-chan entity.StreamChunk, error)
}
