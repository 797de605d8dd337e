package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/realcbb/Dify2OpenAI/internal/config"
	"github.com/realcbb/Dify2OpenAI/internal/domain"
	"github.com/realcbb/Dify2OpenAI/internal/domain/entity"
)

// chatUsecase implements domain.ChatUsecase. It extracts the intent of an
// OpenAI-style message array, maps it onto the workflow input contract and
// drives the backend call.
type chatUsecase struct {
	workflow domain.WorkflowClient
	cfg      config.DifyConfig
	logger   *slog.Logger
}

// NewChatUsecase creates a chat use case backed by a workflow client.
func NewChatUsecase(workflow domain.WorkflowClient, cfg config.DifyConfig, logger *slog.Logger) domain.ChatUsecase {
	return &chatUsecase{
		workflow: workflow,
		cfg:      cfg,
		logger:   logger,
	}
}

// Chat executes one chat turn and waits for the full response.
func (u *chatUsecase) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResult, error) {
	inputs, user, err := u.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := u.workflow.RunBlocking(ctx, inputs, user)
	if err != nil {
		return nil, err
	}

	return &domain.ChatResult{
		Content:     result.Output,
		TotalTokens: result.TotalTokens,
	}, nil
}

// ChatStreaming executes one chat turn and returns the streaming channel.
func (u *chatUsecase) ChatStreaming(ctx context.Context, req *domain.ChatRequest) (<-chan entity.StreamChunk, error) {
	inputs, user, err := u.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	return u.workflow.RunStreaming(ctx, inputs, user)
}

// prepare validates the request, runs extraction (including uploads) and
// builds the workflow inputs.
func (u *chatUsecase) prepare(ctx context.Context, req *domain.ChatRequest) (map[string]any, string, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, "", domain.NewInvalidInputError("messages is required")
	}

	user := u.resolveUser(req.User)

	in, err := u.extract(ctx, req.Messages, user)
	if err != nil {
		return nil, "", err
	}

	u.logger.Debug("chat intent extracted",
		"system_prompt_len", len(in.SystemPrompt),
		"query_len", len(in.Query),
		"files", len(in.Files),
	)

	return buildInputs(in, u.cfg), user, nil
}

// resolveUser picks the end-user identity: request field, configured default,
// then a generated id.
func (u *chatUsecase) resolveUser(requestUser string) string {
	if requestUser != "" {
		return requestUser
	}
	if u.cfg.User != "" {
		return u.cfg.User
	}
	return "user-" + uuid.New().String()
}
