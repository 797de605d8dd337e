package mocks

import (
	"context"

	"github.com/realcbb/Dify2OpenAI/internal/domain"
	"github.com/realcbb/Dify2OpenAI/internal/domain/entity"
)

// MockChatUsecase is a mock implementation of domain.ChatUsecase
type MockChatUsecase struct {
	ChatFunc          func(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResult, error)
	ChatStreamingFunc func(ctx context.Context, req *domain.ChatRequest) (<-chan entity.StreamChunk, error)
}

// Chat mocks the Chat method
func (m *MockChatUsecase) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResult, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return &domain.ChatResult{}, nil
}

// ChatStreaming mocks the ChatStreaming method
func (m *MockChatUsecase) ChatStreaming(ctx context.Context, req *domain.ChatRequest) (<-chan entity.StreamChunk, error) {
	if m.ChatStreamingFunc != nil {
		return m.ChatStreamingFunc(ctx, req)
	}
	ch := make(chan entity.StreamChunk)
	close(ch)
	return ch, nil
}
