package mocks

import (
	"context"

	"github.com/realcbb/Dify2OpenAI/internal/domain/entity"
)

// MockWorkflowClient is a mock implementation of domain.WorkflowClient
type MockWorkflowClient struct {
	UploadFileFunc   func(ctx context.Context, dataURI, user string) (string, error)
	RunBlockingFunc  func(ctx context.Context, inputs map[string]any, user string) (*entity.WorkflowResult, error)
	RunStreamingFunc func(ctx context.Context, inputs map[string]any, user string) (<-chan entity.StreamChunk, error)

	// UploadCalls records the data URIs passed to UploadFile, in order.
	UploadCalls []string
}

// UploadFile mocks the UploadFile method
func (m *MockWorkflowClient) UploadFile(ctx context.Context, dataURI, user string) (string, error) {
	m.UploadCalls = append(m.UploadCalls, dataURI)
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, dataURI, user)
	}
	return "file-id", nil
}

// RunBlocking mocks the RunBlocking method
func (m *MockWorkflowClient) RunBlocking(ctx context.Context, inputs map[string]any, user string) (*entity.WorkflowResult, error) {
	if m.RunBlockingFunc != nil {
		return m.RunBlockingFunc(ctx, inputs, user)
	}
	return &entity.WorkflowResult{}, nil
}

// RunStreaming mocks the RunStreaming method
func (m *MockWorkflowClient) RunStreaming(ctx context.Context, inputs map[string]any, user string) (<-chan entity.StreamChunk, error) {
	if m.RunStreamingFunc != nil {
		return m.RunStreamingFunc(ctx, inputs, user)
	}
	ch := make(chan entity.StreamChunk)
	close(ch)
	return ch, nil
}
