package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realcbb/Dify2OpenAI/internal/config"
	"github.com/realcbb/Dify2OpenAI/internal/domain"
	"github.com/realcbb/Dify2OpenAI/internal/domain/entity"
	"github.com/realcbb/Dify2OpenAI/internal/domain/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textMessage(role, text string) entity.ChatMessage {
	return entity.ChatMessage{
		Role:  role,
		Parts: []entity.MessagePart{{Type: entity.PartText, Text: text}},
	}
}

func TestChatRequiresMessages(t *testing.T) {
	uc := NewChatUsecase(&mocks.MockWorkflowClient{}, config.DifyConfig{}, testLogger())

	_, err := uc.Chat(context.Background(), &domain.ChatRequest{})
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))

	_, err = uc.ChatStreaming(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))
}

func TestChatSingleUserTurn(t *testing.T) {
	var gotInputs map[string]any
	mock := &mocks.MockWorkflowClient{
		RunBlockingFunc: func(ctx context.Context, inputs map[string]any, user string) (*entity.WorkflowResult, error) {
			gotInputs = inputs
			return &entity.WorkflowResult{Output: "pong", TotalTokens: 42}, nil
		},
	}
	uc := NewChatUsecase(mock, config.DifyConfig{}, testLogger())

	result, err := uc.Chat(context.Background(), &domain.ChatRequest{
		Messages: []entity.ChatMessage{textMessage("user", "ping")},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"text_input": "ping"}, gotInputs)
	assert.Equal(t, "pong", result.Content)
	assert.Equal(t, 42, result.TotalTokens)
	assert.Empty(t, mock.UploadCalls)
}

func TestChatSystemPromptMerge(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.DifyConfig
		messages   []entity.ChatMessage
		wantInputs map[string]any
	}{
		{
			name: "system merged into query with blank line",
			messages: []entity.ChatMessage{
				textMessage("system", "be terse"),
				textMessage("user", "hello"),
			},
			wantInputs: map[string]any{"text_input": "be terse\n\nhello"},
		},
		{
			name: "multiple system and user turns fold in order",
			messages: []entity.ChatMessage{
				textMessage("system", "rule one"),
				textMessage("user", "first"),
				textMessage("system", "rule two"),
				textMessage("user", "second"),
			},
			wantInputs: map[string]any{"text_input": "rule one\nrule two\n\nfirst\nsecond"},
		},
		{
			name: "configured input variable",
			cfg:  config.DifyConfig{InputVariable: "question"},
			messages: []entity.ChatMessage{
				textMessage("user", "hello"),
			},
			wantInputs: map[string]any{"question": "hello"},
		},
		{
			name: "system input variable keeps prompt separate",
			cfg:  config.DifyConfig{SystemInputVariable: "instructions"},
			messages: []entity.ChatMessage{
				textMessage("system", "be terse"),
				textMessage("user", "hello"),
			},
			wantInputs: map[string]any{
				"instructions": "be terse",
				"text_input":   "hello",
			},
		},
		{
			name: "system input variable unused when no system message",
			cfg:  config.DifyConfig{SystemInputVariable: "instructions"},
			messages: []entity.ChatMessage{
				textMessage("user", "hello"),
			},
			wantInputs: map[string]any{"text_input": "hello"},
		},
		{
			name: "assistant turns are ignored",
			messages: []entity.ChatMessage{
				textMessage("user", "first"),
				textMessage("assistant", "earlier answer"),
				textMessage("user", "second"),
			},
			wantInputs: map[string]any{"text_input": "first\nsecond"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotInputs map[string]any
			mock := &mocks.MockWorkflowClient{
				RunBlockingFunc: func(ctx context.Context, inputs map[string]any, user string) (*entity.WorkflowResult, error) {
					gotInputs = inputs
					return &entity.WorkflowResult{}, nil
				},
			}
			uc := NewChatUsecase(mock, tt.cfg, testLogger())

			_, err := uc.Chat(context.Background(), &domain.ChatRequest{Messages: tt.messages})
			require.NoError(t, err)
			assert.Equal(t, tt.wantInputs, gotInputs)
		})
	}
}

func TestChatImageParts(t *testing.T) {
	const dataURI = "data:image/png;base64,aGVsbG8="

	t.Run("data URI is uploaded as local file", func(t *testing.T) {
		var gotInputs map[string]any
		mock := &mocks.MockWorkflowClient{
			UploadFileFunc: func(ctx context.Context, uri, user string) (string, error) {
				return "upload-123", nil
			},
			RunBlockingFunc: func(ctx context.Context, inputs map[string]any, user string) (*entity.WorkflowResult, error) {
				gotInputs = inputs
				return &entity.WorkflowResult{}, nil
			},
		}
		uc := NewChatUsecase(mock, config.DifyConfig{}, testLogger())

		_, err := uc.Chat(context.Background(), &domain.ChatRequest{
			Messages: []entity.ChatMessage{{
				Role: "user",
				Parts: []entity.MessagePart{
					{Type: entity.PartText, Text: "what is this?"},
					{Type: entity.PartImageURL, URL: dataURI},
				},
			}},
		})
		require.NoError(t, err)

		require.Equal(t, []string{dataURI}, mock.UploadCalls)
		files, ok := gotInputs["file_input"].([]entity.FileInput)
		require.True(t, ok)
		require.Len(t, files, 1)
		assert.Equal(t, entity.FileInput{
			Type:           "image",
			TransferMethod: entity.TransferLocalFile,
			UploadFileID:   "upload-123",
		}, files[0])
		assert.Equal(t, "what is this?", gotInputs["text_input"])
	})

	t.Run("remote URL passes through without upload", func(t *testing.T) {
		var gotInputs map[string]any
		mock := &mocks.MockWorkflowClient{
			RunBlockingFunc: func(ctx context.Context, inputs map[string]any, user string) (*entity.WorkflowResult, error) {
				gotInputs = inputs
				return &entity.WorkflowResult{}, nil
			},
		}
		uc := NewChatUsecase(mock, config.DifyConfig{}, testLogger())

		_, err := uc.Chat(context.Background(), &domain.ChatRequest{
			Messages: []entity.ChatMessage{{
				Role: "user",
				Parts: []entity.MessagePart{
					{Type: entity.PartImageURL, URL: "https://example.com/cat.png?w=100"},
					{Type: entity.PartText, Text: "describe"},
				},
			}},
		})
		require.NoError(t, err)

		assert.Empty(t, mock.UploadCalls)
		files, ok := gotInputs["file_input"].([]entity.FileInput)
		require.True(t, ok)
		require.Len(t, files, 1)
		assert.Equal(t, entity.FileInput{
			Type:           "image",
			TransferMethod: entity.TransferRemoteURL,
			URL:            "https://example.com/cat.png?w=100",
		}, files[0])
	})

	t.Run("upload order follows message order", func(t *testing.T) {
		mock := &mocks.MockWorkflowClient{}
		uc := NewChatUsecase(mock, config.DifyConfig{}, testLogger())

		_, err := uc.Chat(context.Background(), &domain.ChatRequest{
			Messages: []entity.ChatMessage{
				{Role: "user", Parts: []entity.MessagePart{
					{Type: entity.PartImageURL, URL: "data:image/png;base64,Zmlyc3Q="},
				}},
				{Role: "user", Parts: []entity.MessagePart{
					{Type: entity.PartImageURL, URL: "data:image/png;base64,c2Vjb25k"},
					{Type: entity.PartText, Text: "compare them"},
				}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"data:image/png;base64,Zmlyc3Q=",
			"data:image/png;base64,c2Vjb25k",
		}, mock.UploadCalls)
	})

	t.Run("upload failure aborts the turn", func(t *testing.T) {
		uploadErr := domain.NewUpstreamError(403, []byte(`{"message":"forbidden"}`))
		mock := &mocks.MockWorkflowClient{
			UploadFileFunc: func(ctx context.Context, uri, user string) (string, error) {
				return "", uploadErr
			},
		}
		uc := NewChatUsecase(mock, config.DifyConfig{}, testLogger())

		_, err := uc.Chat(context.Background(), &domain.ChatRequest{
			Messages: []entity.ChatMessage{{
				Role:  "user",
				Parts: []entity.MessagePart{{Type: entity.PartImageURL, URL: dataURI}},
			}},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUpstream)
	})
}

func TestResolveUser(t *testing.T) {
	tests := []struct {
		name        string
		requestUser string
		cfgUser     string
		want        string
		generated   bool
	}{
		{name: "request user wins", requestUser: "alice", cfgUser: "default", want: "alice"},
		{name: "configured default", cfgUser: "default", want: "default"},
		{name: "generated fallback", generated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			mock := &mocks.MockWorkflowClient{
				RunBlockingFunc: func(ctx context.Context, inputs map[string]any, user string) (*entity.WorkflowResult, error) {
					gotUser = user
					return &entity.WorkflowResult{}, nil
				},
			}
			uc := NewChatUsecase(mock, config.DifyConfig{User: tt.cfgUser}, testLogger())

			_, err := uc.Chat(context.Background(), &domain.ChatRequest{
				Messages: []entity.ChatMessage{textMessage("user", "hi")},
				User:     tt.requestUser,
			})
			require.NoError(t, err)

			if tt.generated {
				assert.Regexp(t, `^user-[0-9a-f-]{36}$`, gotUser)
			} else {
				assert.Equal(t, tt.want, gotUser)
			}
		})
	}
}

func TestChatStreamingPassthrough(t *testing.T) {
	source := make(chan entity.StreamChunk, 2)
	source <- entity.StreamChunk{Content: "partial"}
	source <- entity.StreamChunk{Content: "done", TotalTokens: 7, IsEnd: true}
	close(source)

	mock := &mocks.MockWorkflowClient{
		RunStreamingFunc: func(ctx context.Context, inputs map[string]any, user string) (<-chan entity.StreamChunk, error) {
			return source, nil
		},
	}
	uc := NewChatUsecase(mock, config.DifyConfig{}, testLogger())

	ch, err := uc.ChatStreaming(context.Background(), &domain.ChatRequest{
		Messages: []entity.ChatMessage{textMessage("user", "hi")},
	})
	require.NoError(t, err)

	var chunks []entity.StreamChunk
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 2)
	assert.False(t, chunks[0].IsEnd)
	assert.True(t, chunks[1].IsEnd)
	assert.Equal(t, 7, chunks[1].TotalTokens)
}

func TestChatStreamingBackendError(t *testing.T) {
	wantErr := errors.New("dial refused")
	mock := &mocks.MockWorkflowClient{
		RunStreamingFunc: func(ctx context.Context, inputs map[string]any, user string) (<-chan entity.StreamChunk, error) {
			return nil, wantErr
		},
	}
	uc := NewChatUsecase(mock, config.DifyConfig{}, testLogger())

	_, err := uc.ChatStreaming(context.Background(), &domain.ChatRequest{
		Messages: []entity.ChatMessage{textMessage("user", "hi")},
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestFileTypeForURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/a.png", "image"},
		{"https://example.com/a.JPG", "image"},
		{"https://example.com/a.pdf", "document"},
		{"https://example.com/a.mp3", "audio"},
		{"https://example.com/a.mp4", "video"},
		{"https://example.com/a.mp4?token=x#frag", "video"},
		{"https://example.com/no-extension", "image"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, fileTypeForURL(tt.url))
		})
	}
}
