//go:build integration
// +build integration

package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/network/netpoll"

	"github.com/realcbb/Dify2OpenAI/internal/config"
	"github.com/realcbb/Dify2OpenAI/internal/handler"
	"github.com/realcbb/Dify2OpenAI/internal/handler/dto"
	"github.com/realcbb/Dify2OpenAI/internal/infrastructure/dify"
	"github.com/realcbb/Dify2OpenAI/internal/router"
	"github.com/realcbb/Dify2OpenAI/internal/usecase"
)

const testPort = 18080

// fakeDify serves the workflow backend endpoints the gateway talks to.
func fakeDify(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/workflows/run":
			var body struct {
				Inputs       map[string]any `json:"inputs"`
				ResponseMode string         `json:"response_mode"`
				User         string         `json:"user"`
			}
			raw, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Errorf("backend received malformed body: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			query, _ := body.Inputs["text_input"].(string)

			if body.ResponseMode == "streaming" {
				w.Header().Set("Content-Type", "text/event-stream")
				flusher := w.(http.Flusher)
				frames := []string{
					`{"event": "workflow_started", "data": {}}`,
					`{"event": "node_started", "data": {}}`,
					`{"event": "node_finished", "data": {}}`,
					fmt.Sprintf(`{"event": "workflow_finished", "data": {"outputs": {"answer": "echo: %s"}, "total_tokens": 21}}`, query),
				}
				for _, frame := range frames {
					fmt.Fprintf(w, "data: %s\n\n", frame)
					flusher.Flush()
					time.Sleep(10 * time.Millisecond)
				}
				return
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"workflow_run_id": "run-1", "task_id": "task-1", "data": {"outputs": {"answer": "echo: %s"}, "total_tokens": 21, "status": "succeeded"}}`, query)

		case "/files/upload":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": "file-integration", "name": "file.png", "size": 3, "mime_type": "image/png"}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// TestChatHTTP runs the gateway end to end against a fake workflow backend.
// Run with: go test -tags integration ./test/integration/...
func TestChatHTTP(t *testing.T) {
	backend := fakeDify(t)
	defer backend.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	difyCfg := config.DifyConfig{
		BaseURL:        backend.URL,
		APIKey:         "app-test",
		OutputVariable: "answer",
		Model:          "dify-workflow",
		Timeout:        30 * time.Second,
	}

	workflowClient, err := dify.NewClient(difyCfg, logger)
	if err != nil {
		t.Fatalf("failed to create workflow client: %v", err)
	}

	chatUC := usecase.NewChatUsecase(workflowClient, difyCfg, logger)
	chatHandler := handler.NewChatHandler(chatUC, difyCfg.Model, logger)
	modelsHandler := handler.NewModelsHandler(difyCfg.Model)
	healthHandler := handler.NewHealthHandler(difyCfg.BaseURL)

	h := server.New(
		server.WithHostPorts(fmt.Sprintf("127.0.0.1:%d", testPort)),
		server.WithTransport(netpoll.NewTransporter),
	)
	router.Setup(h, chatHandler, modelsHandler, healthHandler)

	go func() {
		if err := h.Run(); err != nil {
			logger.Error("server failed", "error", err)
		}
	}()

	time.Sleep(2 * time.Second)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Shutdown(ctx)
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", testPort)
	httpClient := &http.Client{Timeout: 60 * time.Second}

	t.Run("SSE streaming chat", func(t *testing.T) {
		reqBody := `{"messages": [{"role": "user", "content": "hello"}], "stream": true}`
		resp, err := httpClient.Post(baseURL+"/v1/chat/completions", "application/json", strings.NewReader(reqBody))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
			t.Errorf("expected Content-Type 'text/event-stream', got %q", ct)
		}

		reader := bufio.NewReader(resp.Body)
		chunkCount := 0
		receivedDone := false

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					break
				}
				t.Fatalf("failed to read stream: %v", err)
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			if data == "[DONE]" {
				receivedDone = true
				break
			}

			var chunk dto.ChatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				t.Errorf("failed to unmarshal chunk: %v, data: %s", err, data)
				continue
			}
			chunkCount++

			if chunk.Object != "chat.completion.chunk" {
				t.Errorf("expected object 'chat.completion.chunk', got %q", chunk.Object)
			}
			if len(chunk.Choices) == 0 {
				t.Fatal("choices should not be empty")
			}
			if chunk.Choices[0].Delta.Role != "assistant" {
				t.Errorf("expected role 'assistant', got %q", chunk.Choices[0].Delta.Role)
			}
			if content, _ := chunk.Choices[0].Delta.Content.(string); content != "echo: hello" {
				t.Errorf("expected content 'echo: hello', got %v", chunk.Choices[0].Delta.Content)
			}
			if chunk.Choices[0].FinishReason == nil || *chunk.Choices[0].FinishReason != "stop" {
				t.Error("terminal chunk should carry finish_reason 'stop'")
			}
		}

		if chunkCount != 1 {
			t.Errorf("expected exactly one chunk, got %d", chunkCount)
		}
		if !receivedDone {
			t.Error("expected to receive [DONE] marker")
		}
	})

	t.Run("non-streaming chat", func(t *testing.T) {
		reqBody := `{"messages": [{"role": "system", "content": "be terse"}, {"role": "user", "content": "hello"}]}`
		resp, err := httpClient.Post(baseURL+"/v1/chat/completions", "application/json", strings.NewReader(reqBody))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}

		var chatResp dto.ChatCompletionResponse
		if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if chatResp.Object != "chat.completion" {
			t.Errorf("expected object 'chat.completion', got %q", chatResp.Object)
		}
		if len(chatResp.Choices) == 0 {
			t.Fatal("expected at least one choice")
		}
		if chatResp.Choices[0].Message.Role != "assistant" {
			t.Errorf("expected role 'assistant', got %q", chatResp.Choices[0].Message.Role)
		}
		// The system prompt is merged into the query before it reaches the backend.
		if content, _ := chatResp.Choices[0].Message.Content.(string); content != "echo: be terse\n\nhello" {
			t.Errorf("unexpected content: %v", chatResp.Choices[0].Message.Content)
		}
		if chatResp.Usage.TotalTokens != 21 {
			t.Errorf("expected 21 total tokens, got %d", chatResp.Usage.TotalTokens)
		}
	})

	t.Run("multi-modal chat with inline image", func(t *testing.T) {
		reqBody := `{"messages": [{"role": "user", "content": [
			{"type": "text", "text": "what is this?"},
			{"type": "image_url", "image_url": {"url": "data:image/png;base64,aGVsbG8="}}
		]}]}`
		resp, err := httpClient.Post(baseURL+"/v1/chat/completions", "application/json", strings.NewReader(reqBody))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body)
		}

		var chatResp dto.ChatCompletionResponse
		if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if content, _ := chatResp.Choices[0].Message.Content.(string); content != "echo: what is this?" {
			t.Errorf("unexpected content: %v", chatResp.Choices[0].Message.Content)
		}
	})

	t.Run("invalid request", func(t *testing.T) {
		resp, err := httpClient.Post(baseURL+"/v1/chat/completions", "application/json", bytes.NewReader([]byte(`{"messages": []}`)))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", resp.StatusCode)
		}
	})

	t.Run("models endpoint", func(t *testing.T) {
		resp, err := httpClient.Get(baseURL + "/v1/models")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		var list dto.ModelList
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(list.Data) != 1 || list.Data[0].ID != "dify-workflow" {
			t.Errorf("unexpected model list: %+v", list)
		}
	})
}
