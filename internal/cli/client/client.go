package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/realcbb/Dify2OpenAI/internal/cli/types"
)

const (
	endpointChatCompletions = "/v1/chat/completions"
	endpointModels          = "/v1/models"
)

// APIClient wraps a Hertz client for HTTP communication with the gateway
type APIClient struct {
	client *client.Client
	server string
}

// NewAPIClient creates a new API client
func NewAPIClient(server string) (*APIClient, error) {
	normalizedServer, err := normalizeServerURL(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	// Standard dialer: netpoll does not support streaming response bodies
	c, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithResponseBodyStream(true),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &APIClient{
		client: c,
		server: normalizedServer,
	}, nil
}

// normalizeServerURL ensures the server address has a scheme and no trailing path
func normalizeServerURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server URL")
	}

	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// Chat sends a blocking chat request
func (c *APIClient) Chat(ctx context.Context, messages []types.ChatMessage, model string) (*types.ChatResponse, error) {
	reqBody := types.ChatRequest{
		Messages: messages,
		Model:    model,
		Stream:   false,
	}
	bodyBytes, err := sonic.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.server + endpointChatCompletions)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.SetBody(bodyBytes)

	if err := c.client.Do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("chat failed with HTTP status: %d, body: %s", resp.StatusCode(), string(resp.Body()))
	}

	var chatResp types.ChatResponse
	if err := sonic.Unmarshal(resp.Body(), &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &chatResp, nil
}

// ChatStreaming sends a chat request and returns the streamed chunks
func (c *APIClient) ChatStreaming(ctx context.Context, messages []types.ChatMessage, model string) (<-chan types.ChatStreamChunk, <-chan error, error) {
	if len(messages) == 0 {
		return nil, nil, fmt.Errorf("chat request requires at least one message")
	}

	// Copy messages to avoid data races when the caller mutates the slice
	safeMessages := make([]types.ChatMessage, len(messages))
	copy(safeMessages, messages)

	reqBody := types.ChatRequest{
		Messages: safeMessages,
		Model:    model,
		Stream:   true,
	}
	bodyBytes, err := sonic.Marshal(reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.server + endpointChatCompletions)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.Header.Set("Accept", "text/event-stream")
	req.SetBody(bodyBytes)

	if err := c.client.Do(ctx, req, resp); err != nil {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		statusCode := resp.StatusCode()
		body := string(resp.Body())
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, nil, fmt.Errorf("chat failed with HTTP status: %d, body: %s", statusCode, body)
	}

	chunkCh := make(chan types.ChatStreamChunk, 10)
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			close(chunkCh)
			close(errCh)
			protocol.ReleaseRequest(req)
			protocol.ReleaseResponse(resp)
		}()

		bodyStream := resp.BodyStream()
		if bodyStream == nil {
			errCh <- fmt.Errorf("body stream is nil")
			return
		}

		c.parseSSEStream(bodyStream, chunkCh, errCh)
	}()

	return chunkCh, errCh, nil
}

// parseSSEStream reads the SSE stream line by line as data arrives
func (c *APIClient) parseSSEStream(reader io.Reader, chunkCh chan<- types.ChatStreamChunk, errCh chan<- error) {
	scanner := bufio.NewScanner(reader)

	const maxScanTokenSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			dataStr := strings.TrimPrefix(line, "data: ")

			if dataStr == "[DONE]" {
				return
			}

			var chunk types.ChatStreamChunk
			if err := sonic.UnmarshalString(dataStr, &chunk); err != nil {
				// Skip malformed frames
				continue
			}
			chunkCh <- chunk
		}
	}

	if err := scanner.Err(); err != nil {
		errCh <- fmt.Errorf("stream read failed: %w", err)
	}
}

// ListModels lists the models served by the gateway
func (c *APIClient) ListModels(ctx context.Context) (*types.ModelList, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(c.server + endpointModels)

	if err := c.client.Do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("failed to list models (HTTP %d)", resp.StatusCode())
	}

	var models types.ModelList
	if err := sonic.Unmarshal(resp.Body(), &models); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &models, nil
}
