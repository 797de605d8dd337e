package dify

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/realcbb/Dify2OpenAI/internal/config"
	"github.com/realcbb/Dify2OpenAI/internal/domain"
	"github.com/realcbb/Dify2OpenAI/internal/domain/entity"
)

const (
	endpointWorkflowRun = "/workflows/run"
	endpointFileUpload  = "/files/upload"

	responseModeBlocking  = "blocking"
	responseModeStreaming = "streaming"

	// Token count reported when the backend omits data.total_tokens.
	defaultTotalTokens = 110
)

// workflowRequest is the body of POST /workflows/run. Files stays empty on
// purpose: file inputs travel through inputs.file_input instead.
type workflowRequest struct {
	Inputs       map[string]any     `json:"inputs"`
	ResponseMode string             `json:"response_mode"`
	User         string             `json:"user"`
	Files        []entity.FileInput `json:"files"`
}

// workflowResponse is the blocking-mode answer of /workflows/run.
type workflowResponse struct {
	WorkflowRunID string    `json:"workflow_run_id"`
	TaskID        string    `json:"task_id"`
	Data          eventData `json:"data"`
}

// eventType enumerates the frames of the workflow event stream.
type eventType string

const (
	eventWorkflowStarted  eventType = "workflow_started"
	eventNodeStarted      eventType = "node_started"
	eventNodeFinished     eventType = "node_finished"
	eventWorkflowFinished eventType = "workflow_finished"
	eventPing             eventType = "ping"
	eventError            eventType = "error"
)

// streamEvent is one frame of the workflow SSE stream.
type streamEvent struct {
	Event   eventType `json:"event"`
	Data    eventData `json:"data"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

// eventData is the payload of workflow_finished frames and of the blocking
// response. TotalTokens is a pointer to tell "absent" from zero.
type eventData struct {
	Outputs     map[string]any `json:"outputs"`
	TotalTokens *int           `json:"total_tokens"`
	Status      string         `json:"status,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Client implements domain.WorkflowClient against the Dify HTTP API.
type Client struct {
	hc     *client.Client
	cfg    config.DifyConfig
	logger *slog.Logger
}

// NewClient creates a workflow backend client.
func NewClient(cfg config.DifyConfig, logger *slog.Logger) (*Client, error) {
	// Standard dialer: netpoll does not support streaming response bodies.
	hc, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithResponseBodyStream(true),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		hc:     hc,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// RunBlocking executes the workflow and waits for the full result. When the
// backend answers with an event stream despite blocking mode, the stream is
// buffered and folded into one result.
func (c *Client) RunBlocking(ctx context.Context, inputs map[string]any, user string) (*entity.WorkflowResult, error) {
	req, resp, err := c.newWorkflowRequest(inputs, responseModeBlocking, user)
	if err != nil {
		return nil, err
	}
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	if err := c.do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("workflow request failed: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, domain.NewUpstreamError(code, resp.Body())
	}

	body := resp.Body()
	if strings.Contains(string(resp.Header.ContentType()), "application/json") {
		var wr workflowResponse
		if err := sonic.Unmarshal(body, &wr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow response: %w", err)
		}
		return c.resultFrom(wr.Data), nil
	}

	return c.collectStream(bytes.NewReader(body))
}

// RunStreaming executes the workflow and converts the backend event stream
// into a channel that carries exactly one terminal chunk.
func (c *Client) RunStreaming(ctx context.Context, inputs map[string]any, user string) (<-chan entity.StreamChunk, error) {
	req, resp, err := c.newWorkflowRequest(inputs, responseModeStreaming, user)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	if err := c.hc.Do(ctx, req, resp); err != nil {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, fmt.Errorf("workflow request failed: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		body := resp.Body()
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, domain.NewUpstreamError(code, body)
	}

	ch := make(chan entity.StreamChunk, 8)
	go func() {
		defer func() {
			close(ch)
			protocol.ReleaseRequest(req)
			protocol.ReleaseResponse(resp)
		}()

		bodyStream := resp.BodyStream()
		if bodyStream == nil {
			ch <- entity.StreamChunk{Err: domain.NewInternalError(fmt.Errorf("body stream is nil"))}
			return
		}
		c.decodeEventStream(bodyStream, ch)
	}()

	return ch, nil
}

// decodeEventStream scans the raw SSE byte stream line by line, buffering
// partial lines across reads, and emits at most one terminal chunk. Malformed
// frames are skipped, never fatal.
func (c *Client) decodeEventStream(r io.Reader, ch chan<- entity.StreamChunk) {
	scanner := bufio.NewScanner(r)

	// Workflow outputs can be large single-line frames.
	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	terminated := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if !strings.HasPrefix(payload, "{") {
			continue
		}

		var ev streamEvent
		if err := sonic.UnmarshalString(payload, &ev); err != nil {
			c.logger.Debug("skipping malformed stream frame", "error", err)
			continue
		}

		switch ev.Event {
		case eventWorkflowStarted, eventNodeStarted, eventNodeFinished, eventPing:
			// Progress frames are observed, not forwarded.

		case eventWorkflowFinished:
			if terminated {
				continue
			}
			terminated = true
			result := c.resultFrom(ev.Data)
			ch <- entity.StreamChunk{Content: result.Output, TotalTokens: result.TotalTokens, IsEnd: true}
			return

		case eventError:
			if terminated {
				continue
			}
			terminated = true
			ch <- entity.StreamChunk{Err: domain.NewBackendSignaledError(ev.Code, ev.Message)}
			return

		default:
			c.logger.Debug("unhandled workflow event", "event", string(ev.Event))
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Debug("workflow stream read ended", "error", err)
	}

	// Stream closed without a terminal frame.
	if !terminated {
		ch <- entity.StreamChunk{IsEnd: true}
	}
}

// collectStream buffers a whole event stream and folds it into one blocking
// result. An error event wins over any other frame.
func (c *Client) collectStream(r io.Reader) (*entity.WorkflowResult, error) {
	ch := make(chan entity.StreamChunk, 1)
	go func() {
		defer close(ch)
		c.decodeEventStream(r, ch)
	}()

	for chunk := range ch {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		if chunk.IsEnd {
			return &entity.WorkflowResult{Output: chunk.Content, TotalTokens: chunk.TotalTokens}, nil
		}
	}

	return nil, domain.NewInternalError(fmt.Errorf("workflow stream ended without result"))
}

// resultFrom applies the output-variable selection and the token default.
func (c *Client) resultFrom(data eventData) *entity.WorkflowResult {
	tokens := defaultTotalTokens
	if data.TotalTokens != nil {
		tokens = *data.TotalTokens
	}
	return &entity.WorkflowResult{
		Output:      selectOutput(data.Outputs, c.cfg.OutputVariable),
		TotalTokens: tokens,
	}
}

// selectOutput picks a single named output field when outputVariable is
// configured, otherwise the whole outputs object.
func selectOutput(outputs map[string]any, outputVariable string) any {
	if outputVariable == "" {
		return outputs
	}
	return outputs[outputVariable]
}

func (c *Client) newWorkflowRequest(inputs map[string]any, responseMode, user string) (*protocol.Request, *protocol.Response, error) {
	body := workflowRequest{
		Inputs:       inputs,
		ResponseMode: responseMode,
		User:         user,
		Files:        []entity.FileInput{},
	}
	bodyBytes, err := sonic.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal workflow request: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.cfg.BaseURL + endpointWorkflowRun)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.SetBody(bodyBytes)

	return req, resp, nil
}

// do runs a non-streaming request, honoring the configured timeout.
func (c *Client) do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	if c.cfg.Timeout > 0 {
		return c.hc.DoTimeout(ctx, req, resp, c.cfg.Timeout)
	}
	return c.hc.Do(ctx, req, resp)
}
