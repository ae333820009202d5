// Package a2a implements a single-shot client for the agent task protocol:
// fetch the peer's capability document, submit one task with tasks/send and
// resolve the synchronous response into text.
package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/voice-mcp-agent/internal/common"
)

const (
	agentCardPath = "/.well-known/agent.json"
	tasksSendPath = "/tasks/send"
	methodSend    = "tasks/send"

	// DefaultTimeout bounds each network round trip.
	DefaultTimeout = 10 * time.Second

	// maxResponseSize caps response bodies read from a peer.
	maxResponseSize = 10 << 20
)

// Client sends tasks to remote agents. It keeps no state between calls.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	headers    map[string]string
	logger     *common.Logger
	newID      func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request ceiling.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHeaders sets headers sent on every request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) { c.headers = h }
}

// WithLogger sets the logger.
func WithLogger(l *common.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a task protocol client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     common.NewSilentLogger(),
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCard retrieves the capability document of the agent at endpoint.
// Any non-200 response is a ProtocolError.
func (c *Client) FetchCard(ctx context.Context, endpoint string) (*AgentCard, error) {
	url := strings.TrimRight(endpoint, "/") + agentCardPath
	const op = "get agent card"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ProtocolError{Op: op, URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	c.applyHeaders(req)

	status, body, err := c.do(req)
	if err != nil {
		return nil, &ProtocolError{Op: op, URL: url, Err: err}
	}
	if status != http.StatusOK {
		return nil, &ProtocolError{Op: op, URL: url, StatusCode: status}
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, &ProtocolError{Op: op, URL: url, Err: fmt.Errorf("invalid agent card: %w", err)}
	}
	return &card, nil
}

// Send submits userText as a new task to the agent at endpoint and waits for
// the synchronous response. A task that did not complete is a Result, not an
// error; only transport and protocol failures return *ProtocolError.
func (c *Client) Send(ctx context.Context, endpoint, userText string) (Result, error) {
	if _, err := c.FetchCard(ctx, endpoint); err != nil {
		return Result{}, err
	}

	task := Task{
		ID:                  c.newID(),
		SessionID:           c.newID(),
		AcceptedOutputModes: []string{"text"},
		Message: Message{
			Role:  "user",
			Parts: []Part{textPart(userText)},
		},
	}

	res, err := c.submit(ctx, endpoint, task)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		TaskID:    task.ID,
		SessionID: task.SessionID,
		RawStatus: "null",
	}
	var status *TaskStatus
	if len(res.Status) > 0 && string(res.Status) != "null" {
		result.RawStatus = string(res.Status)
		status = &TaskStatus{}
		if err := json.Unmarshal(res.Status, status); err != nil {
			return Result{}, &ProtocolError{Op: "task request", URL: endpoint, Err: fmt.Errorf("invalid task status: %w", err)}
		}
		result.State = status.State
	}

	if result.State == StateCompleted {
		result.Outcome = OutcomeCompleted
		result.Reply = resolveReply(res.Messages, status)
	} else {
		result.Outcome = OutcomeIncomplete
		result.Reply = incompleteReply(result.RawStatus)
	}

	c.logger.Debug().
		Str("task_id", task.ID).
		Str("state", string(result.State)).
		Str("outcome", result.Outcome.String()).
		Msg("task response resolved")

	return result, nil
}

// submit performs the tasks/send call. The JSON-RPC correlation id is the task id.
func (c *Client) submit(ctx context.Context, endpoint string, task Task) (*taskResult, error) {
	url := strings.TrimRight(endpoint, "/") + tasksSendPath
	const op = "task request"

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      task.ID,
		Method:  methodSend,
		Params:  task,
	})
	if err != nil {
		return nil, &ProtocolError{Op: op, URL: url, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ProtocolError{Op: op, URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	status, body, err := c.do(req)
	if err != nil {
		return nil, &ProtocolError{Op: op, URL: url, Err: err}
	}
	if status != http.StatusOK {
		return nil, &ProtocolError{Op: op, URL: url, StatusCode: status, Body: string(body)}
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProtocolError{Op: op, URL: url, Body: string(body), Err: fmt.Errorf("invalid response: %w", err)}
	}
	if resp.Error != nil {
		return nil, &ProtocolError{Op: op, URL: url, Err: fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)}
	}
	if resp.Result == nil {
		return &taskResult{}, nil
	}
	return resp.Result, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
}

// do executes req and returns the status code and a size-capped body.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Warn().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Int64("duration_ms", duration.Milliseconds()).
			Str("error", err.Error()).
			Msg("agent request failed")
		if ctxErr := req.Context().Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("agent response")

	return resp.StatusCode, body, nil
}
