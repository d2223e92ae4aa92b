package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/norrisp90/geneticai/internal/metrics"
)

const (
	defaultAPIVersion   = "2025-05-01"
	defaultPollInterval = time.Second
)

// Client talks to the Azure AI Agents REST API for a single project
// endpoint and agent.
type Client struct {
	endpoint     string
	agentID      string
	token        string
	apiVersion   string
	pollInterval time.Duration
	client       *http.Client

	mu       sync.Mutex
	verified bool
}

type Option func(*Client)

// WithPollInterval overrides the run polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

func NewClient(endpoint, agentID, token string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("PROJECT_ENDPOINT is required")
	}
	if strings.TrimSpace(agentID) == "" {
		return nil, fmt.Errorf("AZURE_AI_AGENT_ID is required")
	}

	c := &Client{
		endpoint:     endpoint,
		agentID:      agentID,
		token:        token,
		apiVersion:   defaultAPIVersion,
		pollInterval: defaultPollInterval,
		client:       &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AgentID returns the configured agent identifier.
func (c *Client) AgentID() string {
	return c.agentID
}

// GetAgent fetches the configured agent, verifying the integration is
// reachable before any chat starts.
func (c *Client) GetAgent(ctx context.Context) (*Agent, error) {
	metrics.IncAgentRequest("get_agent")
	var agent Agent
	if err := c.do(ctx, http.MethodGet, "/assistants/"+c.agentID, nil, &agent); err != nil {
		metrics.IncError("agent", "get_agent")
		return nil, fmt.Errorf("failed to get agent %s: %w", c.agentID, err)
	}

	c.mu.Lock()
	c.verified = true
	c.mu.Unlock()
	return &agent, nil
}

// Verify confirms the agent is reachable. A failed startup check does not
// stop the gateway; callers retry here until the first fetch succeeds, and
// success is remembered.
func (c *Client) Verify(ctx context.Context) error {
	c.mu.Lock()
	verified := c.verified
	c.mu.Unlock()
	if verified {
		return nil
	}

	_, err := c.GetAgent(ctx)
	return err
}

// CreateThread opens a new conversation thread.
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	metrics.IncAgentRequest("create_thread")
	var thread Thread
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &thread); err != nil {
		metrics.IncError("agent", "create_thread")
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return &thread, nil
}

// Ask posts a user message on the thread, runs the agent, waits for the run
// to reach a terminal status and returns the latest assistant text.
func (c *Client) Ask(ctx context.Context, threadID, text string) (string, error) {
	metrics.IncAgentRequest("create_message")
	body := map[string]any{
		"role":    "user",
		"content": text,
	}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", body, nil); err != nil {
		metrics.IncError("agent", "create_message")
		return "", fmt.Errorf("failed to create message: %w", err)
	}

	metrics.IncAgentRequest("create_run")
	var run Run
	runBody := map[string]any{"assistant_id": c.agentID}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", runBody, &run); err != nil {
		metrics.IncError("agent", "create_run")
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	started := time.Now()
	run, err := c.waitForRun(ctx, threadID, run)
	if err != nil {
		return "", err
	}
	metrics.ObserveRunDuration(time.Since(started))
	metrics.IncRunCompleted(string(run.Status))

	switch run.Status {
	case RunCompleted:
		return c.latestAssistantText(ctx, threadID)
	case RunFailed:
		if run.LastError != nil {
			return "", fmt.Errorf("agent run failed: %s", run.LastError.Message)
		}
		return "", fmt.Errorf("agent run failed: unknown error")
	default:
		return "", fmt.Errorf("agent run ended with status: %s", run.Status)
	}
}

func (c *Client) waitForRun(ctx context.Context, threadID string, run Run) (Run, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !run.Status.Terminal() {
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}

		metrics.IncAgentRequest("get_run")
		var updated Run
		if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+run.ID, nil, &updated); err != nil {
			metrics.IncError("agent", "get_run")
			return run, fmt.Errorf("failed to poll run: %w", err)
		}
		run = updated
	}
	return run, nil
}

func (c *Client) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	metrics.IncAgentRequest("list_messages")
	var list messageList
	path := "/threads/" + threadID + "/messages?order=desc"
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		metrics.IncError("agent", "list_messages")
		return "", fmt.Errorf("failed to list messages: %w", err)
	}

	for _, msg := range list.Data {
		if msg.Role == "assistant" {
			if text := msg.Text(); text != "" {
				return text, nil
			}
		}
	}
	return "", fmt.Errorf("no assistant response found on thread %s", threadID)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	target := c.endpoint + path
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	target += separator + "api-version=" + url.QueryEscape(c.apiVersion)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("agents API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
