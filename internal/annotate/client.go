// Package annotate talks to an OpenAI-compatible chat completions API to
// annotate source files and summarize projects.
package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client implements contract.Annotator against {BaseURL}/chat/completions.
type Client struct {
	BaseURL     string
	APIKey      string
	ModelName   string
	Temperature float64
	HTTPClient  *http.Client
}

var _ contract.Annotator = &Client{} // Compile-time check

// New builds a client from the run configuration. Deadlines come from the caller's context.
func New(cfg *contract.Config) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(cfg.APIURL, "/"),
		APIKey:      cfg.APIKey,
		ModelName:   cfg.Model,
		Temperature: cfg.Temperature,
		HTTPClient:  &http.Client{},
	}
}

// Model implements contract.Annotator.
func (c *Client) Model() string { return c.ModelName }

// Annotate implements contract.Annotator.
func (c *Client) Annotate(ctx context.Context, path string, content []byte) (*schema.AIAnalysis, error) {
	reply, err := c.complete(ctx, fileSystemPrompt, buildFilePrompt(path, content))
	if err != nil {
		return nil, err
	}
	var analysis schema.AIAnalysis
	if err := decodeObject(reply, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Summarize implements contract.Annotator.
func (c *Client) Summarize(ctx context.Context, files []schema.FileRecord) (*schema.ProjectInsights, error) {
	prompt, err := buildSummaryPrompt(files)
	if err != nil {
		return nil, err
	}
	reply, err := c.complete(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var insights schema.ProjectInsights
	if err := decodeObject(reply, &insights); err != nil {
		return nil, err
	}
	return &insights, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends one chat completion and returns the first choice's content.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.ModelName,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", &schema.CallError{Kind: schema.FailureClient, Err: fmt.Errorf("error marshalling request body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &schema.CallError{Kind: schema.FailureClient, Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		callErr := statusError(resp, data)
		contract.Logger().Debug("Annotation request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(callErr.Kind)))
		return "", callErr
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return "", &schema.CallError{Kind: schema.FailureParse, Err: fmt.Errorf("invalid response envelope: %w", err)}
	}
	if len(chat.Choices) == 0 {
		return "", &schema.CallError{Kind: schema.FailureParse, Err: errors.New("no choices in response")}
	}
	return chat.Choices[0].Message.Content, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// statusError maps a non-2xx response to a classified CallError.
func statusError(resp *http.Response, body []byte) *schema.CallError {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	callErr := &schema.CallError{StatusCode: resp.StatusCode, Err: errors.New(detail)}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		callErr.Kind = schema.FailureRateLimit
		callErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	case resp.StatusCode == http.StatusRequestTimeout:
		callErr.Kind = schema.FailureTimeout
	case resp.StatusCode >= 500:
		callErr.Kind = schema.FailureServer
	default:
		callErr.Kind = schema.FailureClient
	}
	return callErr
}

// parseRetryAfter accepts delay seconds or an HTTP date. Anything else means no hint.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// transportError classifies a failure to get a response at all.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return &schema.CallError{Kind: schema.FailureCancelled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &schema.CallError{Kind: schema.FailureTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &schema.CallError{Kind: schema.FailureTimeout, Err: err}
	}
	return &schema.CallError{Kind: schema.FailureNetwork, Err: err}
}
