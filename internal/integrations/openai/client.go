package openai

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

	"byom-relay/internal/domain"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	maxErrorBody    = 4 << 10
	maxResponseBody = 1 << 20
	defaultTimeout  = 30 * time.Second
)

type completionRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
}

// Content is a pointer so a null message body can be told apart from "".
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// errorEnvelope is the error body OpenAI-compatible servers return on non-2xx.
type errorEnvelope struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// HTTPStatusError is a non-2xx reply from the completions endpoint.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string

	// Type, Code and Message come from the JSON error envelope when present.
	Type    string
	Code    string
	Message string
}

func (e *HTTPStatusError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}
	return fmt.Sprintf("openai: status %d from %s: %s", e.StatusCode, e.URL, detail)
}

func (e *HTTPStatusError) HTTPStatusCode() int { return e.StatusCode }

// ErrorType returns the most specific machine-readable error label available.
func (e *HTTPStatusError) ErrorType() string {
	if e.Code != "" && e.Type != "" {
		return e.Type + "/" + e.Code
	}
	if e.Type != "" {
		return e.Type
	}
	return e.Code
}

// Client is a focused OpenAI-compatible chat client bound to one API key.
// Clients are cheap; build one per resolved credential rather than sharing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSpace(baseURL) }
}

// WithHTTPClient replaces the default client; nil falls back to http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a Client that authenticates every call with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	c := &Client{baseURL: defaultBaseURL, apiKey: apiKey, httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, apply := range opts {
		apply(c)
	}
	return c, nil
}

func completionsURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case base == "":
		return defaultBaseURL + "/chat/completions"
	case strings.HasSuffix(base, "/v1"):
		return base + "/chat/completions"
	default:
		return base + "/v1/chat/completions"
	}
}

// Chat sends messages to model and returns the first choice's content. The
// boolean is false when the response carried no choice or a null content.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, bool, error) {
	if strings.TrimSpace(model) == "" {
		return "", false, errors.New("openai: model must not be empty")
	}
	payload, err := json.Marshal(completionRequest{Model: model, Messages: messages})
	if err != nil {
		return "", false, fmt.Errorf("openai: encode request: %w", err)
	}

	raw, err := c.post(ctx, completionsURL(c.baseURL), payload)
	if err != nil {
		return "", false, err
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", false, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", false, nil
	}
	return *out.Choices[0].Message.Content, true, nil
}

// post returns the response body of a 2xx reply, or *HTTPStatusError.
func (c *Client) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		errBody, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, newHTTPStatusError(res.StatusCode, endpoint, errBody)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	return body, nil
}

func newHTTPStatusError(status int, url string, body []byte) *HTTPStatusError {
	out := &HTTPStatusError{
		StatusCode: status,
		URL:        url,
		Body:       string(body),
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		out.Type = env.Error.Type
		out.Message = env.Error.Message
		out.Code = strings.Trim(string(env.Error.Code), `"`)
		if out.Code == "null" {
			out.Code = ""
		}
	}
	return out
}
