package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"byom-relay/internal/domain"
)

// ModelHeader carries the requested model name to generic HTTP backends.
const ModelHeader = "X-LLM-Model"

type genericRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// genericResponse lists the reply fields in the order they are consulted.
type genericResponse struct {
	Reply   string `json:"reply"`
	Content string `json:"content"`
	Output  string `json:"output"`
}

func (r genericResponse) text() string {
	for _, s := range []string{r.Reply, r.Content, r.Output} {
		if s != "" {
			return s
		}
	}
	return NoContent
}

// GenericHTTP posts the normalized messages to a caller-supplied endpoint.
type GenericHTTP struct {
	httpClient *http.Client
}

func NewGenericHTTP(httpClient *http.Client) *GenericHTTP {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GenericHTTP{httpClient: httpClient}
}

func (g *GenericHTTP) Invoke(ctx context.Context, cfg domain.ProviderConfig, model string, messages []domain.ChatMessage) (domain.DispatchResult, error) {
	fail := func(status int, body string, err error) (domain.DispatchResult, error) {
		return domain.DispatchResult{}, &AdapterError{Kind: domain.ProviderGenericHTTP, StatusCode: status, Body: body, Cause: err}
	}

	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	body, err := json.Marshal(genericRequest{Messages: messages})
	if err != nil {
		return fail(0, "", fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(0, "", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ModelHeader, model)

	res, err := g.httpClient.Do(req)
	if err != nil {
		return fail(0, "", fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fail(res.StatusCode, string(buf), fmt.Errorf("http provider error %d", res.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fail(res.StatusCode, "", fmt.Errorf("read response body: %w", err))
	}
	var payload genericResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fail(res.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	return domain.DispatchResult{Text: payload.text(), Meta: domain.DispatchMeta{ModelID: model}}, nil
}
