package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"byom-relay/internal/domain"
)

var testMessages = []domain.ChatMessage{{Role: domain.RoleUser, Content: "hello"}}

func TestHosted_ReturnsFirstChoice(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`)
	}))
	defer srv.Close()

	h := NewHosted(WithHostedBaseURL(srv.URL), WithHostedHTTPClient(srv.Client()))
	res, err := h.Invoke(context.Background(), domain.ProviderConfig{Kind: domain.ProviderHosted, Secret: "sk-xyz9876"}, "m", testMessages)
	require.NoError(t, err)
	require.Equal(t, "hi there", res.Text)
	require.Equal(t, "m", res.Meta.ModelID)
	require.Equal(t, "Bearer sk-xyz9876", gotAuth)
	require.Equal(t, "/v1/chat/completions", gotPath)
	require.Equal(t, "m", gotBody["model"])
}

func TestHosted_NoContent(t *testing.T) {
	for name, body := range map[string]string{
		"no choices":   `{"choices":[]}`,
		"null content": `{"choices":[{"message":{"role":"assistant","content":null}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			h := NewHosted(WithHostedBaseURL(srv.URL), WithHostedHTTPClient(srv.Client()))
			res, err := h.Invoke(context.Background(), domain.ProviderConfig{Secret: "sk-1"}, "m", testMessages)
			require.NoError(t, err)
			require.Equal(t, NoContent, res.Text)
		})
	}
}

func TestHosted_StatusErrorIsAdapterError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`)
	}))
	defer srv.Close()

	h := NewHosted(WithHostedBaseURL(srv.URL), WithHostedHTTPClient(srv.Client()))
	_, err := h.Invoke(context.Background(), domain.ProviderConfig{Secret: "sk-secretvalue1234"}, "m", testMessages)
	require.Error(t, err)

	var adapterErr *AdapterError
	require.True(t, errors.As(err, &adapterErr))
	require.Equal(t, domain.ProviderHosted, adapterErr.Kind)
	require.Equal(t, http.StatusTooManyRequests, adapterErr.HTTPStatusCode())
	require.Equal(t, "insufficient_quota/insufficient_quota", adapterErr.ErrorType())
	require.NotContains(t, err.Error(), "sk-secretvalue1234")
}

func TestHosted_MissingSecret(t *testing.T) {
	_, err := NewHosted().Invoke(context.Background(), domain.ProviderConfig{}, "m", testMessages)
	var adapterErr *AdapterError
	require.True(t, errors.As(err, &adapterErr))
	require.Zero(t, adapterErr.StatusCode)
}

func TestGenericHTTP_PostsMessagesWithModelHeader(t *testing.T) {
	var gotModel, gotContentType, gotMethod string
	var gotBody genericRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotModel = r.Header.Get(ModelHeader)
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"reply":"pong"}`)
	}))
	defer srv.Close()

	g := NewGenericHTTP(srv.Client())
	res, err := g.Invoke(context.Background(), domain.ProviderConfig{Kind: domain.ProviderGenericHTTP, Endpoint: srv.URL}, "dummy", testMessages)
	require.NoError(t, err)
	require.Equal(t, "pong", res.Text)
	require.Equal(t, "dummy", res.Meta.ModelID)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "dummy", gotModel)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, testMessages, gotBody.Messages)
}

func TestGenericHTTP_ReplyFieldFallback(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "reply wins", body: `{"reply":"r","content":"c","output":"o"}`, want: "r"},
		{name: "content next", body: `{"content":"c","output":"o"}`, want: "c"},
		{name: "output last", body: `{"output":"o"}`, want: "o"},
		{name: "empty reply skipped", body: `{"reply":"","output":"o"}`, want: "o"},
		{name: "none", body: `{"other":"x"}`, want: NoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			res, err := NewGenericHTTP(srv.Client()).Invoke(context.Background(), domain.ProviderConfig{Endpoint: srv.URL}, "", testMessages)
			require.NoError(t, err)
			require.Equal(t, tc.want, res.Text)
		})
	}
}

func TestGenericHTTP_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	_, err := NewGenericHTTP(srv.Client()).Invoke(context.Background(), domain.ProviderConfig{Endpoint: srv.URL}, "m", testMessages)
	var adapterErr *AdapterError
	require.True(t, errors.As(err, &adapterErr))
	require.Equal(t, http.StatusBadGateway, adapterErr.StatusCode)
	require.Equal(t, "upstream down", adapterErr.Body)
	require.Contains(t, err.Error(), "http provider error 502")
}

func TestGenericHTTP_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer srv.Close()

	_, err := NewGenericHTTP(srv.Client()).Invoke(context.Background(), domain.ProviderConfig{Endpoint: srv.URL}, "m", testMessages)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestGenericHTTP_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGenericHTTP(srv.Client()).Invoke(ctx, domain.ProviderConfig{Endpoint: srv.URL}, "m", testMessages)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

type stubAdapter struct{ name string }

func (s stubAdapter) Invoke(context.Context, domain.ProviderConfig, string, []domain.ChatMessage) (domain.DispatchResult, error) {
	return domain.DispatchResult{Text: s.name}, nil
}

func TestAdapters_For(t *testing.T) {
	a := Adapters{Hosted: stubAdapter{"hosted"}, GenericHTTP: stubAdapter{"generic"}}

	got, err := a.For(domain.ProviderHosted)
	require.NoError(t, err)
	require.Equal(t, stubAdapter{"hosted"}, got)

	got, err = a.For(domain.ProviderGenericHTTP)
	require.NoError(t, err)
	require.Equal(t, stubAdapter{"generic"}, got)

	_, err = a.For(domain.ProviderKind("grpc"))
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = Adapters{}.For(domain.ProviderHosted)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "no adapter"))
}
