package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"byom-relay/internal/domain"
	"byom-relay/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	userIDHeader      = "X-User-Id"
	maxBodyBytes      = 1 << 20
	aliveText         = "byom-relay alive"
)

type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type ProviderUseCase interface {
	Register(ctx context.Context, in usecase.RegisterInput) (usecase.RegisterOutput, error)
	Get(ctx context.Context, userID string) (domain.ProviderConfig, error)
	Delete(ctx context.Context, userID string) (usecase.DeleteOutput, error)
}

// Authenticator resolves an Authorization header value to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (string, error)
}

type Handler struct {
	chat      ChatUseCase
	providers ProviderUseCase
	auth      Authenticator
}

// NewHandler wires the boundary. auth may be nil, in which case the user id
// is taken from the request itself.
func NewHandler(chat ChatUseCase, providers ProviderUseCase, auth Authenticator) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat usecase must not be nil")
	}
	if providers == nil {
		return nil, errors.New("handler: provider usecase must not be nil")
	}
	return &Handler{chat: chat, providers: providers, auth: auth}, nil
}

// request is the transport-neutral view of an inbound call shared by the
// Lambda and net/http entry points.
type request struct {
	headers    http.Header
	body       []byte
	pathUserID string
}

type response struct {
	status      int
	contentType string
	body        []byte
}

type route func(ctx context.Context, req request) response

type chatRequest struct {
	Prompt       string                     `json:"prompt"`
	Messages     []domain.ChatMessage       `json:"messages"`
	Conversation []usecase.ConversationTurn `json:"conversation"`
	UserID       string                     `json:"userId"`
}

type chatResponse struct {
	OK    bool                `json:"ok"`
	Reply string              `json:"reply"`
	Meta  domain.DispatchMeta `json:"meta"`
}

type providerConfigBody struct {
	APIKey       string `json:"apiKey,omitempty"`
	Model        string `json:"model,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

type registerRequest struct {
	UserID   string              `json:"userId"`
	Provider string              `json:"provider"`
	Config   *providerConfigBody `json:"config"`
}

type registerResponse struct {
	OK        bool `json:"ok"`
	Persisted bool `json:"persisted"`
}

type providerView struct {
	Provider string             `json:"provider"`
	Config   providerConfigBody `json:"config"`
}

type providerResponse struct {
	OK       bool         `json:"ok"`
	Provider providerView `json:"provider"`
}

type deleteResponse struct {
	OK      bool `json:"ok"`
	Deleted bool `json:"deleted"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handle serves API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := http.Header{}
	for k, v := range event.Headers {
		headers.Set(k, v)
	}
	for k, vs := range event.MultiValueHeaders {
		if headers.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			headers.Add(k, v)
		}
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		body = decodeBase64(event.Body)
	}

	path := strings.TrimRight(event.Path, "/")
	if path == "" {
		path = "/"
	}
	req := request{headers: headers, body: body}
	if rest, ok := strings.CutPrefix(path, "/provider/"); ok && rest != "" {
		req.pathUserID = rest
		path = "/provider/{userId}"
	}

	var r route
	switch event.HTTPMethod + " " + path {
	case "GET /":
		r = h.alive
	case "GET /health", "GET /healthz":
		r = h.health
	case "POST /chat":
		r = h.chatRoute
	case "POST /register-provider":
		r = h.registerRoute
	case "GET /provider", "GET /provider/{userId}":
		r = h.getProviderRoute
	case "DELETE /provider":
		r = h.deleteProviderRoute
	default:
		r = notFound
	}

	res, corrID := h.serve(ctx, req, r, event.HTTPMethod, event.Path)
	return events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers: map[string]string{
			"Content-Type":    res.contentType,
			correlationHeader: corrID,
		},
		Body: string(res.body),
	}, nil
}

// serve runs r with a correlation id attached and logs the outcome.
func (h *Handler) serve(ctx context.Context, req request, r route, method, path string) (response, string) {
	corrID := strings.TrimSpace(req.headers.Get(correlationHeader))
	if corrID == "" {
		corrID = newCorrelationID()
	}
	res := r(ctx, req)

	level := slog.LevelInfo
	if res.status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "handler: request served",
		"method", method,
		"path", path,
		"status", res.status,
		"correlation_id", corrID,
	)
	return res, corrID
}

func (h *Handler) alive(context.Context, request) response {
	return response{status: http.StatusOK, contentType: "text/plain; charset=utf-8", body: []byte(aliveText)}
}

func (h *Handler) health(context.Context, request) response {
	return jsonResponse(http.StatusOK, okResponse{OK: true})
}

func notFound(context.Context, request) response {
	return jsonResponse(http.StatusNotFound, errorResponse{Error: "route not found", Code: string(usecase.ErrorNotFound)})
}

func (h *Handler) chatRoute(ctx context.Context, req request) response {
	var body chatRequest
	if err := decodeBody(req.body, &body); err != nil {
		return errorResult(usecase.ErrorInvalidInput, "request body must be a JSON object")
	}
	userID, res, ok := h.identify(ctx, req, body.UserID)
	if !ok {
		return res
	}

	out, err := h.chat.Chat(ctx, usecase.ChatInput{
		Prompt:       body.Prompt,
		Messages:     body.Messages,
		Conversation: body.Conversation,
		UserID:       userID,
		Headers: usecase.HeaderCredentials{
			Provider: req.headers.Get("X-LLM-Provider"),
			Model:    req.headers.Get("X-LLM-Model"),
			Secret:   req.headers.Get("X-LLM-API-Key"),
			Endpoint: req.headers.Get("X-LLM-Endpoint"),
		},
	})
	if err != nil {
		return mapError(err)
	}
	return jsonResponse(http.StatusOK, chatResponse{OK: true, Reply: out.Reply, Meta: out.Meta})
}

func (h *Handler) registerRoute(ctx context.Context, req request) response {
	var body registerRequest
	if err := decodeBody(req.body, &body); err != nil {
		return errorResult(usecase.ErrorInvalidInput, "request body must be a JSON object")
	}
	if body.Config == nil {
		return errorResult(usecase.ErrorInvalidInput, "config object is required")
	}
	userID, res, ok := h.identify(ctx, req, body.UserID)
	if !ok {
		return res
	}

	out, err := h.providers.Register(ctx, usecase.RegisterInput{
		UserID:   userID,
		Provider: body.Provider,
		Config: domain.ProviderConfig{
			Secret:       body.Config.APIKey,
			Model:        body.Config.Model,
			Endpoint:     body.Config.Endpoint,
			SystemPrompt: body.Config.SystemPrompt,
		},
	})
	if err != nil {
		return mapError(err)
	}
	return jsonResponse(http.StatusOK, registerResponse{OK: true, Persisted: out.Persisted})
}

func (h *Handler) getProviderRoute(ctx context.Context, req request) response {
	userID, res, ok := h.identify(ctx, req, "")
	if !ok {
		return res
	}
	cfg, err := h.providers.Get(ctx, userID)
	if err != nil {
		return mapError(err)
	}
	return jsonResponse(http.StatusOK, providerResponse{OK: true, Provider: providerView{
		Provider: string(cfg.Kind),
		Config: providerConfigBody{
			APIKey:       cfg.Secret,
			Model:        cfg.Model,
			Endpoint:     cfg.Endpoint,
			SystemPrompt: cfg.SystemPrompt,
		},
	}})
}

func (h *Handler) deleteProviderRoute(ctx context.Context, req request) response {
	var body struct {
		UserID string `json:"userId"`
	}
	_ = decodeBody(req.body, &body)
	userID, res, ok := h.identify(ctx, req, body.UserID)
	if !ok {
		return res
	}
	out, err := h.providers.Delete(ctx, userID)
	if err != nil {
		return mapError(err)
	}
	return jsonResponse(http.StatusOK, deleteResponse{OK: true, Deleted: out.Deleted})
}

// identify returns the caller's user id. With an authenticator configured the
// token subject is authoritative; otherwise the path, the body, then the
// X-User-Id header are consulted in that order.
func (h *Handler) identify(ctx context.Context, req request, bodyUserID string) (string, response, bool) {
	if h.auth != nil {
		userID, err := h.auth.Authenticate(ctx, req.headers.Get("Authorization"))
		if err != nil {
			slog.Warn("handler: authentication failed", "err", err)
			return "", errorResult(usecase.ErrorUnauthenticated, "unauthorized"), false
		}
		return userID, response{}, true
	}
	for _, candidate := range []string{req.pathUserID, bodyUserID, req.headers.Get(userIDHeader)} {
		if id := strings.TrimSpace(candidate); id != "" {
			return id, response{}, true
		}
	}
	return "", response{}, true
}

func decodeBody(raw []byte, v any) error {
	if len(raw) > maxBodyBytes {
		return errors.New("handler: body too large")
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func decodeBase64(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return []byte(s)
	}
	return b
}

func mapError(err error) response {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		slog.Error("handler: unexpected error", "err", err)
		return errorResult(usecase.ErrorInternal, messageFor(usecase.ErrorInternal, nil))
	}
	if ucErr.Code == usecase.ErrorInternal || ucErr.Code == usecase.ErrorUpstream {
		slog.Error("handler: request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	}
	return errorResult(ucErr.Code, messageFor(ucErr.Code, ucErr))
}

// messageFor returns caller-facing text. Upstream and internal failures stay
// generic so provider bodies and credentials never reach the response.
func messageFor(code usecase.ErrorCode, ucErr *usecase.Error) string {
	switch code {
	case usecase.ErrorMissingInput:
		return "Provide prompt, messages, or conversation."
	case usecase.ErrorNoProviderConfigured:
		return "No provider configured for this user. Register a provider first."
	case usecase.ErrorNotFound:
		return "No provider configured for this user."
	case usecase.ErrorUnauthenticated:
		return "unauthorized"
	case usecase.ErrorInvalidConfig, usecase.ErrorInvalidInput:
		if ucErr != nil && ucErr.Err != nil {
			return ucErr.Err.Error()
		}
		if ucErr != nil && ucErr.Reason == "missing_user_id" {
			return "userId is required"
		}
		return "invalid request"
	case usecase.ErrorUpstream:
		return "Provider request failed."
	default:
		return "Internal error."
	}
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorMissingInput, usecase.ErrorInvalidConfig, usecase.ErrorNoProviderConfigured:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorUnauthenticated:
		return http.StatusUnauthorized
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResult(code usecase.ErrorCode, msg string) response {
	return jsonResponse(statusFor(code), errorResponse{OK: false, Error: msg, Code: string(code)})
}

func jsonResponse(status int, v any) response {
	b, err := json.Marshal(v)
	if err != nil {
		return response{
			status:      http.StatusInternalServerError,
			contentType: "application/json",
			body:        []byte(`{"ok":false,"error":"Internal error.","code":"INTERNAL_ERROR"}`),
		}
	}
	return response{status: status, contentType: "application/json", body: b}
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
