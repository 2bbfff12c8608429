package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router exposes the same routes as Handle over net/http.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", h.adapt(h.alive))
	r.Get("/health", h.adapt(h.health))
	r.Get("/healthz", h.adapt(h.health))
	r.Post("/chat", h.adapt(h.chatRoute))
	r.Post("/register-provider", h.adapt(h.registerRoute))
	r.Get("/provider", h.adapt(h.getProviderRoute))
	r.Get("/provider/{userId}", h.adapt(h.getProviderRoute))
	r.Delete("/provider", h.adapt(h.deleteProviderRoute))
	r.NotFound(h.adapt(notFound))
	return r
}

func (h *Handler) adapt(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			body = nil
		}
		req := request{
			headers:    r.Header,
			body:       body,
			pathUserID: chi.URLParam(r, "userId"),
		}

		res, corrID := h.serve(r.Context(), req, rt, r.Method, r.URL.Path)
		w.Header().Set("Content-Type", res.contentType)
		w.Header().Set(correlationHeader, corrID)
		w.WriteHeader(res.status)
		_, _ = w.Write(res.body)
	}
}
