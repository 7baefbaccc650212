package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/morphlabs/roomctx/internal/api"
	"github.com/morphlabs/roomctx/internal/api/handlers"
	"github.com/morphlabs/roomctx/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	ContextHandler  *handlers.ContextHandler
	ChatHandler     *handlers.ChatHandler
	SummaryHandler  *handlers.SummaryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/rooms/{roomID}", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{documentID}/download", cfg.DocumentHandler.Download)
			r.Delete("/{documentID}", cfg.DocumentHandler.Delete)
		})

		r.Post("/retrieve", cfg.ContextHandler.Retrieve)

		r.Post("/chat", cfg.ChatHandler.Send)
		r.Get("/chat/history", cfg.ChatHandler.History)

		r.Post("/summary", cfg.SummaryHandler.Summarize)
		r.Get("/summary/context", cfg.SummaryHandler.RoomContext)
	})

	return r
}
