package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	loaders "github.com/nmarques/breaking-news-service/internal/dataloader"
	"github.com/nmarques/breaking-news-service/internal/service"
	"github.com/nmarques/breaking-news-service/internal/storage"
)

// NewRouter assembles the full HTTP surface: chi middleware, the
// request-scoped user loader and the news routes.
func NewRouter(log *logrus.Logger, store storage.Storage, svc *service.NewsService, observer *service.CommentObserver) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(loaders.Middleware(store))

	h := NewNewsHandler(svc, observer, log)
	r.Route("/api/v1/news", h.Routes)
	return r
}
