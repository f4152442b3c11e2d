package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nmarques/breaking-news-service/internal/api"
	"github.com/nmarques/breaking-news-service/internal/domain"
	"github.com/nmarques/breaking-news-service/internal/service"
	"github.com/nmarques/breaking-news-service/internal/storage"
	"github.com/nmarques/breaking-news-service/internal/storage/inmemory"
	"github.com/nmarques/breaking-news-service/internal/storage/mongodb"
	"github.com/nmarques/breaking-news-service/internal/storage/postgres"
)

const (
	defaultPort     = "8080"
	shutdownTimeout = 10 * time.Second
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	storageType := flag.String("storage", "in-memory", "Storage type (in-memory, postgres or mongodb)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, *storageType, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize storage")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.WithError(err).Error("failed to close storage")
		}
	}()

	observer := service.NewCommentObserver()
	svc := service.NewNewsService(store, observer)
	router := api.NewRouter(log, store, svc, observer)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
}

func newStore(ctx context.Context, storageType string, log *logrus.Logger) (storage.Storage, error) {
	log.WithField("storage", storageType).Info("starting with storage backend")

	switch storageType {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, errors.New("DATABASE_URL must be set for postgres storage")
		}
		return postgres.New(dsn)
	case "mongodb":
		uri := os.Getenv("MONGODB_URI")
		if uri == "" {
			return nil, errors.New("MONGODB_URI must be set for mongodb storage")
		}
		database := os.Getenv("MONGODB_DATABASE")
		if database == "" {
			database = "breakingnews"
		}
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return mongodb.New(connectCtx, uri, database)
	case "in-memory":
		store := inmemory.New()
		if err := fillWithMockData(ctx, store); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.New("unknown storage type: " + storageType)
	}
}

// fillWithMockData seeds the in-memory backend so local runs have something
// to browse.
func fillWithMockData(ctx context.Context, store storage.Storage) error {
	alice, err := store.CreateUser(ctx, &domain.User{
		Name:      "Alice Martins",
		Username:  "alice",
		AvatarURL: "https://example.com/avatars/alice.png",
	})
	if err != nil {
		return err
	}
	bob, err := store.CreateUser(ctx, &domain.User{
		Name:      "Bob Ferreira",
		Username:  "bob",
		AvatarURL: "https://example.com/avatars/bob.png",
	})
	if err != nil {
		return err
	}

	first, err := store.CreateNews(ctx, &domain.News{
		Title:    "Service launched",
		Text:     "The breaking news backend is up and running.",
		Banner:   "https://example.com/banners/launch.png",
		AuthorID: alice.ID,
	})
	if err != nil {
		return err
	}
	if _, err := store.AddLike(ctx, first.ID, bob.ID, time.Now().UTC()); err != nil {
		return err
	}

	_, err = store.CreateNews(ctx, &domain.News{
		Title:    "Second post",
		Text:     "Another story for the feed.",
		Banner:   "https://example.com/banners/second.png",
		AuthorID: bob.ID,
	})
	return err
}
