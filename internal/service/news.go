package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nmarques/breaking-news-service/internal/domain"
	"github.com/nmarques/breaking-news-service/internal/storage"
)

// LikeResult reports which side of the toggle was applied.
type LikeResult string

const (
	LikeAdded   LikeResult = "added"
	LikeRemoved LikeResult = "removed"
)

// NewsService holds the mutation rules of the news aggregate. It never
// performs a read-then-write for likes or comments; all mutual exclusion is
// delegated to the storage backend's conditional updates.
type NewsService struct {
	store    storage.Storage
	observer *CommentObserver
}

func NewNewsService(store storage.Storage, observer *CommentObserver) *NewsService {
	return &NewsService{store: store, observer: observer}
}

// Create persists a new post authored by authorID.
func (s *NewsService) Create(ctx context.Context, authorID, title, text, banner string) (*domain.News, error) {
	switch {
	case strings.TrimSpace(title) == "":
		return nil, &domain.ValidationError{Field: "title", Reason: "required"}
	case strings.TrimSpace(text) == "":
		return nil, &domain.ValidationError{Field: "text", Reason: "required"}
	case strings.TrimSpace(banner) == "":
		return nil, &domain.ValidationError{Field: "banner", Reason: "required"}
	}
	news := &domain.News{
		Title:    title,
		Text:     text,
		Banner:   banner,
		AuthorID: authorID,
	}
	return s.store.CreateNews(ctx, news)
}

// Feed returns one newest-first page and the unfiltered total. An empty page
// is a valid outcome, not an error.
func (s *NewsService) Feed(ctx context.Context, offset, limit int) ([]*domain.News, int, error) {
	return s.store.ListNews(ctx, offset, limit)
}

func (s *NewsService) Top(ctx context.Context) (*domain.News, error) {
	return s.store.TopNews(ctx)
}

func (s *NewsService) Get(ctx context.Context, id string) (*domain.News, error) {
	return s.store.GetNewsByID(ctx, id)
}

func (s *NewsService) SearchByTitle(ctx context.Context, fragment string) ([]*domain.News, error) {
	return s.store.SearchNewsByTitle(ctx, fragment)
}

func (s *NewsService) ByAuthor(ctx context.Context, userID string) ([]*domain.News, error) {
	return s.store.ListNewsByAuthor(ctx, userID)
}

// Update applies a partial update. The storage layer matches id and author
// in the same conditional update, so a non-owner can never alter the post,
// racily or otherwise.
func (s *NewsService) Update(ctx context.Context, id, actingUserID string, upd domain.NewsUpdate) error {
	if upd.Empty() {
		return &domain.ValidationError{Field: "update", Reason: "at least one field is required"}
	}
	matched, err := s.store.UpdateNews(ctx, id, actingUserID, upd)
	if err != nil {
		return err
	}
	if !matched {
		return s.explainUnmatched(ctx, id)
	}
	return nil
}

// Delete removes the post and everything embedded in it.
func (s *NewsService) Delete(ctx context.Context, id, actingUserID string) error {
	deleted, err := s.store.DeleteNews(ctx, id, actingUserID)
	if err != nil {
		return err
	}
	if !deleted {
		return s.explainUnmatched(ctx, id)
	}
	return nil
}

// ToggleLike adds the user's like, or removes it when already present. The
// add is guarded on the user being absent from the like set, so two
// concurrent toggles by the same user can never both report LikeAdded.
func (s *NewsService) ToggleLike(ctx context.Context, newsID, actingUserID string) (LikeResult, error) {
	// Existence first, so a missing post is a distinct outcome from "like
	// already absent".
	if _, err := s.store.GetNewsByID(ctx, newsID); err != nil {
		return "", err
	}

	added, err := s.store.AddLike(ctx, newsID, actingUserID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if added {
		return LikeAdded, nil
	}

	if _, err := s.store.RemoveLike(ctx, newsID, actingUserID); err != nil {
		return "", err
	}
	return LikeRemoved, nil
}

// AddComment appends a comment with a fresh uuid and notifies stream
// subscribers.
func (s *NewsService) AddComment(ctx context.Context, newsID, actingUserID, text string) (*domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &domain.ValidationError{Field: "comment", Reason: "required"}
	}
	comment := domain.Comment{
		ID:        uuid.NewString(),
		UserID:    actingUserID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	ok, err := s.store.AddComment(ctx, newsID, comment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.observer != nil {
		s.observer.Notify(newsID, &comment)
	}
	return &comment, nil
}

// DeleteComment removes the comment only when actingUserID authored it. The
// author match is part of the atomic pull; a failed pull is disambiguated
// afterwards into ErrNotFound or ErrNotOwner.
func (s *NewsService) DeleteComment(ctx context.Context, newsID, commentID, actingUserID string) error {
	removed, err := s.store.RemoveComment(ctx, newsID, commentID, actingUserID)
	if err != nil {
		return err
	}
	if removed {
		return nil
	}

	news, err := s.store.GetNewsByID(ctx, newsID)
	if err != nil {
		return err
	}
	for _, c := range news.Comments {
		if c.ID == commentID {
			return domain.ErrNotOwner
		}
	}
	return domain.ErrNotFound
}

// IsOwner is the ownership predicate applied before owner-only mutations.
func IsOwner(actingUserID, resourceOwnerID string) bool {
	return actingUserID != "" && actingUserID == resourceOwnerID
}

// explainUnmatched turns a failed conditional match into the precise error:
// the post is either gone or owned by someone else.
func (s *NewsService) explainUnmatched(ctx context.Context, id string) error {
	_, err := s.store.GetNewsByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrNotOwner
}
