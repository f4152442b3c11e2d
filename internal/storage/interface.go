package storage

import (
	"context"
	"time"

	"github.com/nmarques/breaking-news-service/internal/domain"
)

// Storage is the contract every backend implements. Boolean results report
// whether the conditional match of a mutation held; the condition and the
// mutation are always executed as one atomic operation inside the backend,
// never as a read followed by a write.
type Storage interface {
	CreateNews(ctx context.Context, news *domain.News) (*domain.News, error)
	GetNewsByID(ctx context.Context, id string) (*domain.News, error)

	// ListNews returns one newest-first page plus the unfiltered total,
	// which callers use for pagination cursor math.
	ListNews(ctx context.Context, offset, limit int) ([]*domain.News, int, error)
	TopNews(ctx context.Context) (*domain.News, error)
	SearchNewsByTitle(ctx context.Context, fragment string) ([]*domain.News, error)
	ListNewsByAuthor(ctx context.Context, userID string) ([]*domain.News, error)

	// UpdateNews applies the non-nil fields of upd to the post matching
	// both id and authorID. matched is false when no such post exists,
	// which conflates "missing" with "not the owner"; callers disambiguate
	// with GetNewsByID.
	UpdateNews(ctx context.Context, id, authorID string, upd domain.NewsUpdate) (matched bool, err error)
	DeleteNews(ctx context.Context, id, authorID string) (deleted bool, err error)

	// AddLike appends a like only if userID is absent from the post's like
	// set. added is false when the user already liked the post or the post
	// does not exist.
	AddLike(ctx context.Context, newsID, userID string, at time.Time) (added bool, err error)
	RemoveLike(ctx context.Context, newsID, userID string) (removed bool, err error)

	AddComment(ctx context.Context, newsID string, comment domain.Comment) (bool, error)
	// RemoveComment pulls the comment matching both commentID and userID,
	// so only the comment's author can remove it.
	RemoveComment(ctx context.Context, newsID, commentID, userID string) (removed bool, err error)

	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// GetUsersByIDs is the dataloader batch entry point: one backend query
	// for all requested ids. Unknown ids are simply absent from the map.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)

	Close(ctx context.Context) error
}
