package api

import (
	"context"

	"github.com/graph-gophers/dataloader"

	loaders "github.com/nmarques/breaking-news-service/internal/dataloader"
	"github.com/nmarques/breaking-news-service/internal/domain"
)

// userView is the only shape in which an author ever leaves the service;
// the internal user id is not serialized.
type userView struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type newsView struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Banner   string           `json:"banner"`
	Likes    []domain.Like    `json:"likes"`
	Comments []domain.Comment `json:"comments"`
	User     *userView        `json:"user"`
}

type feedResponse struct {
	NextURL     *string    `json:"nextUrl"`
	PreviousURL *string    `json:"previousUrl"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
	Total       int        `json:"total"`
	Results     []newsView `json:"results"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toNewsView(n *domain.News, users map[string]*domain.User) newsView {
	view := newsView{
		ID:       n.ID,
		Title:    n.Title,
		Text:     n.Text,
		Banner:   n.Banner,
		Likes:    n.Likes,
		Comments: n.Comments,
	}
	if u, ok := users[n.AuthorID]; ok && u != nil {
		view.User = &userView{Name: u.Name, Username: u.Username, Avatar: u.AvatarURL}
	}
	return view
}

func toNewsViews(items []*domain.News, users map[string]*domain.User) []newsView {
	views := make([]newsView, 0, len(items))
	for _, n := range items {
		views = append(views, toNewsView(n, users))
	}
	return views
}

// resolveAuthors loads the author projection for every post through the
// request's user loader. All Load calls are issued before any thunk is
// resolved, so the loader batches them into one store query.
func resolveAuthors(ctx context.Context, items []*domain.News) map[string]*domain.User {
	l := loaders.For(ctx)
	if l == nil {
		return nil
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, n := range items {
		if !seen[n.AuthorID] {
			seen[n.AuthorID] = true
			ids = append(ids, n.AuthorID)
		}
	}

	thunks := make([]dataloader.Thunk, len(ids))
	for i, id := range ids {
		thunks[i] = l.UserByID.Load(ctx, dataloader.StringKey(id))
	}

	users := make(map[string]*domain.User, len(ids))
	for i, thunk := range thunks {
		v, err := thunk()
		if err != nil || v == nil {
			continue
		}
		if u, ok := v.(*domain.User); ok && u != nil {
			users[ids[i]] = u
		}
	}
	return users
}
