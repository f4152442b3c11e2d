package inmemory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nmarques/breaking-news-service/internal/domain"
)

// Store keeps everything in process memory behind a single RWMutex. It is
// the backend used by the tests and for local development.
type Store struct {
	mu    sync.RWMutex
	news  map[string]*domain.News
	order []string // news ids in creation order, oldest first
	users map[string]*domain.User
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		news:  make(map[string]*domain.News),
		users: make(map[string]*domain.User),
	}
}

// === News ===

func (s *Store) CreateNews(ctx context.Context, news *domain.News) (*domain.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	news.ID = uuid.NewString()
	news.CreatedAt = time.Now().UTC()
	if news.Likes == nil {
		news.Likes = []domain.Like{}
	}
	if news.Comments == nil {
		news.Comments = []domain.Comment{}
	}
	s.news[news.ID] = cloneNews(news)
	s.order = append(s.order, news.ID)
	return news, nil
}

func (s *Store) GetNewsByID(ctx context.Context, id string) (*domain.News, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.news[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneNews(n), nil
}

func (s *Store) ListNews(ctx context.Context, offset, limit int) ([]*domain.News, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.newestFirst()
	total := len(all)

	if offset >= total {
		return []*domain.News{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *Store) TopNews(ctx context.Context) (*domain.News, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil, domain.ErrNotFound
	}
	return cloneNews(s.news[s.order[len(s.order)-1]]), nil
}

func (s *Store) SearchNewsByTitle(ctx context.Context, fragment string) ([]*domain.News, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(fragment)
	result := []*domain.News{}
	for _, n := range s.newestFirst() {
		if strings.Contains(strings.ToLower(n.Title), needle) {
			result = append(result, n)
		}
	}
	return result, nil
}

func (s *Store) ListNewsByAuthor(ctx context.Context, userID string) ([]*domain.News, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.News{}
	for _, n := range s.newestFirst() {
		if n.AuthorID == userID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (s *Store) UpdateNews(ctx context.Context, id, authorID string, upd domain.NewsUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.news[id]
	if !ok || n.AuthorID != authorID {
		return false, nil
	}
	if upd.Title != nil {
		n.Title = *upd.Title
	}
	if upd.Text != nil {
		n.Text = *upd.Text
	}
	if upd.Banner != nil {
		n.Banner = *upd.Banner
	}
	return true, nil
}

func (s *Store) DeleteNews(ctx context.Context, id, authorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.news[id]
	if !ok || n.AuthorID != authorID {
		return false, nil
	}
	delete(s.news, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// === Likes ===

func (s *Store) AddLike(ctx context.Context, newsID, userID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.news[newsID]
	if !ok {
		return false, nil
	}
	for _, l := range n.Likes {
		if l.UserID == userID {
			return false, nil
		}
	}
	n.Likes = append(n.Likes, domain.Like{UserID: userID, CreatedAt: at})
	return true, nil
}

func (s *Store) RemoveLike(ctx context.Context, newsID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.news[newsID]
	if !ok {
		return false, nil
	}
	for i, l := range n.Likes {
		if l.UserID == userID {
			n.Likes = append(n.Likes[:i], n.Likes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// === Comments ===

func (s *Store) AddComment(ctx context.Context, newsID string, comment domain.Comment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.news[newsID]
	if !ok {
		return false, nil
	}
	n.Comments = append(n.Comments, comment)
	return true, nil
}

func (s *Store) RemoveComment(ctx context.Context, newsID, commentID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.news[newsID]
	if !ok {
		return false, nil
	}
	for i, c := range n.Comments {
		if c.ID == commentID && c.UserID == userID {
			n.Comments = append(n.Comments[:i], n.Comments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	} else if _, ok := s.users[user.ID]; ok {
		return nil, domain.ErrAlreadyExists
	}
	cp := *user
	s.users[user.ID] = &cp
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			result[id] = &cp
		}
	}
	return result, nil
}

func (s *Store) Close(ctx context.Context) error { return nil }

// newestFirst returns clones of all posts, most recent creation first.
// Callers must hold at least a read lock.
func (s *Store) newestFirst() []*domain.News {
	all := make([]*domain.News, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		all = append(all, cloneNews(s.news[s.order[i]]))
	}
	return all
}

// cloneNews copies the aggregate so readers never share slices with the
// copy being mutated under the lock.
func cloneNews(n *domain.News) *domain.News {
	cp := *n
	cp.Likes = append([]domain.Like{}, n.Likes...)
	cp.Comments = append([]domain.Comment{}, n.Comments...)
	return &cp
}
