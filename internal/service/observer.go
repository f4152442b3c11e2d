package service

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nmarques/breaking-news-service/internal/domain"
)

// CommentObserver fans new comments out to per-post subscribers. Channels
// are never closed by the observer; a subscriber leaves by calling its
// cancel function and draining on its own context.
type CommentObserver struct {
	mu sync.RWMutex
	//          map[newsID] map[subscriberID] channel
	subs map[string]map[string]chan *domain.Comment
}

func NewCommentObserver() *CommentObserver {
	return &CommentObserver{
		subs: make(map[string]map[string]chan *domain.Comment),
	}
}

// Subscribe registers a buffered channel for newsID. The returned cancel
// function unregisters it; calling cancel more than once is harmless.
func (o *CommentObserver) Subscribe(newsID string) (<-chan *domain.Comment, func()) {
	ch := make(chan *domain.Comment, 8)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[newsID] == nil {
		o.subs[newsID] = make(map[string]chan *domain.Comment)
	}
	o.subs[newsID][subID] = ch
	o.mu.Unlock()

	cancel := func() {
		o.mu.Lock()
		if postSubs, ok := o.subs[newsID]; ok {
			delete(postSubs, subID)
			if len(postSubs) == 0 {
				delete(o.subs, newsID)
			}
		}
		o.mu.Unlock()
	}
	return ch, cancel
}

// Notify delivers the comment to every subscriber of newsID. Sends are
// non-blocking: a subscriber that stopped reading loses messages instead of
// stalling the mutation path.
func (o *CommentObserver) Notify(newsID string, comment *domain.Comment) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ch := range o.subs[newsID] {
		select {
		case ch <- comment:
		default:
		}
	}
}
