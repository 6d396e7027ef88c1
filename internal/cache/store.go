package cache

import (
	"log"
	"sync"

	"campus-forum/internal/models"
)

// EventKind identifies what happened to a cached comment list.
type EventKind string

const (
	EventSet         EventKind = "set"
	EventInvalidated EventKind = "invalidated"
)

// Event is delivered to subscribers when a post's cached list changes.
type Event struct {
	PostID string
	Kind   EventKind
}

// Store is the per-post comment cache contract. Implementations must hand
// out private copies on Get so callers can never mutate a cached list in
// place; every write replaces the whole value.
type Store interface {
	// Get returns a copy of the cached list for a post. The second return
	// is false when the post has no cached entry (never fetched, or
	// invalidated).
	Get(postID string) ([]models.Comment, bool)

	// Set replaces the cached list for a post and notifies subscribers.
	Set(postID string, comments []models.Comment)

	// Invalidate drops the cached list for a post, marking it stale so the
	// next reader refetches, and notifies subscribers.
	Invalidate(postID string)

	// Subscribe registers for change events on a post. The returned cancel
	// function releases the subscription; events that would block are
	// dropped rather than stalling a writer.
	Subscribe(postID string) (<-chan Event, func())
}

const subscriberBuffer = 8

// MemoryStore is the in-process Store used by a single client instance.
type MemoryStore struct {
	mu          sync.RWMutex
	lists       map[string][]models.Comment
	subscribers map[string]map[chan Event]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists:       make(map[string][]models.Comment),
		subscribers: make(map[string]map[chan Event]bool),
	}
}

func (s *MemoryStore) Get(postID string) ([]models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.lists[postID]
	if !ok {
		return nil, false
	}
	return models.CloneComments(list), true
}

func (s *MemoryStore) Set(postID string, comments []models.Comment) {
	s.mu.Lock()
	s.lists[postID] = models.CloneComments(comments)
	s.mu.Unlock()

	s.notify(Event{PostID: postID, Kind: EventSet})
}

func (s *MemoryStore) Invalidate(postID string) {
	s.mu.Lock()
	delete(s.lists, postID)
	s.mu.Unlock()

	s.notify(Event{PostID: postID, Kind: EventInvalidated})
}

func (s *MemoryStore) Subscribe(postID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	if _, ok := s.subscribers[postID]; !ok {
		s.subscribers[postID] = make(map[chan Event]bool)
	}
	s.subscribers[postID][ch] = true
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if subs, ok := s.subscribers[postID]; ok {
			if _, subOk := subs[ch]; subOk {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(s.subscribers, postID)
				}
			}
		}
		s.mu.Unlock()
	}

	return ch, cancel
}

func (s *MemoryStore) notify(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers[event.PostID] {
		select {
		case ch <- event:
		default:
			log.Printf("Cache event buffer full for post %s, dropping %s event", event.PostID, event.Kind)
		}
	}
}
