package engine

import (
	"log"
	"sync"

	"campus-forum/internal/cache"
	"campus-forum/internal/comments"
	"campus-forum/internal/engine/actors"
	"campus-forum/internal/session"
	"campus-forum/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Engine routes per-post feed work onto FeedActors, spawning one the first
// time a post is touched. Each actor serializes every cache mutation for
// its post through its mailbox.
type Engine struct {
	system     *actor.ActorSystem
	reconciler *comments.Reconciler
	store      cache.Store
	metrics    *utils.MetricsCollector

	mu      sync.Mutex
	feeds   map[string]*actor.PID
	cancels map[string]func()
}

func NewEngine(system *actor.ActorSystem, api comments.API, store cache.Store, sess *session.Session, metrics *utils.MetricsCollector) *Engine {
	return &Engine{
		system:     system,
		reconciler: comments.NewReconciler(api, store, sess, metrics),
		store:      store,
		metrics:    metrics,
		feeds:      make(map[string]*actor.PID),
		cancels:    make(map[string]func()),
	}
}

// FeedFor returns the PID of the post's feed actor, spawning it on first
// use and wiring a store watcher that turns invalidation events into
// refetches.
func (e *Engine) FeedFor(postID string) *actor.PID {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pid, ok := e.feeds[postID]; ok {
		return pid
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewFeedActor(postID, e.reconciler, e.store)
	})
	pid := e.system.Root.Spawn(props)
	e.feeds[postID] = pid

	events, cancel := e.store.Subscribe(postID)
	e.cancels[postID] = cancel
	go e.watchInvalidations(postID, pid, events)

	log.Printf("Engine: spawned feed actor for post %s", postID)
	return pid
}

// Reconciler exposes the shared reconciler for callers that sit on the
// actor's own goroutine model already (the simulator drives it directly).
func (e *Engine) Reconciler() *comments.Reconciler {
	return e.reconciler
}

// Stop tears down all feed actors and store subscriptions.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for postID, cancel := range e.cancels {
		cancel()
		delete(e.cancels, postID)
	}
	for postID, pid := range e.feeds {
		e.system.Root.Stop(pid)
		delete(e.feeds, postID)
	}
}

func (e *Engine) watchInvalidations(postID string, pid *actor.PID, events <-chan cache.Event) {
	for event := range events {
		if event.Kind == cache.EventInvalidated {
			e.system.Root.Send(pid, &actors.RefreshMsg{})
		}
	}
}
