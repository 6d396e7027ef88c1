package simulator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"campus-forum/internal/models"
	"campus-forum/internal/utils"

	"github.com/google/uuid"
)

// flakyBackend is an in-process stand-in for the forum backend. It keeps
// the authoritative comment lists, injects latency and failures at the
// configured rates, and lets the simulator check reconciler state against
// server truth at the end of a run.
type flakyBackend struct {
	mu       sync.Mutex
	comments map[string][]models.Comment // postID -> authoritative list
	liked    map[string]map[string]bool  // commentID -> userID -> liked

	failureRate float64
	authFailPct float64
	latency     time.Duration
	rng         *rand.Rand
}

func newFlakyBackend(failureRate, authFailPct float64, latency time.Duration) *flakyBackend {
	return &flakyBackend{
		comments:    make(map[string][]models.Comment),
		liked:       make(map[string]map[string]bool),
		failureRate: failureRate,
		authFailPct: authFailPct,
		latency:     latency,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// userBackend binds the shared backend to one simulated user's identity,
// satisfying the reconciler's API contract per user.
type userBackend struct {
	backend *flakyBackend
	user    models.Author
}

func (b *flakyBackend) forUser(user models.Author) *userBackend {
	return &userBackend{backend: b, user: user}
}

func (u *userBackend) CreateComment(ctx context.Context, postID, content string, parentID *string) (models.Comment, error) {
	return u.backend.createComment(ctx, u.user, postID, content, parentID)
}

func (u *userBackend) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	return u.backend.getComments(ctx, postID, u.user)
}

func (u *userBackend) ToggleReaction(ctx context.Context, targetID string, target models.TargetType, reaction models.ReactionType) error {
	return u.backend.toggleReaction(ctx, u.user, targetID)
}

func (b *flakyBackend) createComment(ctx context.Context, author models.Author, postID, content string, parentID *string) (models.Comment, error) {
	if err := b.simulateWire(ctx); err != nil {
		return models.Comment{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	comment := models.Comment{
		ID:        uuid.NewString(),
		Content:   content,
		Author:    author,
		PostID:    postID,
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}
	b.comments[postID] = append(b.comments[postID], comment)
	return comment, nil
}

func (b *flakyBackend) getComments(ctx context.Context, postID string, viewer models.Author) ([]models.Comment, error) {
	if err := b.simulateWire(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := models.CloneComments(b.comments[postID])
	for i := range list {
		list[i].ReactionCount = b.reactionCount(list[i].ID)
		list[i].IsLiked = b.liked[list[i].ID][viewer.ID]
	}
	return list, nil
}

func (b *flakyBackend) toggleReaction(ctx context.Context, user models.Author, commentID string) error {
	if err := b.simulateWire(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.liked[commentID] == nil {
		b.liked[commentID] = make(map[string]bool)
	}
	b.liked[commentID][user.ID] = !b.liked[commentID][user.ID]
	return nil
}

func (b *flakyBackend) reactionCount(commentID string) int {
	count := 0
	for _, on := range b.liked[commentID] {
		if on {
			count++
		}
	}
	return count
}

func (b *flakyBackend) simulateWire(ctx context.Context) error {
	if b.latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.latency):
		}
	}

	b.mu.Lock()
	roll := b.rng.Float64()
	b.mu.Unlock()

	if roll < b.failureRate {
		if roll < b.failureRate*b.authFailPct {
			return utils.NewUnauthorizedError("session expired")
		}
		return utils.NewNetworkError("injected backend failure", nil)
	}
	return nil
}
