package comments

import (
	"context"
	"log"
	"time"

	"campus-forum/internal/cache"
	"campus-forum/internal/models"
	"campus-forum/internal/session"
	"campus-forum/internal/utils"
)

// API is the outbound contract the reconciler needs from the backend
// client. Implemented by api.Client; tests inject stubs.
type API interface {
	CreateComment(ctx context.Context, postID, content string, parentID *string) (models.Comment, error)
	GetComments(ctx context.Context, postID string) ([]models.Comment, error)
	ToggleReaction(ctx context.Context, targetID string, target models.TargetType, reaction models.ReactionType) error
}

// Reconciler owns the transient optimistic window for a post's comment
// list: it applies mutations to the cache synchronously at call time, then
// reconciles with the network outcome: invalidate-and-refetch on success,
// snapshot restore on failure. It never validates content; callers strip
// markup and reject empty input before invoking it.
type Reconciler struct {
	api     API
	store   cache.Store
	session *session.Session
	metrics *utils.MetricsCollector

	// Overridable for deterministic tests.
	now       func() time.Time
	newTempID func() string
}

func NewReconciler(api API, store cache.Store, sess *session.Session, metrics *utils.MetricsCollector) *Reconciler {
	return &Reconciler{
		api:       api,
		store:     store,
		session:   sess,
		metrics:   metrics,
		now:       time.Now,
		newTempID: models.NewTempID,
	}
}

// SubmitComment optimistically inserts a comment or reply for postID and
// kicks off the network call. The cache mutation is complete before
// SubmitComment returns; the returned handle resolves when the server
// answers. The caller-supplied parentID goes to the server untouched;
// re-parenting onto the effective root is a display-only concern.
func (r *Reconciler) SubmitComment(ctx context.Context, postID, content string, parentID *string) *Submission {
	snapshot, hadList := r.store.Get(postID)

	effectiveParent := resolveEffectiveParent(snapshot, parentID)
	if parentID != nil && effectiveParent == nil {
		log.Printf("Parent comment %s not in cache for post %s, inserting as root", *parentID, postID)
	}

	author, _ := r.session.User()

	entry := models.Comment{
		ID:            r.newTempID(),
		Content:       content,
		Author:        author,
		PostID:        postID,
		ParentID:      effectiveParent,
		CreatedAt:     r.now().UTC(),
		ReactionCount: 0,
		IsLiked:       false,
	}

	r.store.Set(postID, insertOptimistic(models.CloneComments(snapshot), entry))
	r.metrics.IncrementSubmissions()

	sub := newSubmission(entry.ID)
	go r.resolveSubmission(ctx, sub, postID, content, parentID, snapshot, hadList)
	return sub
}

func (r *Reconciler) resolveSubmission(ctx context.Context, sub *Submission, postID, content string, parentID *string, snapshot []models.Comment, hadList bool) {
	_, err := r.api.CreateComment(ctx, postID, content, parentID)
	if err != nil {
		appErr := utils.AsAppError(err)
		log.Printf("Comment submission failed for post %s, rolling back: %v", postID, appErr)

		// Restore the pre-submission state exactly; no partial merge. A
		// post that had no cached list goes back to uncached.
		if hadList {
			r.store.Set(postID, snapshot)
		} else {
			r.store.Invalidate(postID)
		}
		r.metrics.IncrementRollbacks()
		sub.resolve(StateRolledBack, appErr)
		return
	}

	// The authoritative refetch supersedes the temporary entry; the temp
	// id must never outlive this point.
	r.store.Invalidate(postID)
	r.metrics.IncrementConfirmed()
	sub.resolve(StateConfirmed, nil)
}

// ToggleLike flips the caller's like on a cached comment. The flip reads
// the entry's current cached state at mutation time, so rapid repeated
// toggles cannot compound. Without an active session it fails fast with
// UNAUTHORIZED and touches nothing.
func (r *Reconciler) ToggleLike(ctx context.Context, commentID, postID string) (*Toggle, error) {
	if !r.session.Active() {
		return nil, utils.NewUnauthorizedError("sign in to react to comments")
	}

	list, ok := r.store.Get(postID)
	if !ok {
		return nil, utils.NewAppError(utils.ErrStaleReference, "no cached comments for post "+postID, nil)
	}

	idx := models.FindComment(list, commentID)
	if idx < 0 {
		return nil, utils.NewAppError(utils.ErrStaleReference, "comment "+commentID+" not in cache for post "+postID, nil)
	}

	// Point snapshot of the one entry, for the point rollback.
	prev := list[idx]

	updated := prev
	if updated.IsLiked {
		updated.IsLiked = false
		updated.ReactionCount--
	} else {
		updated.IsLiked = true
		updated.ReactionCount++
	}
	list[idx] = updated
	r.store.Set(postID, list)
	r.metrics.IncrementToggles()

	toggle := newToggle(commentID)
	go r.resolveToggle(ctx, toggle, postID, commentID, prev)
	return toggle, nil
}

func (r *Reconciler) resolveToggle(ctx context.Context, toggle *Toggle, postID, commentID string, prev models.Comment) {
	err := r.api.ToggleReaction(ctx, commentID, models.CommentTarget, models.ReactionLike)
	if err != nil {
		appErr := utils.AsAppError(err)
		log.Printf("Reaction toggle failed for comment %s, reverting entry: %v", commentID, appErr)

		// Point rollback: restore only this entry, leaving later mutations
		// to the rest of the list intact.
		if current, ok := r.store.Get(postID); ok {
			if replaceComment(current, commentID, prev) {
				r.store.Set(postID, current)
			}
		}
		r.metrics.IncrementRollbacks()
		r.store.Invalidate(postID)
		toggle.resolve(StateRolledBack, appErr)
		return
	}

	// Re-validate regardless of outcome; the optimistic flip is usually
	// right but the refetch keeps counters eventually consistent.
	r.store.Invalidate(postID)
	toggle.resolve(StateConfirmed, nil)
}

// Refresh replaces the cached list for a post with the authoritative one.
func (r *Reconciler) Refresh(ctx context.Context, postID string) ([]models.Comment, error) {
	list, err := r.api.GetComments(ctx, postID)
	if err != nil {
		return nil, utils.AsAppError(err)
	}
	r.store.Set(postID, list)
	return list, nil
}

// Comments returns the cached list for a post, refetching when the cache
// is stale.
func (r *Reconciler) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	if list, ok := r.store.Get(postID); ok {
		return list, nil
	}
	return r.Refresh(ctx, postID)
}
