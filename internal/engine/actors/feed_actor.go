package actors

import (
	stdctx "context"
	"log"

	"campus-forum/internal/cache"
	"campus-forum/internal/comments"
	"campus-forum/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Message types for FeedActor
type (
	SubmitCommentMsg struct {
		Content  string  `json:"content"`
		ParentID *string `json:"parentId,omitempty"`
	}

	ToggleLikeMsg struct {
		CommentID string `json:"commentId"`
	}

	GetCommentsMsg struct{}

	RefreshMsg struct{}

	loadCommentsMsg struct{}
)

// FeedActor owns the comment feed of a single post. Every mutation for the
// post funnels through its mailbox, so the optimistic insert, the rollback
// and the reads each run as one atomic step relative to each other.
type FeedActor struct {
	postID     string
	reconciler *comments.Reconciler
	store      cache.Store
}

func NewFeedActor(postID string, reconciler *comments.Reconciler, store cache.Store) actor.Actor {
	return &FeedActor{
		postID:     postID,
		reconciler: reconciler,
		store:      store,
	}
}

func (a *FeedActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("FeedActor started for post %s with PID %v", a.postID, context.Self())
		context.Send(context.Self(), &loadCommentsMsg{})

	case *loadCommentsMsg:
		a.handleLoadComments()

	case *SubmitCommentMsg:
		a.handleSubmitComment(context, msg)

	case *ToggleLikeMsg:
		a.handleToggleLike(context, msg)

	case *GetCommentsMsg:
		a.handleGetComments(context)

	case *RefreshMsg:
		a.handleRefresh(context)

	default:
		log.Printf("FeedActor(%s): Unknown message type %T", a.postID, msg)
	}
}

func (a *FeedActor) handleLoadComments() {
	if _, ok := a.store.Get(a.postID); ok {
		return
	}
	if _, err := a.reconciler.Refresh(stdctx.Background(), a.postID); err != nil {
		log.Printf("FeedActor(%s): initial comment load failed: %v", a.postID, err)
	}
}

func (a *FeedActor) handleSubmitComment(context actor.Context, msg *SubmitCommentMsg) {
	// The insert happens synchronously inside SubmitComment, before the
	// actor picks up the next mailbox message; only the network resolution
	// runs outside the mailbox.
	sub := a.reconciler.SubmitComment(stdctx.Background(), a.postID, msg.Content, msg.ParentID)
	context.Respond(sub)
}

func (a *FeedActor) handleToggleLike(context actor.Context, msg *ToggleLikeMsg) {
	toggle, err := a.reconciler.ToggleLike(stdctx.Background(), msg.CommentID, a.postID)
	if err != nil {
		if utils.IsAuthError(err) {
			// Auth failures short-circuit before any mutation; no rollback
			// was started and none is owed.
			context.Respond(err)
			return
		}
		context.Respond(utils.AsAppError(err))
		return
	}
	context.Respond(toggle)
}

func (a *FeedActor) handleGetComments(context actor.Context) {
	list, err := a.reconciler.Comments(stdctx.Background(), a.postID)
	if err != nil {
		context.Respond(utils.AsAppError(err))
		return
	}
	context.Respond(list)
}

func (a *FeedActor) handleRefresh(context actor.Context) {
	if _, err := a.reconciler.Refresh(stdctx.Background(), a.postID); err != nil {
		log.Printf("FeedActor(%s): refresh failed: %v", a.postID, err)
	}
}
