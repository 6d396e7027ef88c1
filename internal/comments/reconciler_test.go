package comments

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus-forum/internal/cache"
	"campus-forum/internal/models"
	"campus-forum/internal/session"
	"campus-forum/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "reconciler-test-secret"

type createCall struct {
	postID   string
	content  string
	parentID *string
}

// stubAPI is a controllable backend double. Setting gate makes network
// calls block until the channel is closed, so tests can inspect the
// optimistic window.
type stubAPI struct {
	mu          sync.Mutex
	createErr   error
	toggleErr   error
	listErr     error
	serverList  []models.Comment
	createCalls []createCall
	toggleCalls []string
	gate        chan struct{}
}

func (s *stubAPI) CreateComment(ctx context.Context, postID, content string, parentID *string) (models.Comment, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls = append(s.createCalls, createCall{postID: postID, content: content, parentID: parentID})
	if s.createErr != nil {
		return models.Comment{}, s.createErr
	}
	return models.Comment{ID: "server-1", Content: content, PostID: postID, ParentID: parentID, CreatedAt: time.Now().UTC()}, nil
}

func (s *stubAPI) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return models.CloneComments(s.serverList), nil
}

func (s *stubAPI) ToggleReaction(ctx context.Context, targetID string, target models.TargetType, reaction models.ReactionType) error {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggleCalls = append(s.toggleCalls, targetID)
	return s.toggleErr
}

func (s *stubAPI) wait() {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

// recordingStore wraps a MemoryStore and captures every Set payload so
// tests can inspect intermediate cache states that later invalidations
// would otherwise erase.
type recordingStore struct {
	*cache.MemoryStore
	mu           sync.Mutex
	sets         [][]models.Comment
	invalidation int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: cache.NewMemoryStore()}
}

func (r *recordingStore) Set(postID string, list []models.Comment) {
	r.mu.Lock()
	r.sets = append(r.sets, models.CloneComments(list))
	r.mu.Unlock()
	r.MemoryStore.Set(postID, list)
}

func (r *recordingStore) Invalidate(postID string) {
	r.mu.Lock()
	r.invalidation++
	r.mu.Unlock()
	r.MemoryStore.Invalidate(postID)
}

func (r *recordingStore) lastSet() []models.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sets) == 0 {
		return nil
	}
	return r.sets[len(r.sets)-1]
}

func (r *recordingStore) setCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

func activeSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.New(testSecret)
	token, err := session.GenerateToken(models.Author{
		ID:          "user-1",
		DisplayName: "Alice",
		AvatarURL:   "https://cdn.example.edu/avatars/alice.png",
	}, testSecret)
	require.NoError(t, err)
	require.NoError(t, sess.SetToken(token))
	return sess
}

func newTestReconciler(t *testing.T, api *stubAPI, store cache.Store, sess *session.Session) *Reconciler {
	t.Helper()
	rec := NewReconciler(api, store, sess, utils.NewMetricsCollector())
	seq := 0
	rec.newTempID = func() string {
		seq++
		return "temp-" + string(rune('0'+seq))
	}
	rec.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return rec
}

func ptr(s string) *string { return &s }

func comment(id string, parentID *string) models.Comment {
	return models.Comment{ID: id, PostID: "post-1", ParentID: parentID, Content: "c-" + id}
}

func TestSubmitRootCommentAppendsToEnd(t *testing.T) {
	api := &stubAPI{gate: make(chan struct{})}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{comment("A", nil)})

	sub := rec.SubmitComment(context.Background(), "post-1", "hello", nil)

	// The insert is synchronous: visible before the network resolves.
	list, ok := store.Get("post-1")
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID)
	assert.Equal(t, sub.TempID, list[1].ID)
	assert.True(t, list[1].IsOptimistic())
	assert.Nil(t, list[1].ParentID)
	assert.Equal(t, "Alice", list[1].Author.DisplayName)
	assert.Equal(t, 0, list[1].ReactionCount)
	assert.False(t, list[1].IsLiked)
	assert.Equal(t, StatePending, sub.State())

	close(api.gate)
	<-sub.Done()

	assert.Equal(t, StateConfirmed, sub.State())
	assert.NoError(t, sub.Err())

	// Confirmed submissions invalidate; the temp id never persists.
	_, ok = store.Get("post-1")
	assert.False(t, ok)
}

func TestSubmitReplyInsertsAfterParent(t *testing.T) {
	// Scenario: cache = [A]; reply to A lands right after it.
	api := &stubAPI{gate: make(chan struct{})}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{comment("A", nil)})

	sub := rec.SubmitComment(context.Background(), "post-1", "a reply", ptr("A"))

	list, _ := store.Get("post-1")
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID)
	assert.Equal(t, sub.TempID, list[1].ID)
	require.NotNil(t, list[1].ParentID)
	assert.Equal(t, "A", *list[1].ParentID)

	close(api.gate)
	<-sub.Done()
}

func TestSubmitReplyInsertsAfterLastSibling(t *testing.T) {
	// Root A with replies [r1, r2], then root B. A new reply to A must land
	// after r2 and before B.
	api := &stubAPI{gate: make(chan struct{})}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{
		comment("A", nil),
		comment("r1", ptr("A")),
		comment("r2", ptr("A")),
		comment("B", nil),
	})

	sub := rec.SubmitComment(context.Background(), "post-1", "r3", ptr("A"))

	list, _ := store.Get("post-1")
	require.Len(t, list, 5)
	assert.Equal(t, []string{"A", "r1", "r2", sub.TempID, "B"},
		[]string{list[0].ID, list[1].ID, list[2].ID, list[3].ID, list[4].ID})

	close(api.gate)
	<-sub.Done()
}

func TestSubmitReplyToReplyReparentsOneLevel(t *testing.T) {
	// Scenario: cache = [A, B(parent A)]; replying to B re-parents the
	// optimistic entry onto A, while the wire call still carries B.
	api := &stubAPI{gate: make(chan struct{})}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{
		comment("A", nil),
		comment("B", ptr("A")),
	})

	sub := rec.SubmitComment(context.Background(), "post-1", "grandchild", ptr("B"))

	list, _ := store.Get("post-1")
	require.Len(t, list, 3)
	assert.Equal(t, sub.TempID, list[2].ID)
	require.NotNil(t, list[2].ParentID)
	assert.Equal(t, "A", *list[2].ParentID, "effective parent must be the root, not the reply")

	close(api.gate)
	<-sub.Done()
	require.Len(t, api.createCalls, 1)
	require.NotNil(t, api.createCalls[0].parentID)
	assert.Equal(t, "B", *api.createCalls[0].parentID, "server receives the original parent id")
}

func TestSubmitUnknownParentFallsBackToRoot(t *testing.T) {
	api := &stubAPI{gate: make(chan struct{})}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{comment("A", nil)})

	sub := rec.SubmitComment(context.Background(), "post-1", "orphan reply", ptr("gone"))

	list, _ := store.Get("post-1")
	require.Len(t, list, 2)
	assert.Equal(t, sub.TempID, list[1].ID)
	assert.Nil(t, list[1].ParentID, "stale parent reference degrades to root")

	close(api.gate)
	<-sub.Done()
}

func TestSubmitFailureRestoresSnapshotExactly(t *testing.T) {
	api := &stubAPI{createErr: utils.NewNetworkError("boom", nil)}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	before := []models.Comment{
		comment("A", nil),
		comment("r1", ptr("A")),
	}
	store.Set("post-1", before)

	sub := rec.SubmitComment(context.Background(), "post-1", "doomed", ptr("A"))
	<-sub.Done()

	assert.Equal(t, StateRolledBack, sub.State())
	assert.True(t, utils.IsErrorCode(sub.Err(), utils.ErrNetwork))

	after, ok := store.Get("post-1")
	require.True(t, ok)
	assert.Equal(t, before, after, "post-rollback list must deep-equal the pre-submission snapshot")

	// No temp-id entry survives resolution.
	for _, c := range after {
		assert.False(t, c.IsOptimistic())
	}
}

func TestSubmitUnauthorizedFollowsRollbackPath(t *testing.T) {
	api := &stubAPI{createErr: utils.NewUnauthorizedError("token expired")}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	before := []models.Comment{comment("A", nil)}
	store.Set("post-1", before)

	sub := rec.SubmitComment(context.Background(), "post-1", "nope", nil)
	<-sub.Done()

	assert.Equal(t, StateRolledBack, sub.State())
	assert.True(t, utils.IsAuthError(sub.Err()))

	after, _ := store.Get("post-1")
	assert.Equal(t, before, after)
}

func TestSubmitWithUncachedPostRollsBackToUncached(t *testing.T) {
	api := &stubAPI{createErr: utils.NewNetworkError("boom", nil), gate: make(chan struct{})}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	sub := rec.SubmitComment(context.Background(), "post-1", "first", nil)

	list, ok := store.Get("post-1")
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, sub.TempID, list[0].ID)

	close(api.gate)
	<-sub.Done()
	_, ok = store.Get("post-1")
	assert.False(t, ok, "a post that had no cached list goes back to uncached")
}

func TestSubmissionsApplyInCallOrder(t *testing.T) {
	api := &stubAPI{gate: make(chan struct{})}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{})

	first := rec.SubmitComment(context.Background(), "post-1", "first", nil)
	second := rec.SubmitComment(context.Background(), "post-1", "second", nil)

	list, _ := store.Get("post-1")
	require.Len(t, list, 2)
	assert.Equal(t, first.TempID, list[0].ID)
	assert.Equal(t, second.TempID, list[1].ID)

	close(api.gate)
	<-first.Done()
	<-second.Done()
}

func TestToggleLikeFlipsFreshStateWithoutDrift(t *testing.T) {
	// Two rapid toggles, both still in flight: each flip reads the current
	// cached value, so the pair nets out to the starting state.
	api := &stubAPI{gate: make(chan struct{})}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{
		{ID: "C", PostID: "post-1", IsLiked: false, ReactionCount: 2},
	})

	t1, err := rec.ToggleLike(context.Background(), "C", "post-1")
	require.NoError(t, err)

	mid, _ := store.Get("post-1")
	assert.True(t, mid[0].IsLiked)
	assert.Equal(t, 3, mid[0].ReactionCount)

	t2, err := rec.ToggleLike(context.Background(), "C", "post-1")
	require.NoError(t, err)

	final, _ := store.Get("post-1")
	assert.False(t, final[0].IsLiked)
	assert.Equal(t, 2, final[0].ReactionCount, "two flips net to the starting count, not 4 or 0")

	close(api.gate)
	<-t1.Done()
	<-t2.Done()
	assert.Equal(t, StateConfirmed, t1.State())
	assert.Equal(t, StateConfirmed, t2.State())
}

func TestToggleLikeSuccessInvalidates(t *testing.T) {
	api := &stubAPI{}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{{ID: "C", PostID: "post-1", ReactionCount: 1}})

	toggle, err := rec.ToggleLike(context.Background(), "C", "post-1")
	require.NoError(t, err)
	<-toggle.Done()

	_, ok := store.Get("post-1")
	assert.False(t, ok, "resolution re-validates by invalidating the post")
	assert.Equal(t, []string{"C"}, api.toggleCalls)
}

func TestToggleLikeUnauthenticatedIsPureNoOp(t *testing.T) {
	api := &stubAPI{}
	store := newRecordingStore()
	sess := session.New(testSecret) // never signed in
	rec := newTestReconciler(t, api, store, sess)

	before := []models.Comment{{ID: "C", PostID: "post-1", IsLiked: true, ReactionCount: 5}}
	store.Set("post-1", before)
	setsBefore := store.setCount()

	toggle, err := rec.ToggleLike(context.Background(), "C", "post-1")
	assert.Nil(t, toggle)
	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrUnauthorized))

	after, _ := store.Get("post-1")
	assert.Equal(t, before, after)
	assert.Equal(t, setsBefore, store.setCount(), "no cache write may happen before the auth gate")
	assert.Empty(t, api.toggleCalls, "no network call either")
}

func TestToggleLikeUnknownCommentFailsFast(t *testing.T) {
	api := &stubAPI{}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{{ID: "C", PostID: "post-1"}})

	toggle, err := rec.ToggleLike(context.Background(), "missing", "post-1")
	assert.Nil(t, toggle)
	assert.True(t, utils.IsErrorCode(err, utils.ErrStaleReference))
}

func TestToggleLikeFailureRollsBackSingleEntry(t *testing.T) {
	api := &stubAPI{toggleErr: utils.NewNetworkError("boom", nil), gate: make(chan struct{})}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	store.Set("post-1", []models.Comment{
		{ID: "C", PostID: "post-1", IsLiked: false, ReactionCount: 2},
		{ID: "D", PostID: "post-1", IsLiked: false, ReactionCount: 0},
	})

	toggle, err := rec.ToggleLike(context.Background(), "C", "post-1")
	require.NoError(t, err)

	// While the toggle is in flight, another mutation lands on D.
	during, _ := store.Get("post-1")
	during[1].ReactionCount = 9
	store.Set("post-1", during)

	close(api.gate)
	<-toggle.Done()
	assert.Equal(t, StateRolledBack, toggle.State())

	// The rollback Set (captured before the trailing invalidation) must
	// revert C alone; D keeps its concurrent change.
	store.mu.Lock()
	rolledBack := store.sets[len(store.sets)-1]
	store.mu.Unlock()
	require.Len(t, rolledBack, 2)
	assert.Equal(t, "C", rolledBack[0].ID)
	assert.False(t, rolledBack[0].IsLiked)
	assert.Equal(t, 2, rolledBack[0].ReactionCount)
	assert.Equal(t, 9, rolledBack[1].ReactionCount, "point rollback must not clobber unrelated entries")
}

func TestCommentsRefetchesWhenStale(t *testing.T) {
	api := &stubAPI{serverList: []models.Comment{comment("A", nil)}}
	store := newRecordingStore()
	rec := newTestReconciler(t, api, store, activeSession(t))

	list, err := rec.Comments(context.Background(), "post-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].ID)

	// Now cached; a second read does not hit the network again.
	api.mu.Lock()
	api.listErr = utils.NewNetworkError("down", nil)
	api.mu.Unlock()

	list, err = rec.Comments(context.Background(), "post-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
