package comments

import "sync"

// State tracks a mutation through its optimistic window.
type State string

const (
	StatePending    State = "PENDING"
	StateConfirmed  State = "CONFIRMED"
	StateRolledBack State = "ROLLED_BACK"
)

// Submission is the handle returned by SubmitComment. It resolves exactly
// once: either the optimistic entry was superseded by the authoritative
// list (Confirmed) or the pre-submission snapshot was restored
// (RolledBack).
type Submission struct {
	// TempID is the locally-assigned id of the optimistic entry. It never
	// survives resolution.
	TempID string

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newSubmission(tempID string) *Submission {
	return &Submission{
		TempID: tempID,
		state:  StatePending,
		done:   make(chan struct{}),
	}
}

// Done is closed once the submission has resolved.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Submission) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that caused a rollback, nil otherwise.
func (s *Submission) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Submission) resolve(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePending {
		return
	}
	s.state = state
	s.err = err
	close(s.done)
}

// Toggle is the handle returned by ToggleLike for the asynchronous window
// between the optimistic flip and the server's answer.
type Toggle struct {
	CommentID string

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newToggle(commentID string) *Toggle {
	return &Toggle{
		CommentID: commentID,
		state:     StatePending,
		done:      make(chan struct{}),
	}
}

func (t *Toggle) Done() <-chan struct{} {
	return t.done
}

func (t *Toggle) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Toggle) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Toggle) resolve(state State, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return
	}
	t.state = state
	t.err = err
	close(t.done)
}
