package simulator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"campus-forum/internal/cache"
	"campus-forum/internal/comments"
	"campus-forum/internal/models"
	"campus-forum/internal/session"
	"campus-forum/internal/utils"

	"github.com/google/uuid"
)

type SimConfig struct {
	NumUsers         int
	NumPosts         int
	SimulationTime   time.Duration
	CommentFrequency float64 // comments per user per minute
	ReplyPercentage  float64 // share of comments that reply to an existing one
	LikeFrequency    float64 // like toggles per user per minute
	FailureRate      float64 // share of backend calls that fail
	AuthFailureShare float64 // share of injected failures that are 401s
	BackendLatency   time.Duration
	JWTSecret        string
}

type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalSubmissions int64
	Confirmed        int64
	RolledBack       int64
	TotalToggles     int64
	ToggleRollbacks  int64
	AuthRejections   int64
	OrphanedEntries  int64
	OptimisticLags   []time.Duration
}

// Track simulated users with their client-side state
type SimulatedUser struct {
	Identity   models.Author
	Session    *session.Session
	Reconciler *comments.Reconciler
	Store      *cache.MemoryStore
}

type Simulator struct {
	config  SimConfig
	stats   *SimulationStats
	backend *flakyBackend
	metrics *utils.MetricsCollector
	users   []*SimulatedUser
	posts   []string
	mu      sync.RWMutex
}

func NewSimulator(config SimConfig) *Simulator {
	return &Simulator{
		config:  config,
		stats:   &SimulationStats{StartTime: time.Now()},
		backend: newFlakyBackend(config.FailureRate, config.AuthFailureShare, config.BackendLatency),
		metrics: utils.NewMetricsCollector(),
	}
}

func (s *Simulator) Run(ctx context.Context) error {
	log.Printf("Starting reconciler simulation...")

	if err := s.initialize(); err != nil {
		return fmt.Errorf("initialization failed: %v", err)
	}

	var wg sync.WaitGroup

	for _, user := range s.users {
		wg.Add(1)
		go func(u *SimulatedUser) {
			defer wg.Done()
			s.simulateActivity(ctx, u)
		}(user)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	s.verifyCaches()
	return nil
}

func (s *Simulator) initialize() error {
	log.Printf("Phase 1: Creating %d simulated users...", s.config.NumUsers)

	s.users = make([]*SimulatedUser, 0, s.config.NumUsers)
	for i := 0; i < s.config.NumUsers; i++ {
		identity := models.Author{
			ID:          uuid.NewString(),
			DisplayName: fmt.Sprintf("user_%d", i),
			AvatarURL:   fmt.Sprintf("https://cdn.example.edu/avatars/user_%d.png", i),
		}

		sess := session.New(s.config.JWTSecret)
		token, err := session.GenerateToken(identity, s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("failed to mint token for %s: %v", identity.DisplayName, err)
		}
		if err := sess.SetToken(token); err != nil {
			return fmt.Errorf("failed to activate session for %s: %v", identity.DisplayName, err)
		}

		store := cache.NewMemoryStore()
		user := &SimulatedUser{
			Identity:   identity,
			Session:    sess,
			Store:      store,
			Reconciler: comments.NewReconciler(s.backend.forUser(identity), store, sess, s.metrics),
		}
		s.users = append(s.users, user)
	}

	log.Printf("Phase 2: Seeding %d posts with root comments...", s.config.NumPosts)

	s.posts = make([]string, 0, s.config.NumPosts)
	for i := 0; i < s.config.NumPosts; i++ {
		postID := uuid.NewString()
		s.posts = append(s.posts, postID)

		seeder := s.users[i%len(s.users)]
		if _, err := s.backend.createComment(context.Background(), seeder.Identity, postID,
			fmt.Sprintf("First! (seed comment for post %d)", i), nil); err != nil {
			log.Printf("Failed to seed post %s: %v", postID, err)
		}
	}

	log.Printf("Initialization completed successfully")
	return nil
}

func (s *Simulator) simulateActivity(ctx context.Context, user *SimulatedUser) {
	perMinute := s.config.CommentFrequency + s.config.LikeFrequency
	if perMinute <= 0 {
		return
	}
	interval := time.Duration(float64(time.Minute) / perMinute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	likeShare := s.config.LikeFrequency / perMinute

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			postID := s.posts[rand.Intn(len(s.posts))]
			if rand.Float64() < likeShare {
				s.doToggle(ctx, user, postID)
			} else {
				s.doSubmit(ctx, user, postID)
			}
		}
	}
}

func (s *Simulator) doSubmit(ctx context.Context, user *SimulatedUser, postID string) {
	// Make sure the user has a cached list to reply into.
	cached, err := user.Reconciler.Comments(ctx, postID)
	if err != nil {
		return
	}

	var parentID *string
	if len(cached) > 0 && rand.Float64() < s.config.ReplyPercentage {
		target := cached[rand.Intn(len(cached))].ID
		if !models.IsTempID(target) {
			parentID = &target
		}
	}

	start := time.Now()
	sub := user.Reconciler.SubmitComment(ctx, postID,
		fmt.Sprintf("%s says hi at %s", user.Identity.DisplayName, time.Now().Format(time.RFC3339Nano)),
		parentID)

	s.stats.mu.Lock()
	s.stats.TotalSubmissions++
	s.stats.mu.Unlock()

	<-sub.Done()

	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	s.stats.OptimisticLags = append(s.stats.OptimisticLags, time.Since(start))
	switch sub.State() {
	case comments.StateConfirmed:
		s.stats.Confirmed++
	case comments.StateRolledBack:
		s.stats.RolledBack++
		if utils.IsAuthError(sub.Err()) {
			s.stats.AuthRejections++
		}
	}
}

func (s *Simulator) doToggle(ctx context.Context, user *SimulatedUser, postID string) {
	cached, err := user.Reconciler.Comments(ctx, postID)
	if err != nil || len(cached) == 0 {
		return
	}

	target := cached[rand.Intn(len(cached))]
	if target.IsOptimistic() {
		return
	}

	toggle, err := user.Reconciler.ToggleLike(ctx, target.ID, postID)
	if err != nil {
		if utils.IsAuthError(err) {
			s.stats.mu.Lock()
			s.stats.AuthRejections++
			s.stats.mu.Unlock()
		}
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalToggles++
	s.stats.mu.Unlock()

	<-toggle.Done()

	if toggle.State() == comments.StateRolledBack {
		s.stats.mu.Lock()
		s.stats.ToggleRollbacks++
		s.stats.mu.Unlock()
	}
}

// verifyCaches checks the core guarantee after the run: once every
// submission has resolved, no user's cache retains a temporary-id entry.
func (s *Simulator) verifyCaches() {
	orphans := int64(0)
	for _, user := range s.users {
		for _, postID := range s.posts {
			list, ok := user.Store.Get(postID)
			if !ok {
				continue
			}
			for _, comment := range list {
				if comment.IsOptimistic() {
					orphans++
					log.Printf("ORPHAN: user %s still caches %s on post %s",
						user.Identity.DisplayName, comment.ID, postID)
				}
			}
		}
	}

	s.stats.mu.Lock()
	s.stats.OrphanedEntries = orphans
	s.stats.mu.Unlock()

	if orphans == 0 {
		log.Printf("Cache verification passed: no orphaned optimistic entries")
	} else {
		log.Printf("Cache verification FAILED: %d orphaned optimistic entries", orphans)
	}
}

func (s *Simulator) collectMetrics(ctx context.Context) {
	log.Printf("Starting metrics collection...")
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.stats.mu.RLock()
			elapsed := time.Since(s.stats.StartTime)
			submissionRate := float64(s.stats.TotalSubmissions) / elapsed.Seconds()
			rollbackRate := 0.0
			if s.stats.TotalSubmissions > 0 {
				rollbackRate = float64(s.stats.RolledBack) / float64(s.stats.TotalSubmissions) * 100
			}

			log.Printf("\nSimulation Metrics (%.1f seconds elapsed):", elapsed.Seconds())
			log.Printf("- Submission Rate: %.2f submissions/sec", submissionRate)
			log.Printf("- Confirmed: %d", s.stats.Confirmed)
			log.Printf("- Rolled Back: %d (%.1f%%)", s.stats.RolledBack, rollbackRate)
			log.Printf("- Like Toggles: %d (rollbacks: %d)", s.stats.TotalToggles, s.stats.ToggleRollbacks)
			log.Printf("- Auth Rejections: %d", s.stats.AuthRejections)
			s.stats.mu.RUnlock()
		}
	}
}

// SimulationMetrics holds the final metrics of a simulation run
type SimulationMetrics struct {
	TotalUsers        int
	TotalSubmissions  int64
	Confirmed         int64
	RolledBack        int64
	TotalToggles      int64
	ToggleRollbacks   int64
	AuthRejections    int64
	OrphanedEntries   int64
	AverageResolution time.Duration
}

// GetMetrics returns the current simulation metrics
func (s *Simulator) GetMetrics() SimulationMetrics {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	var avg time.Duration
	if len(s.stats.OptimisticLags) > 0 {
		var total time.Duration
		for _, lag := range s.stats.OptimisticLags {
			total += lag
		}
		avg = total / time.Duration(len(s.stats.OptimisticLags))
	}

	return SimulationMetrics{
		TotalUsers:        len(s.users),
		TotalSubmissions:  s.stats.TotalSubmissions,
		Confirmed:         s.stats.Confirmed,
		RolledBack:        s.stats.RolledBack,
		TotalToggles:      s.stats.TotalToggles,
		ToggleRollbacks:   s.stats.ToggleRollbacks,
		AuthRejections:    s.stats.AuthRejections,
		OrphanedEntries:   s.stats.OrphanedEntries,
		AverageResolution: avg,
	}
}
