package main

import (
	"context"
	"log"
	"time"

	"campus-forum/simulator"
)

func main() {
	// Define simulation configuration
	config := simulator.SimConfig{
		NumUsers:         25,
		NumPosts:         5,
		SimulationTime:   2 * time.Minute,
		CommentFrequency: 12.0,
		ReplyPercentage:  0.5,
		LikeFrequency:    20.0,
		FailureRate:      0.15,
		AuthFailureShare: 0.2,
		BackendLatency:   40 * time.Millisecond,
		JWTSecret:        "simulator-only-secret",
	}

	sim := simulator.NewSimulator(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	// Log configuration
	log.Printf("Starting simulation with configuration:")
	log.Printf("- Number of users: %d", config.NumUsers)
	log.Printf("- Number of posts: %d", config.NumPosts)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Comment frequency: %.2f comments/user/minute", config.CommentFrequency)
	log.Printf("- Reply percentage: %.1f%%", config.ReplyPercentage*100)
	log.Printf("- Like frequency: %.2f toggles/user/minute", config.LikeFrequency)
	log.Printf("- Injected failure rate: %.1f%%", config.FailureRate*100)
	log.Printf("- Backend latency: %v", config.BackendLatency)

	// Start simulation
	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	// Print final metrics
	metrics := sim.GetMetrics()
	log.Printf("\nSimulation completed. Final metrics:")
	log.Printf("- Total users: %d", metrics.TotalUsers)
	log.Printf("- Submissions: %d (confirmed: %d, rolled back: %d)",
		metrics.TotalSubmissions, metrics.Confirmed, metrics.RolledBack)
	log.Printf("- Like toggles: %d (rolled back: %d)", metrics.TotalToggles, metrics.ToggleRollbacks)
	log.Printf("- Auth rejections: %d", metrics.AuthRejections)
	log.Printf("- Average resolution time: %v", metrics.AverageResolution)
	log.Printf("- Orphaned optimistic entries: %d", metrics.OrphanedEntries)
}
