package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"campus-forum/internal/api"
	"campus-forum/internal/cache"
	"campus-forum/internal/comments"
	"campus-forum/internal/config"
	"campus-forum/internal/engine"
	"campus-forum/internal/engine/actors"
	"campus-forum/internal/session"
	"campus-forum/internal/utils"
	"campus-forum/internal/ws"

	"github.com/asynkron/protoactor-go/actor"
)

func main() {
	postID := flag.String("post", "", "post id to open")
	email := flag.String("email", "", "account email (optional, enables posting)")
	password := flag.String("password", "", "account password")
	say := flag.String("say", "", "submit this comment after loading the feed")
	replyTo := flag.String("reply-to", "", "parent comment id for -say")
	like := flag.String("like", "", "toggle a like on this comment id")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *postID == "" {
		log.Fatalf("-post is required")
	}

	metrics := utils.NewMetricsCollector()
	sess := session.New(cfg.Session.JWTSecret)
	client := api.NewClient(cfg.API, sess, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		redisStore, err := cache.NewRedisStore(ctx, cfg.Cache.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect cache store: %v", err)
		}
		defer redisStore.Close()
		store = redisStore
	default:
		store = cache.NewMemoryStore()
	}

	if *email != "" {
		if _, err := client.Login(ctx, *email, *password); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		user, _ := sess.User()
		log.Printf("Signed in as %s", user.DisplayName)
	} else {
		log.Printf("No credentials supplied, browsing read-only")
	}

	system := actor.NewActorSystem()
	forumEngine := engine.NewEngine(system, client, store, sess, metrics)
	defer forumEngine.Stop()

	if cfg.API.EventsURL != "" {
		listener := ws.NewListener(cfg.API.EventsURL, sess.Token(), store)
		go listener.Run(ctx)
	}

	feed := forumEngine.FeedFor(*postID)

	future := system.Root.RequestFuture(feed, &actors.GetCommentsMsg{}, cfg.API.RequestTimeout)
	result, err := future.Result()
	if err != nil {
		log.Fatalf("Failed to load comments: %v", err)
	}
	if appErr, ok := result.(*utils.AppError); ok {
		log.Fatalf("Failed to load comments: %v", appErr)
	}

	if *say != "" {
		msg := &actors.SubmitCommentMsg{Content: *say}
		if *replyTo != "" {
			msg.ParentID = replyTo
		}
		result, err := system.Root.RequestFuture(feed, msg, cfg.API.RequestTimeout).Result()
		if err != nil {
			log.Fatalf("Failed to submit comment: %v", err)
		}
		sub := result.(*comments.Submission)
		log.Printf("Comment submitted optimistically as %s", sub.TempID)
		<-sub.Done()
		log.Printf("Comment resolved: %s (err: %v)", sub.State(), sub.Err())
	}

	if *like != "" {
		result, err := system.Root.RequestFuture(feed, &actors.ToggleLikeMsg{CommentID: *like}, cfg.API.RequestTimeout).Result()
		if err != nil {
			log.Fatalf("Failed to toggle like: %v", err)
		}
		switch v := result.(type) {
		case *comments.Toggle:
			<-v.Done()
			log.Printf("Like toggle on %s resolved: %s (err: %v)", *like, v.State(), v.Err())
		case *utils.AppError:
			log.Printf("Like toggle rejected: %v", v)
		}
	}

	log.Printf("Feed for post %s is live; watching for updates (Ctrl-C to exit)", *postID)

	events, cancelSub := store.Subscribe(*postID)
	defer cancelSub()
	go func() {
		for event := range events {
			log.Printf("Cache %s for post %s", event.Kind, event.PostID)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("Shutting down")
}
