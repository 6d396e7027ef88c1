package cache

import (
	"context"
	"encoding/json"
	"log"

	"campus-forum/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix     = "comments:"
	redisChannelPrefix = "comments.events:"
)

// RedisStore implements Store on a shared Redis instance so multiple client
// processes (e.g. a server-rendered shell) observe the same cached lists.
// Subscriber notification rides on Redis pub/sub.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, ctx: ctx}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(postID string) ([]models.Comment, bool) {
	payload, err := s.client.Get(s.ctx, redisKeyPrefix+postID).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("Redis get failed for post %s: %v", postID, err)
		return nil, false
	}

	var list []models.Comment
	if err := json.Unmarshal(payload, &list); err != nil {
		log.Printf("Corrupt cached list for post %s, treating as stale: %v", postID, err)
		return nil, false
	}
	return list, true
}

func (s *RedisStore) Set(postID string, comments []models.Comment) {
	if comments == nil {
		comments = []models.Comment{}
	}
	payload, err := json.Marshal(comments)
	if err != nil {
		log.Printf("Failed to encode list for post %s: %v", postID, err)
		return
	}

	if err := s.client.Set(s.ctx, redisKeyPrefix+postID, payload, 0).Err(); err != nil {
		log.Printf("Redis set failed for post %s: %v", postID, err)
		return
	}
	s.publish(Event{PostID: postID, Kind: EventSet})
}

func (s *RedisStore) Invalidate(postID string) {
	if err := s.client.Del(s.ctx, redisKeyPrefix+postID).Err(); err != nil {
		log.Printf("Redis del failed for post %s: %v", postID, err)
	}
	s.publish(Event{PostID: postID, Kind: EventInvalidated})
}

func (s *RedisStore) Subscribe(postID string) (<-chan Event, func()) {
	pubsub := s.client.Subscribe(s.ctx, redisChannelPrefix+postID)
	ch := make(chan Event, subscriberBuffer)

	go func() {
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Bad cache event payload on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case ch <- event:
			default:
				log.Printf("Cache event buffer full for post %s, dropping %s event", event.PostID, event.Kind)
			}
		}
		close(ch)
	}()

	cancel := func() {
		_ = pubsub.Close()
	}

	return ch, cancel
}

func (s *RedisStore) publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.client.Publish(s.ctx, redisChannelPrefix+event.PostID, payload).Err(); err != nil {
		log.Printf("Redis publish failed for post %s: %v", event.PostID, err)
	}
}
