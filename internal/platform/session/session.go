// Package session keeps per-token state that outlives a request: the logout
// denylist and the login/logout event stream.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"taskini/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb           *redis.Client
	revokedPrefix string
	channelPrefix string
}

func NewStore(rdb *redis.Client, revokedPrefix, channelPrefix string) *Store {
	return &Store{rdb: rdb, revokedPrefix: revokedPrefix, channelPrefix: channelPrefix}
}

// Revoke denies the token id until its natural expiry.
func (s *Store) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, s.revokedPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token %s: %w", tokenID, err)
	}
	return nil
}

func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, err := s.rdb.Get(ctx, s.revokedPrefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token %s: %w", tokenID, err)
	}
	return true, nil
}

func (s *Store) channel(userID string) string {
	return s.channelPrefix + userID
}

func (s *Store) Publish(ctx context.Context, event model.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	if err := s.rdb.Publish(ctx, s.channel(event.UserID), data).Err(); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}
	return nil
}

// Subscribe streams events for userID until ctx is done or the returned
// close func is called.
func (s *Store) Subscribe(ctx context.Context, userID string) (<-chan model.SessionEvent, func() error, error) {
	pubsub := s.rdb.Subscribe(ctx, s.channel(userID))
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe session events: %w", err)
	}

	out := make(chan model.SessionEvent, 8)
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event model.SessionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("WARN: dropping malformed session event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, pubsub.Close, nil
}
