package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskwatch/internal/lifecycle"
)

// Attribution stores held evidence in Redis, one key per conversation.
// Keys expire after ttl so abandoned evidence does not accumulate.
type Attribution struct {
	client *redis.Client
	ttl    time.Duration
}

var _ lifecycle.Attribution = (*Attribution)(nil)

// NewAttribution creates a Redis attribution table. A ttl of zero keeps
// entries until they are taken.
func NewAttribution(client *redis.Client, ttl time.Duration) *Attribution {
	return &Attribution{client: client, ttl: ttl}
}

func (a *Attribution) key(conversationID string) string {
	return fmt.Sprintf("%s:attribution:%s", keyPrefix, conversationID)
}

// Hold implements lifecycle.Attribution.
func (a *Attribution) Hold(ctx context.Context, conversationID string, held lifecycle.HeldEvidence) error {
	payload, err := json.Marshal(held)
	if err != nil {
		return fmt.Errorf("failed to encode held evidence: %w", err)
	}
	return a.client.Set(ctx, a.key(conversationID), payload, a.ttl).Err()
}

// Take implements lifecycle.Attribution. The read and delete are a single
// GETDEL so two takers cannot both receive the same evidence.
func (a *Attribution) Take(ctx context.Context, conversationID string) (lifecycle.HeldEvidence, bool, error) {
	payload, err := a.client.GetDel(ctx, a.key(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return lifecycle.HeldEvidence{}, false, nil
	}
	if err != nil {
		return lifecycle.HeldEvidence{}, false, err
	}

	var held lifecycle.HeldEvidence
	if err := json.Unmarshal(payload, &held); err != nil {
		return lifecycle.HeldEvidence{}, false, fmt.Errorf("failed to decode held evidence: %w", err)
	}
	return held, true, nil
}
