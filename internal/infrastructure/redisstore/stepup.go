package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-idp-security/internal/domain"
	"github.com/redis/go-redis/v9"
)

// StepUpStore keeps at most one step-up claim per session.
type StepUpStore struct {
	redis *redis.Client
}

func NewStepUpStore(rdb *redis.Client) *StepUpStore {
	return &StepUpStore{redis: rdb}
}

func (s *StepUpStore) key(sessionID string) string {
	return "stepup:" + sessionID
}

// Put replaces any claim held for the session. ttl only bounds how long Redis
// keeps the key; validity is decided by ExpiresAt.
func (s *StepUpStore) Put(ctx context.Context, claim *domain.StepUpClaim, ttl time.Duration) error {
	data, err := json.Marshal(claim)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(claim.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("store step-up claim: %w", err)
	}
	return nil
}

// Get returns the claim for the session or domain.ErrNotFound.
func (s *StepUpStore) Get(ctx context.Context, sessionID string) (*domain.StepUpClaim, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("step-up claim: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load step-up claim: %w", err)
	}
	var claim domain.StepUpClaim
	if err := json.Unmarshal(data, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

// Delete drops the session's claim. Sign-out calls it.
func (s *StepUpStore) Delete(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, s.key(sessionID)).Err()
}
