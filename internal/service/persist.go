package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/storage"
)

// Option customizes how a store stamps new records.
type Option func(*stamper)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *stamper) { s.now = now }
}

// WithIDGenerator overrides the identifier source.
func WithIDGenerator(newID func() string) Option {
	return func(s *stamper) { s.newID = newID }
}

// WithTokenGenerator overrides the source of the random part of session tokens.
func WithTokenGenerator(newToken func() string) Option {
	return func(s *stamper) { s.newToken = newToken }
}

type stamper struct {
	now      func() time.Time
	newID    func() string
	newToken func() string
}

func newStamper(opts []Option) stamper {
	s := stamper{
		now: time.Now,
		newID: func() string {
			// v7 keeps identifiers ordered by creation time.
			return uuid.Must(uuid.NewV7()).String()
		},
		// v4 is fully random, unlike the time-ordered ids.
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// after returns the current time, bumped past prev when the clock has not advanced.
func (s stamper) after(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

// loadCollection decodes the JSON array stored under key.
// present is false when the key was never written. A corrupt value is logged
// and discarded, and reported as present with no items.
func loadCollection[T any](ctx context.Context, kv storage.KV, key string, log *zap.Logger) (items []T, present bool, err error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Error("discarding corrupt persisted state", zap.String("key", key), zap.Error(err))
		if err := kv.Delete(ctx, key); err != nil {
			return nil, true, fmt.Errorf("discard %s: %w", key, err)
		}
		return nil, true, nil
	}
	return items, true, nil
}

func saveJSON(ctx context.Context, kv storage.KV, key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(buf)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
