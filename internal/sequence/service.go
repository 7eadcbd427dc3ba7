package sequence

import (
	"context"
	"fmt"
	"time"
)

// CounterStore abstracts the transactional counter for the service.
type CounterStore interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Service formats counter values into human-readable document numbers.
type Service struct {
	store CounterStore
	now   func() time.Time
}

// NewService builds Service.
func NewService(store CounterStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Next returns the raw next integer for a counter.
func (s *Service) Next(ctx context.Context, key string) (int64, error) {
	return s.store.Next(ctx, key)
}

// NextNumber advances the counter and formats it as PREFIX-YEAR-0001.
func (s *Service) NextNumber(ctx context.Context, key, prefix string) (string, error) {
	n, err := s.store.Next(ctx, key)
	if err != nil {
		return "", err
	}
	return Format(prefix, s.now().UTC(), n), nil
}

// Format renders a counter value as a document number.
func Format(prefix string, t time.Time, n int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, t.Year(), n)
}
