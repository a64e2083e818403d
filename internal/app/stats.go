package app

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/neomorfeo/admitiq/internal/domain"
)

// StatisticsService serves read-side rollups of registration counts.
// Results are cached with a short TTL; dashboards tolerate staleness up
// to the TTL, so writes do not invalidate the cache.
type StatisticsService struct {
	regs  domain.RegistrationRepository
	cache *gocache.Cache
	ttl   time.Duration
}

// NewStatisticsService creates a statistics service caching rollups for
// the given TTL.
func NewStatisticsService(regs domain.RegistrationRepository, ttl time.Duration) *StatisticsService {
	return &StatisticsService{
		regs:  regs,
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// CountsByStatus returns the number of registrations per lifecycle
// state for an event, zero-filled for states with no entries.
func (s *StatisticsService) CountsByStatus(ctx context.Context, eventID string) (map[domain.Status]int, error) {
	key := "event:" + eventID
	if cached, found := s.cache.Get(key); found {
		if counts, ok := cached.(map[domain.Status]int); ok {
			return copyCounts(counts), nil
		}
	}

	counts, err := s.regs.CountsByStatus(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("counting by status: %w", err)
	}
	counts = zeroFill(counts)

	s.cache.Set(key, counts, s.ttl)
	return copyCounts(counts), nil
}

// CountsByUser returns the number of registrations per lifecycle state
// across all events for a user.
func (s *StatisticsService) CountsByUser(ctx context.Context, userID string) (map[domain.Status]int, error) {
	key := "user:" + userID
	if cached, found := s.cache.Get(key); found {
		if counts, ok := cached.(map[domain.Status]int); ok {
			return copyCounts(counts), nil
		}
	}

	counts, err := s.regs.CountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting by user: %w", err)
	}
	counts = zeroFill(counts)

	s.cache.Set(key, counts, s.ttl)
	return copyCounts(counts), nil
}

// WaitlistPosition returns the user's current FIFO rank on an event's
// waitlist. Positions are not cached; users poll them expecting
// movement.
func (s *StatisticsService) WaitlistPosition(ctx context.Context, eventID, userID string) (int, error) {
	return s.regs.WaitlistPosition(ctx, eventID, userID)
}

// copyCounts shields the cached map from callers: a mutated result must
// never corrupt later cache hits.
func copyCounts(counts map[domain.Status]int) map[domain.Status]int {
	out := make(map[domain.Status]int, len(counts))
	for status, count := range counts {
		out[status] = count
	}
	return out
}

func zeroFill(counts map[domain.Status]int) map[domain.Status]int {
	out := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		out[status] = counts[status]
	}
	return out
}
