package utils

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter bounds the number of simultaneous operations system-wide and,
// optionally, the rate at which new ones start. One Limiter is shared by
// every caller that must respect the same ceiling.
type Limiter struct {
	sem     *semaphore.Weighted
	rate    *rate.Limiter
	maxSlot int
}

// NewLimiter creates a Limiter allowing maxConcurrent holders at once.
// requestsPerSecond <= 0 disables rate limiting.
func NewLimiter(maxConcurrent int, requestsPerSecond float64) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	l := &Limiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		maxSlot: maxConcurrent,
	}
	if requestsPerSecond > 0 {
		l.rate = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return l
}

// Acquire blocks until a slot is free (and the rate allows it) or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if l.rate != nil {
		if err := l.rate.Wait(ctx); err != nil {
			l.sem.Release(1)
			return err
		}
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Capacity returns the configured number of slots.
func (l *Limiter) Capacity() int {
	return l.maxSlot
}

// URLSet is a thread-safe set of URLs.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Contains returns true if the URL is in the set.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Sorted returns the members in lexical order.
func (s *URLSet) Sorted() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.seen))
	for u := range s.seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
