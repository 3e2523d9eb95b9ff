package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoria-scraper/config"
	"autoria-scraper/utils"
)

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("EET", 2*60*60)
	tests := []struct {
		name         string
		now          time.Time
		hour, minute int
		want         time.Time
	}{
		{"later today", time.Date(2024, 5, 1, 9, 30, 0, 0, loc), 12, 0, time.Date(2024, 5, 1, 12, 0, 0, 0, loc)},
		{"already passed", time.Date(2024, 5, 1, 12, 6, 0, 0, loc), 12, 5, time.Date(2024, 5, 2, 12, 5, 0, 0, loc)},
		{"exactly now", time.Date(2024, 5, 1, 12, 0, 0, 0, loc), 12, 0, time.Date(2024, 5, 2, 12, 0, 0, 0, loc)},
		{"month end", time.Date(2024, 5, 31, 23, 59, 0, 0, loc), 0, 0, time.Date(2024, 6, 1, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, tt.hour, tt.minute)
			if !got.Equal(tt.want) {
				t.Errorf("NextRun(%v, %d, %d) = %v; want %v", tt.now, tt.hour, tt.minute, got, tt.want)
			}
		})
	}
}

func TestAddRejectsBadTime(t *testing.T) {
	s := New(utils.NewNopLogger())
	err := s.Add("scrape", "25:00", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.NoError(t, s.Add("scrape", "12:00", func(context.Context) error { return nil }))
}

func TestRunFiresDueJobAndStops(t *testing.T) {
	s := New(utils.NewNopLogger())

	// The job is due one second after the clock's "now".
	target := time.Now().Add(time.Minute).Truncate(time.Minute)
	s.now = func() time.Time { return target.Add(-time.Second) }

	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Add("scrape", target.Format("15:04"), func(context.Context) error {
		if runs.Add(1) == 1 {
			cancel()
		}
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), runs.Load())
}

func TestRunStopsWithoutFiring(t *testing.T) {
	s := New(utils.NewNopLogger())
	var runs atomic.Int32
	require.NoError(t, s.Add("dump", "12:05", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.Run(ctx))
	assert.Zero(t, runs.Load())
}
