package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/app"
)

type countingSweeper struct {
	expired   atomic.Int32
	completed atomic.Int32
	fail      bool
}

func (c *countingSweeper) SweepExpired(ctx context.Context) (app.SweepResult, error) {
	c.expired.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return app.SweepResult{}, errors.New("sweep ran without a deadline")
	}
	if c.fail {
		return app.SweepResult{}, errors.New("store down")
	}
	return app.SweepResult{Scanned: 1, Processed: 1}, nil
}

func (c *countingSweeper) SweepCompleted(context.Context) (app.SweepResult, error) {
	c.completed.Add(1)
	return app.SweepResult{}, nil
}

func TestNew_RejectsInvalidSchedules(t *testing.T) {
	_, err := New(&countingSweeper{}, "not a schedule", "@daily")
	require.Error(t, err)

	_, err = New(&countingSweeper{}, "@every 60s", "61 * * * *")
	require.Error(t, err)
}

func TestNew_AcceptsSecondsField(t *testing.T) {
	s, err := New(&countingSweeper{}, "@every 60s", "0 0 2 * * *")
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestRun_FiresSweepsUntilCancelled(t *testing.T) {
	sw := &countingSweeper{}
	s, err := New(sw, "@every 1s", "* * * * * *", WithRunTimeout(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return sw.expired.Load() > 0 && sw.completed.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestJob_SwallowsSweepErrors(t *testing.T) {
	sw := &countingSweeper{fail: true}
	s, err := New(sw, "@every 60s", "@daily")
	require.NoError(t, err)

	assert.NotPanics(t, s.job("expiry", sw.SweepExpired))
	assert.Equal(t, int32(1), sw.expired.Load())
}
