package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpiredSessions(context.Context) (int64, error) {
	c.calls.Add(1)
	if c.err != nil {
		return 0, c.err
	}
	return 2, nil
}

func TestSweepOnce(t *testing.T) {
	s := NewSessionSweeper(&countingSweeper{}, time.Minute, nil)
	n, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	boom := errors.New("store down")
	s = NewSessionSweeper(&countingSweeper{err: boom}, time.Minute, nil)
	_, err = s.SweepOnce(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestRunKeepsGoingAfterFailuresAndStopsOnCancel(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("store down")}
	s := NewSessionSweeper(sweeper, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRunDisabled(t *testing.T) {
	sweeper := &countingSweeper{}
	NewSessionSweeper(sweeper, 0, nil).Run(context.Background())
	assert.Zero(t, sweeper.calls.Load())
}
