package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep() int {
	c.calls.Add(1)
	return 1
}

func TestHandoffSweeper_RunOnce(t *testing.T) {
	s := &countingSweeper{}
	NewHandoffSweeper(s, "").RunOnce()
	assert.Equal(t, int32(1), s.calls.Load())
}

func TestHandoffSweeper_Schedules(t *testing.T) {
	s := &countingSweeper{}
	sweeper := NewHandoffSweeper(s, "@every 10ms")
	require.NoError(t, sweeper.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	defer sweeper.Stop(ctx)

	assert.Eventually(t, func() bool { return s.calls.Load() > 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestHandoffSweeper_InvalidSpec(t *testing.T) {
	sweeper := NewHandoffSweeper(&countingSweeper{}, "not a cron spec")
	assert.Error(t, sweeper.Start())
}
