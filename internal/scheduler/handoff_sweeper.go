package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/stylhelpr/stylhelpr-backend/pkg/logger"
)

// DefaultSweepSpec runs the sweep at the top of every minute.
const DefaultSweepSpec = "* * * * *"

// Sweeper drops expired entries and reports how many were removed.
type Sweeper interface {
	Sweep() int
}

// HandoffSweeper purges expired slots from the in-memory handoff store.
// Redis expires keys on its own and needs no sweeper.
type HandoffSweeper struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
}

func NewHandoffSweeper(sweeper Sweeper, spec string) *HandoffSweeper {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	return &HandoffSweeper{
		cron:    cron.New(),
		sweeper: sweeper,
		spec:    spec,
	}
}

func (s *HandoffSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		logger.Error("Failed to add cron job for handoff sweep", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Handoff sweeper started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// RunOnce performs a single sweep.
func (s *HandoffSweeper) RunOnce() {
	if removed := s.sweeper.Sweep(); removed > 0 {
		logger.Info("Expired handoffs removed", map[string]interface{}{
			"removed": removed,
		})
	}
}

// Stop stops scheduling and waits for a running sweep to finish or ctx to
// be done.
func (s *HandoffSweeper) Stop(ctx context.Context) {
	logger.Info("Stopping handoff sweeper...")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	logger.Info("Handoff sweeper stopped")
}
