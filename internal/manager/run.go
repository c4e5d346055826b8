package manager

import (
	"context"

	"go.uber.org/zap"
)

// TickFunc runs before every tick. It may call Shutdown; an error aborts
// the run.
type TickFunc func(m *Manager) error

// Run drives Communicate and Finalize until shutdown has been requested
// and every accepted input was emitted. Cancelling ctx requests shutdown;
// outstanding requests still drain.
func (m *Manager) Run(ctx context.Context, onTick TickFunc) error {
	for {
		if onTick != nil {
			if err := onTick(m); err != nil {
				return err
			}
		}
		if ctx.Err() != nil {
			m.Shutdown(context.Cause(ctx).Error())
		}
		if m.Done() {
			m.logger.Info("Pipeline drained",
				zap.Int("accepted", m.stats.Accepted),
				zap.Int("finalized", m.stats.Finalized),
				zap.Int("failed", m.stats.Failed),
				zap.Int("retries", m.stats.Retries))
			return nil
		}

		if err := m.Communicate(); err != nil {
			return err
		}
		if err := m.Finalize(); err != nil {
			return err
		}
	}
}
