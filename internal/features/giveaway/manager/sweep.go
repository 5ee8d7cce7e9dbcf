package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
)

// Sweep performs one scheduler pass over every registered giveaway:
// garbage-collects ended records past retention, triggers due ends,
// resumes paused giveaways whose resume condition is met, arms wake-up
// timers and refreshes stale announcements. One giveaway's failure
// never aborts the sweep of the others.
func (m *Manager) Sweep(ctx context.Context) {
	sweepID := uuid.NewString()[:8]

	m.mu.RLock()
	entries := m.snapshotLocked()
	m.mu.RUnlock()

	collected := 0
	for _, e := range entries {
		if err := m.sweepOne(ctx, e, &collected); err != nil {
			e.mu.Lock()
			messageID := e.g.MessageID
			e.mu.Unlock()
			m.log.Warn().Err(err).
				Str("sweep_id", sweepID).
				Str("message_id", messageID).
				Msg("Sweep of giveaway failed")
		}
	}

	if collected > 0 {
		if err := m.persist(ctx); err != nil {
			m.log.Error().Err(err).Str("sweep_id", sweepID).Msg("Failed to persist after garbage collection")
		}
		m.log.Debug().Str("sweep_id", sweepID).Int("collected", collected).Msg("Garbage collected ended giveaways")
	}
}

func (m *Manager) sweepOne(ctx context.Context, e *entry, collected *int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during sweep: %v", r)
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.g
	now := m.now()

	if g.Ended {
		retentionMs := m.opts.EndedRetention.Milliseconds()
		if g.EndAt != models.EndAtInfinite && now.UnixMilli() > g.EndAt+retentionMs {
			m.clearTimerLocked(e)
			m.remove(g.MessageID)
			*collected++
		}
		return nil
	}

	if g.IsDrop {
		_, distinct, err := m.buildPool(ctx, g)
		if err != nil {
			return err
		}
		if distinct >= g.WinnerCount {
			_, err := m.endLocked(ctx, e)
			return err
		}
		return m.renderLocked(ctx, e)
	}

	if g.IsPaused() {
		if g.Pause.UnpauseAfter > 0 && now.UnixMilli() >= g.Pause.UnpauseAfter {
			_, err := m.unpauseLocked(ctx, e)
			return err
		}
		return m.renderLocked(ctx, e)
	}

	if g.IsExpired(now) {
		_, err := m.endLocked(ctx, e)
		if errors.Is(err, models.ErrGiveawayEnded) {
			// A timer beat the sweep to it.
			return nil
		}
		return err
	}

	m.armTimerLocked(e)
	m.scheduleLastChanceLocked(e)
	return m.renderLocked(ctx, e)
}
