package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/platform/chat"
)

// displayState computes what the announcement message should currently
// show. It depends only on the record and the configured end instant,
// never on the wall-clock remainder, so consecutive sweeps of an
// unchanged giveaway produce identical states and no edit calls.
func (m *Manager) displayState(g *models.Giveaway, now time.Time) chat.DisplayState {
	defaults := models.DefaultMessages()
	pick := func(s, fallback string) string {
		if s != "" {
			return s
		}
		return fallback
	}
	drawing := strings.ReplaceAll(
		pick(g.Messages.Drawing, defaults.Drawing),
		"{timestamp}",
		fmt.Sprintf("<t:%d:R>", g.EndAt/1000),
	)

	switch {
	case g.Ended:
		desc := pick(g.Messages.NoWinner, defaults.NoWinner)
		if len(g.WinnerIDs) > 0 {
			desc = "Winners: " + mentionList(g.WinnerIDs)
		}
		return chat.DisplayState{
			Content:     pick(g.Messages.Ended, defaults.Ended),
			Description: desc,
			Color:       g.EmbedColorEnd,
		}

	case g.IsPaused():
		content := "⏸️ **GIVEAWAY PAUSED** ⏸️"
		if g.Pause != nil && g.Pause.Content != "" {
			content = g.Pause.Content
		}
		desc := "Paused indefinitely"
		if g.Pause != nil && g.Pause.UnpauseAfter > 0 {
			desc = fmt.Sprintf("Resumes <t:%d:R>", g.Pause.UnpauseAfter/1000)
		}
		return chat.DisplayState{
			Content:     content,
			Description: desc,
			Color:       g.EmbedColor,
		}

	case g.IsDrop:
		return chat.DisplayState{
			Content:     pick(g.Messages.Announcement, defaults.Announcement),
			Description: pick(g.Messages.DropWaiting, defaults.DropWaiting),
			Color:       g.EmbedColor,
		}

	case g.InLastChance(now):
		content := "⚠️ **LAST CHANCE TO ENTER** ⚠️"
		color := g.EmbedColor
		if g.LastChance != nil {
			if g.LastChance.Content != "" {
				content = g.LastChance.Content
			}
			if g.LastChance.EmbedColor != 0 {
				color = g.LastChance.EmbedColor
			}
		}
		return chat.DisplayState{
			Content:     content,
			Description: drawing,
			Color:       color,
		}

	default:
		return chat.DisplayState{
			Content:     pick(g.Messages.Announcement, defaults.Announcement),
			Description: drawing,
			Color:       g.EmbedColor,
		}
	}
}

// renderLocked edits the announcement when the computed display state
// differs from what was last shown. A missing announcement message
// triggers opportunistic garbage collection of the record. Caller
// holds e.mu.
func (m *Manager) renderLocked(ctx context.Context, e *entry) error {
	state := m.displayState(e.g, m.now())
	if e.rendered && state == e.lastDisplay {
		return nil
	}

	handle := chat.MessageHandle{ChannelID: e.g.ChannelID, MessageID: e.g.MessageID}
	if err := m.messenger.EditAnnouncement(ctx, handle, state); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			m.collectDeletedLocked(ctx, e)
			return err
		}
		return err
	}
	e.lastDisplay = state
	e.rendered = true
	return nil
}

// collectDeletedLocked drops a record whose announcement message is
// gone. Caller holds e.mu.
func (m *Manager) collectDeletedLocked(ctx context.Context, e *entry) {
	m.log.Info().Str("message_id", e.g.MessageID).Msg("Announcement message deleted, collecting record")
	m.clearTimerLocked(e)
	m.remove(e.g.MessageID)
	if err := m.persist(ctx); err != nil {
		m.log.Error().Err(err).Str("message_id", e.g.MessageID).Msg("Failed to persist after collection")
	}
}

// scheduleLastChanceLocked arms a one-shot re-render at the last-chance
// threshold crossing. Idempotent; caller holds e.mu.
func (m *Manager) scheduleLastChanceLocked(e *entry) {
	g := e.g
	if e.lastChanceTimer != nil || g.LastChance == nil || !g.LastChance.Enabled ||
		g.Ended || g.IsPaused() || g.IsDrop || g.EndAt == models.EndAtInfinite {
		return
	}
	now := m.now()
	untilCrossing := g.RemainingMillis(now) - g.LastChance.Threshold
	if untilCrossing <= 0 {
		return // already inside the threshold; the sweep render covers it
	}
	if untilCrossing > maxWakeupLead.Milliseconds() {
		return // too far out; a later sweep arms the timer
	}
	messageID := g.MessageID
	e.lastChanceTimer = time.AfterFunc(time.Duration(untilCrossing)*time.Millisecond, func() {
		if err := m.Render(context.Background(), messageID); err != nil && !errors.Is(err, ErrNotFound) {
			m.log.Warn().Err(err).Str("message_id", messageID).Msg("Last-chance re-render failed")
		}
	})
}

// Render recomputes and, if needed, pushes the display state of one
// giveaway.
func (m *Manager) Render(ctx context.Context, messageID string) error {
	e, err := m.lookup(messageID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return m.renderLocked(ctx, e)
}

func mentionList(ids []string) string {
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<@" + id + ">"
	}
	return strings.Join(mentions, ", ")
}

// winAnnouncement renders the winner notification text.
func winAnnouncement(g *models.Giveaway, winners []string) string {
	defaults := models.DefaultMessages()
	msg := g.Messages.Win
	if msg == "" {
		msg = defaults.Win
	}
	msg = strings.ReplaceAll(msg, "{winners}", mentionList(winners))
	msg = strings.ReplaceAll(msg, "{prize}", g.Prize)
	return msg
}

// noWinnerAnnouncement renders the no-winner notification text.
func noWinnerAnnouncement(g *models.Giveaway) string {
	if g.Messages.NoWinner != "" {
		return g.Messages.NoWinner
	}
	return models.DefaultMessages().NoWinner
}
