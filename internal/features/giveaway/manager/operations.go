package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/platform/chat"
)

// Start creates a giveaway, posts its announcement and registers it.
// The record is persisted only after message creation succeeds, so no
// orphan records without a message id can exist.
func (m *Manager) Start(ctx context.Context, input *models.GiveawayStart) (*models.Giveaway, error) {
	now := m.now()

	g := &models.Giveaway{
		ChannelID:         input.ChannelID,
		GuildID:           input.GuildID,
		StartAt:           now.UnixMilli(),
		WinnerCount:       input.WinnerCount,
		Prize:             input.Prize,
		Reaction:          input.Reaction,
		BotsCanWin:        input.BotsCanWin,
		ExemptPermissions: input.ExemptPermissions,
		ExemptMembers:     input.ExemptMembers,
		BonusEntries:      input.BonusEntries,
		LastChance:        input.LastChance,
		IsDrop:            input.IsDrop,
		HostedBy:          input.HostedBy,
		EmbedColor:        input.EmbedColor,
		EmbedColorEnd:     input.EmbedColorEnd,
		Thumbnail:         input.Thumbnail,
		Image:             input.Image,
		Messages:          models.DefaultMessages(),
		ExtraData:         input.ExtraData,
	}
	if input.Messages != nil {
		g.Messages = *input.Messages
	}
	if g.Reaction == "" {
		g.Reaction = m.opts.DefaultReaction
	}
	if g.IsDrop {
		g.EndAt = models.EndAtInfinite
	} else {
		if input.Duration <= 0 {
			return nil, models.ErrInvalidDuration
		}
		g.EndAt = g.StartAt + input.Duration
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	state := m.displayState(g, now)
	handle, err := m.messenger.PostAnnouncement(ctx, g.ChannelID, state)
	if err != nil {
		return nil, fmt.Errorf("failed to post announcement: %w", err)
	}
	g.MessageID = handle.MessageID

	if err := m.messenger.AddEntrySignal(ctx, handle, g.Reaction); err != nil {
		m.log.Warn().Err(err).Str("message_id", g.MessageID).Msg("Failed to add entry signal")
	}

	e := newEntry(g)
	e.lastDisplay = state
	e.rendered = true
	m.insert(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := m.persistLocked(ctx, e); err != nil {
		// Roll back so a failed start leaves no half-registered state.
		m.remove(g.MessageID)
		if derr := m.messenger.DeleteAnnouncement(ctx, handle); derr != nil && !isNotFound(derr) {
			m.log.Warn().Err(derr).Str("message_id", g.MessageID).Msg("Failed to delete announcement after rollback")
		}
		return nil, err
	}
	m.armTimerLocked(e)
	m.scheduleLastChanceLocked(e)

	m.events.emit(EventStarted, Payload{Giveaway: g.Clone()})
	return g.Clone(), nil
}

// Edit mutates the whitelisted fields of a running giveaway. Time
// changes apply to non-drop giveaways only; if the new remaining time
// is not positive the giveaway ends immediately.
func (m *Manager) Edit(ctx context.Context, messageID string, input *models.GiveawayEdit) (*models.Giveaway, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.g
	if g.Ended {
		return nil, models.ErrGiveawayEnded
	}

	if input.NewPrize != nil {
		if *input.NewPrize == "" || len(*input.NewPrize) > models.MaxPrizeLength {
			return nil, models.ErrInvalidPrize
		}
		g.Prize = *input.NewPrize
	}
	if input.NewWinnerCount != nil {
		if *input.NewWinnerCount <= 0 {
			return nil, models.ErrInvalidWinnerCount
		}
		g.WinnerCount = *input.NewWinnerCount
	}

	timeChanged := false
	if !g.IsDrop {
		if input.AddTime != nil && g.EndAt != models.EndAtInfinite {
			g.EndAt += *input.AddTime
			timeChanged = true
		}
		if input.SetEndTimestamp != nil {
			g.EndAt = *input.SetEndTimestamp
			timeChanged = true
		}
	}

	if input.NewBonusEntries != nil {
		g.BonusEntries = input.NewBonusEntries
	}
	if input.NewLastChance != nil {
		g.LastChance = input.NewLastChance
	}
	if input.NewThumbnail != nil {
		g.Thumbnail = *input.NewThumbnail
	}
	if input.NewImage != nil {
		g.Image = *input.NewImage
	}
	if input.NewMessages != nil {
		g.Messages = *input.NewMessages
	}
	if input.NewExtraData != nil {
		g.ExtraData = input.NewExtraData
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	if timeChanged {
		m.clearTimerLocked(e)
	}

	if err := m.persistLocked(ctx, e); err != nil {
		return nil, err
	}

	m.events.emit(EventEdited, Payload{Giveaway: g.Clone()})

	if timeChanged && !g.IsPaused() && g.IsExpired(m.now()) {
		if _, err := m.endLocked(ctx, e); err != nil {
			return nil, err
		}
		return g.Clone(), nil
	}

	if err := m.renderLocked(ctx, e); err != nil {
		m.log.Warn().Err(err).Str("message_id", messageID).Msg("Failed to re-render after edit")
	}
	m.armTimerLocked(e)
	m.scheduleLastChanceLocked(e)
	return g.Clone(), nil
}

// End closes a giveaway and rolls its winners. Ending twice is
// rejected; a failure to fetch participants leaves the record open so
// the caller can retry.
func (m *Manager) End(ctx context.Context, messageID string) ([]string, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return m.endLocked(ctx, e)
}

func (m *Manager) endLocked(ctx context.Context, e *entry) ([]string, error) {
	g := e.g
	prevEndAt := g.EndAt
	if err := g.MarkEnded(m.now()); err != nil {
		return nil, err
	}
	m.clearTimerLocked(e)

	pool, distinct, err := m.buildPool(ctx, g)
	if err != nil {
		// Leave the giveaway open for a retried end.
		g.Ended = false
		g.EndAt = prevEndAt
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}

	if err := m.persistLocked(ctx, e); err != nil {
		m.log.Error().Err(err).Str("message_id", g.MessageID).Msg("Failed to persist ended giveaway")
	}

	desired := g.WinnerCount
	if desired > distinct {
		desired = distinct
	}
	winners, rollErr := m.roller.Roll(pool, desired, nil)
	if rollErr != nil {
		m.log.Error().Err(rollErr).Str("message_id", g.MessageID).Msg("Winner draw aborted early")
	}

	if len(winners) > 0 {
		g.WinnerIDs = winners
	}
	if err := m.persistLocked(ctx, e); err != nil {
		m.log.Error().Err(err).Str("message_id", g.MessageID).Msg("Failed to persist winners")
	}

	if err := m.renderLocked(ctx, e); err != nil {
		m.log.Warn().Err(err).Str("message_id", g.MessageID).Msg("Failed to render ended giveaway")
	}

	announcement := noWinnerAnnouncement(g)
	if len(winners) > 0 {
		announcement = winAnnouncement(g, winners)
	}
	if _, err := m.messenger.PostAnnouncement(ctx, g.ChannelID, chat.DisplayState{Content: announcement}); err != nil {
		m.log.Warn().Err(err).Str("message_id", g.MessageID).Msg("Failed to post end announcement")
	}

	m.events.emit(EventEnded, Payload{Giveaway: g.Clone(), Winners: winners})
	return winners, nil
}

// Pause suspends a running giveaway. With a future resume timestamp the
// end is pushed out accordingly; otherwise the remaining time is
// captured and the end unscheduled.
func (m *Manager) Pause(ctx context.Context, messageID string, input *models.GiveawayPause) (*models.Giveaway, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.g
	if input == nil {
		input = &models.GiveawayPause{}
	}
	if err := g.ApplyPause(m.now(), input.UnpauseAfter, input.Content); err != nil {
		return nil, err
	}
	m.clearTimerLocked(e)

	if err := m.persistLocked(ctx, e); err != nil {
		return nil, err
	}
	if err := m.renderLocked(ctx, e); err != nil {
		m.log.Warn().Err(err).Str("message_id", messageID).Msg("Failed to render paused giveaway")
	}

	m.events.emit(EventPaused, Payload{Giveaway: g.Clone()})
	return g.Clone(), nil
}

// Unpause resumes a paused giveaway, restoring the captured remaining
// time when the pause had no fixed resume point.
func (m *Manager) Unpause(ctx context.Context, messageID string) (*models.Giveaway, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return m.unpauseLocked(ctx, e)
}

func (m *Manager) unpauseLocked(ctx context.Context, e *entry) (*models.Giveaway, error) {
	g := e.g
	if err := g.ApplyUnpause(m.now()); err != nil {
		return nil, err
	}

	if err := m.persistLocked(ctx, e); err != nil {
		return nil, err
	}
	if err := m.renderLocked(ctx, e); err != nil {
		m.log.Warn().Err(err).Str("message_id", g.MessageID).Msg("Failed to render unpaused giveaway")
	}
	m.armTimerLocked(e)
	m.scheduleLastChanceLocked(e)

	m.events.emit(EventUnpaused, Payload{Giveaway: g.Clone()})
	return g.Clone(), nil
}

// Reroll redraws the winners of an ended giveaway. Previous winners are
// excluded unless excluding them would leave the pool empty.
func (m *Manager) Reroll(ctx context.Context, messageID string, input *models.GiveawayReroll) ([]string, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.g
	if !g.Ended {
		return nil, models.ErrGiveawayNotEnded
	}
	if g.IsDrop {
		return nil, models.ErrIsDrop
	}

	desired := g.WinnerCount
	if input != nil && input.WinnerCount > 0 {
		desired = input.WinnerCount
	}

	pool, _, err := m.buildPool(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}

	exclude := make(map[string]bool, len(g.WinnerIDs))
	for _, id := range g.WinnerIDs {
		exclude[id] = true
	}
	winners, rollErr := m.roller.Roll(pool, desired, func(id string) bool { return !exclude[id] })
	if rollErr != nil {
		m.log.Error().Err(rollErr).Str("message_id", messageID).Msg("Winner draw aborted early")
	}
	if len(winners) == 0 && len(pool) > 0 {
		// Excluding previous winners emptied the pool; fall back.
		winners, rollErr = m.roller.Roll(pool, desired, nil)
		if rollErr != nil {
			m.log.Error().Err(rollErr).Str("message_id", messageID).Msg("Winner draw aborted early")
		}
	}

	if len(winners) == 0 {
		if _, err := m.messenger.PostAnnouncement(ctx, g.ChannelID, chat.DisplayState{Content: noWinnerAnnouncement(g)}); err != nil {
			m.log.Warn().Err(err).Str("message_id", messageID).Msg("Failed to post reroll announcement")
		}
		return nil, nil
	}

	g.WinnerIDs = winners
	if err := m.persistLocked(ctx, e); err != nil {
		return nil, err
	}
	if err := m.renderLocked(ctx, e); err != nil {
		m.log.Warn().Err(err).Str("message_id", messageID).Msg("Failed to render rerolled giveaway")
	}
	if _, err := m.messenger.PostAnnouncement(ctx, g.ChannelID, chat.DisplayState{Content: winAnnouncement(g, winners)}); err != nil {
		m.log.Warn().Err(err).Str("message_id", messageID).Msg("Failed to post reroll announcement")
	}

	m.events.emit(EventRerolled, Payload{Giveaway: g.Clone(), Winners: winners})
	return winners, nil
}

// Delete removes a giveaway from the registry and store, best-effort
// deleting its announcement message.
func (m *Manager) Delete(ctx context.Context, messageID string) error {
	e, err := m.lookup(messageID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m.clearTimerLocked(e)
	m.remove(messageID)
	if err := m.persist(ctx); err != nil {
		return err
	}

	handle := chat.MessageHandle{ChannelID: e.g.ChannelID, MessageID: messageID}
	if err := m.messenger.DeleteAnnouncement(ctx, handle); err != nil && !isNotFound(err) {
		m.log.Warn().Err(err).Str("message_id", messageID).Msg("Failed to delete announcement")
	}

	m.events.emit(EventDeleted, Payload{Giveaway: e.g.Clone()})
	return nil
}

// EntryAdd routes a live reaction-added event to the owning giveaway.
// Drop giveaways end as soon as the qualifying entrant count reaches
// the winner count.
func (m *Manager) EntryAdd(ctx context.Context, messageID string, sig *models.EntrySignal) error {
	e, err := m.lookup(messageID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.g
	member := memberFromSignal(sig)

	if g.Ended {
		m.events.emit(EventEntrySignalOnEndedGiveaway, Payload{Giveaway: g.Clone(), Member: &member})
		return nil
	}

	m.events.emit(EventEntrySignalAdded, Payload{Giveaway: g.Clone(), Member: &member})

	if g.IsDrop {
		_, distinct, err := m.buildPool(ctx, g)
		if err != nil {
			m.log.Warn().Err(err).Str("message_id", messageID).Msg("Failed to count drop entrants")
			return nil
		}
		if distinct >= g.WinnerCount {
			if _, err := m.endLocked(ctx, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// EntryRemove routes a live reaction-removed event to the owning
// giveaway.
func (m *Manager) EntryRemove(ctx context.Context, messageID string, sig *models.EntrySignal) error {
	e, err := m.lookup(messageID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.g
	member := memberFromSignal(sig)
	if g.Ended {
		m.events.emit(EventEntrySignalOnEndedGiveaway, Payload{Giveaway: g.Clone(), Member: &member})
		return nil
	}
	m.events.emit(EventEntrySignalRemoved, Payload{Giveaway: g.Clone(), Member: &member})
	return nil
}

func memberFromSignal(sig *models.EntrySignal) chat.Member {
	if sig == nil {
		return chat.Member{}
	}
	return chat.Member{
		ID:          sig.ParticipantID,
		Username:    sig.Username,
		Bot:         sig.Bot,
		Roles:       sig.Roles,
		Permissions: sig.Permissions,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, chat.ErrNotFound)
}
