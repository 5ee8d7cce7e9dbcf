package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeGiveaway() *Giveaway {
	return &Giveaway{
		MessageID:   "msg-1",
		ChannelID:   "chan-1",
		GuildID:     "guild-1",
		StartAt:     0,
		EndAt:       5000,
		WinnerCount: 1,
		Prize:       "X",
		Reaction:    "🎉",
	}
}

func TestApplyPauseIndefiniteCapturesRemaining(t *testing.T) {
	g := activeGiveaway()
	now := time.UnixMilli(1000)

	require.NoError(t, g.ApplyPause(now, 0, ""))

	assert.True(t, g.IsPaused())
	assert.Equal(t, int64(4000), g.Pause.RemainingTime)
	assert.Equal(t, EndAtInfinite, g.EndAt)
	assert.Zero(t, g.Pause.UnpauseAfter)
}

func TestApplyUnpauseRestoresRemaining(t *testing.T) {
	g := activeGiveaway()
	require.NoError(t, g.ApplyPause(time.UnixMilli(1000), 0, ""))

	require.NoError(t, g.ApplyUnpause(time.UnixMilli(9000)))

	assert.False(t, g.IsPaused())
	assert.Equal(t, int64(13000), g.EndAt)
}

func TestApplyPauseWithResumeTimeExtendsEnd(t *testing.T) {
	g := activeGiveaway()
	now := time.UnixMilli(1000)

	require.NoError(t, g.ApplyPause(now, 3000, "paused!"))

	assert.Equal(t, int64(3000), g.Pause.UnpauseAfter)
	assert.Zero(t, g.Pause.RemainingTime)
	// End pushed out by the 2000ms pause window.
	assert.Equal(t, int64(7000), g.EndAt)
	assert.Equal(t, "paused!", g.Pause.Content)
}

func TestApplyPauseGuards(t *testing.T) {
	now := time.UnixMilli(1000)

	ended := activeGiveaway()
	ended.Ended = true
	assert.ErrorIs(t, ended.ApplyPause(now, 0, ""), ErrGiveawayEnded)

	drop := activeGiveaway()
	drop.IsDrop = true
	drop.EndAt = EndAtInfinite
	assert.ErrorIs(t, drop.ApplyPause(now, 0, ""), ErrIsDrop)

	paused := activeGiveaway()
	require.NoError(t, paused.ApplyPause(now, 0, ""))
	assert.ErrorIs(t, paused.ApplyPause(now, 0, ""), ErrAlreadyPaused)
}

func TestApplyUnpauseGuards(t *testing.T) {
	now := time.UnixMilli(1000)

	g := activeGiveaway()
	assert.ErrorIs(t, g.ApplyUnpause(now), ErrNotPaused)

	g.Ended = true
	assert.ErrorIs(t, g.ApplyUnpause(now), ErrGiveawayEnded)
}

func TestMarkEndedSnapsEndTime(t *testing.T) {
	early := activeGiveaway()
	require.NoError(t, early.MarkEnded(time.UnixMilli(2000)))
	assert.True(t, early.Ended)
	assert.Equal(t, int64(2000), early.EndAt)

	drop := activeGiveaway()
	drop.IsDrop = true
	drop.EndAt = EndAtInfinite
	require.NoError(t, drop.MarkEnded(time.UnixMilli(3000)))
	assert.Equal(t, int64(3000), drop.EndAt)

	pastDue := activeGiveaway()
	require.NoError(t, pastDue.MarkEnded(time.UnixMilli(5001)))
	assert.Equal(t, int64(5000), pastDue.EndAt)
}

func TestMarkEndedIsTerminal(t *testing.T) {
	g := activeGiveaway()
	require.NoError(t, g.MarkEnded(time.UnixMilli(5001)))
	assert.ErrorIs(t, g.MarkEnded(time.UnixMilli(6000)), ErrGiveawayEnded)
}

func TestValidate(t *testing.T) {
	g := activeGiveaway()
	assert.NoError(t, g.Validate())

	g.WinnerCount = 0
	assert.ErrorIs(t, g.Validate(), ErrInvalidWinnerCount)

	g = activeGiveaway()
	g.Prize = ""
	assert.ErrorIs(t, g.Validate(), ErrInvalidPrize)

	g = activeGiveaway()
	g.IsDrop = true
	g.BonusEntries = []BonusEntry{{Strategy: "hasRole"}}
	assert.ErrorIs(t, g.Validate(), ErrDropFeatureClash)
}

func TestRemainingMillis(t *testing.T) {
	g := activeGiveaway()
	assert.Equal(t, int64(4000), g.RemainingMillis(time.UnixMilli(1000)))

	g.EndAt = EndAtInfinite
	assert.Equal(t, EndAtInfinite, g.RemainingMillis(time.UnixMilli(1000)))
	assert.False(t, g.IsExpired(time.UnixMilli(1000)))
}

func TestInLastChance(t *testing.T) {
	g := activeGiveaway()
	g.LastChance = &LastChance{Enabled: true, Threshold: 2000}

	assert.False(t, g.InLastChance(time.UnixMilli(1000)))
	assert.True(t, g.InLastChance(time.UnixMilli(3500)))
	assert.False(t, g.InLastChance(time.UnixMilli(5000)))
}

func TestJSONOmitsEmptyOptionalFields(t *testing.T) {
	g := activeGiveaway()
	data, err := json.Marshal(g)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "messageId")
	assert.Contains(t, raw, "endAt")
	assert.NotContains(t, raw, "winnerIds")
	assert.NotContains(t, raw, "pauseOptions")
	assert.NotContains(t, raw, "bonusEntries")
	assert.NotContains(t, raw, "isDrop")
}

func TestCloneIsDeep(t *testing.T) {
	g := activeGiveaway()
	g.WinnerIDs = []string{"a"}

	cp := g.Clone()
	cp.WinnerIDs[0] = "b"
	cp.Prize = "Y"

	assert.Equal(t, "a", g.WinnerIDs[0])
	assert.Equal(t, "X", g.Prize)
}

func TestStateDerivation(t *testing.T) {
	g := activeGiveaway()
	assert.Equal(t, StateActive, g.State())

	require.NoError(t, g.ApplyPause(time.UnixMilli(1000), 0, ""))
	assert.Equal(t, StatePaused, g.State())

	require.NoError(t, g.ApplyUnpause(time.UnixMilli(2000)))
	assert.Equal(t, StateActive, g.State())

	require.NoError(t, g.MarkEnded(time.UnixMilli(3000)))
	assert.Equal(t, StateEnded, g.State())
}
