package models

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

var (
	ErrGiveawayEnded      = errors.New("giveaway has already ended")
	ErrGiveawayNotEnded   = errors.New("giveaway has not ended yet")
	ErrInvalidWinnerCount = errors.New("winner count must be greater than 0")
	ErrInvalidPrize       = errors.New("prize must be a non-empty string of at most 400 characters")
	ErrInvalidDuration    = errors.New("duration must be greater than 0")
	ErrAlreadyPaused      = errors.New("giveaway is already paused")
	ErrNotPaused          = errors.New("giveaway is not paused")
	ErrIsDrop             = errors.New("operation not available for drop giveaways")
	ErrDropFeatureClash   = errors.New("drop giveaways cannot carry pause, last-chance or bonus-entry features")
)

const (
	// EndAtInfinite marks a giveaway with no scheduled end: drops
	// before their threshold fires and giveaways paused indefinitely.
	EndAtInfinite int64 = math.MaxInt64

	MaxPrizeLength = 400
)

// GiveawayState is the derived lifecycle state of a giveaway.
type GiveawayState string

const (
	StateActive GiveawayState = "active"
	StatePaused GiveawayState = "paused"
	StateEnded  GiveawayState = "ended"
)

// PauseState captures pause bookkeeping. Exactly one of UnpauseAfter
// and RemainingTime is meaningful while paused: a fixed resume
// timestamp, or the duration captured when paused indefinitely.
type PauseState struct {
	IsPaused      bool   `json:"isPaused"`
	UnpauseAfter  int64  `json:"unpauseAfter,omitempty"`  // epoch ms
	RemainingTime int64  `json:"remainingTime,omitempty"` // ms
	Content       string `json:"content,omitempty"`
}

// LastChance configures the near-end display mode.
type LastChance struct {
	Enabled    bool   `json:"enabled"`
	Threshold  int64  `json:"threshold,omitempty"` // ms before end
	Content    string `json:"content,omitempty"`
	EmbedColor int    `json:"embedColor,omitempty"`
}

// BonusEntry references a registered weighting strategy by name.
// Cumulative contributions sum; non-cumulative ones compete and only
// the maximum is kept.
type BonusEntry struct {
	Strategy   string          `json:"strategy"`
	Params     json.RawMessage `json:"params,omitempty"`
	Cumulative bool            `json:"cumulative,omitempty"`
}

// ExemptMembers references a registered disqualification predicate.
type ExemptMembers struct {
	Strategy string          `json:"strategy"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// Messages carries the presentation strings of a giveaway. They are
// opaque to the core except where they feed the computed display state.
type Messages struct {
	Announcement string `json:"announcement,omitempty"`
	Drawing      string `json:"drawing,omitempty"`
	DropWaiting  string `json:"dropWaiting,omitempty"`
	Ended        string `json:"ended,omitempty"`
	Win          string `json:"win,omitempty"`
	NoWinner     string `json:"noWinner,omitempty"`
}

// DefaultMessages returns the stock presentation strings.
func DefaultMessages() Messages {
	return Messages{
		Announcement: "🎉 **GIVEAWAY** 🎉",
		Drawing:      "Drawing: {timestamp}",
		DropWaiting:  "Drop! First to react wins",
		Ended:        "🎉 **GIVEAWAY ENDED** 🎉",
		Win:          "Congratulations, {winners}! You won **{prize}**!",
		NoWinner:     "The giveaway was cancelled due to no valid participations.",
	}
}

// Giveaway is the durable record of one giveaway event. Timestamps are
// epoch milliseconds. MessageID is assigned once the announcement
// message exists and is immutable afterwards.
type Giveaway struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
	GuildID   string `json:"guildId"`

	StartAt int64 `json:"startAt"`
	EndAt   int64 `json:"endAt"`

	Ended     bool     `json:"ended"`
	WinnerIDs []string `json:"winnerIds,omitempty"`

	WinnerCount       int             `json:"winnerCount"`
	Prize             string          `json:"prize"`
	Reaction          string          `json:"reaction"`
	BotsCanWin        bool            `json:"botsCanWin,omitempty"`
	ExemptPermissions []string        `json:"exemptPermissions,omitempty"`
	ExemptMembers     *ExemptMembers  `json:"exemptMembers,omitempty"`
	BonusEntries      []BonusEntry    `json:"bonusEntries,omitempty"`
	LastChance        *LastChance     `json:"lastChance,omitempty"`
	Pause             *PauseState     `json:"pauseOptions,omitempty"`
	IsDrop            bool            `json:"isDrop,omitempty"`
	HostedBy          string          `json:"hostedBy,omitempty"`

	EmbedColor    int             `json:"embedColor,omitempty"`
	EmbedColorEnd int             `json:"embedColorEnd,omitempty"`
	Thumbnail     string          `json:"thumbnail,omitempty"`
	Image         string          `json:"image,omitempty"`
	Messages      Messages        `json:"messages"`
	ExtraData     json.RawMessage `json:"extraData,omitempty"`
}

// State derives the lifecycle state of the record.
func (g *Giveaway) State() GiveawayState {
	switch {
	case g.Ended:
		return StateEnded
	case g.IsPaused():
		return StatePaused
	default:
		return StateActive
	}
}

// IsPaused reports whether the giveaway is currently paused.
func (g *Giveaway) IsPaused() bool {
	return g.Pause != nil && g.Pause.IsPaused
}

// RemainingMillis returns the time left until the scheduled end, in
// milliseconds. Giveaways with no scheduled end report EndAtInfinite.
func (g *Giveaway) RemainingMillis(now time.Time) int64 {
	if g.EndAt == EndAtInfinite {
		return EndAtInfinite
	}
	return g.EndAt - now.UnixMilli()
}

// IsExpired reports whether the scheduled end has passed.
func (g *Giveaway) IsExpired(now time.Time) bool {
	if g.EndAt == EndAtInfinite {
		return false
	}
	return g.RemainingMillis(now) <= 0
}

// InLastChance reports whether the giveaway is inside its configured
// last-chance threshold.
func (g *Giveaway) InLastChance(now time.Time) bool {
	if g.LastChance == nil || !g.LastChance.Enabled || g.Ended || g.IsPaused() || g.IsDrop {
		return false
	}
	remaining := g.RemainingMillis(now)
	return remaining > 0 && remaining <= g.LastChance.Threshold
}

// Validate checks the configuration invariants of a record.
func (g *Giveaway) Validate() error {
	if g.WinnerCount <= 0 {
		return ErrInvalidWinnerCount
	}
	if g.Prize == "" || len(g.Prize) > MaxPrizeLength {
		return ErrInvalidPrize
	}
	if g.IsDrop && (g.LastChance != nil || len(g.BonusEntries) > 0 || g.Pause != nil) {
		return ErrDropFeatureClash
	}
	return nil
}

// ApplyPause transitions the record into the paused state. With a
// future resume timestamp the end is pushed out by the pause window;
// otherwise the remaining time is captured and the end unscheduled.
func (g *Giveaway) ApplyPause(now time.Time, unpauseAfter int64, content string) error {
	switch {
	case g.Ended:
		return ErrGiveawayEnded
	case g.IsDrop:
		return ErrIsDrop
	case g.IsPaused():
		return ErrAlreadyPaused
	}

	nowMs := now.UnixMilli()
	pause := &PauseState{IsPaused: true, Content: content}
	if unpauseAfter > nowMs {
		pause.UnpauseAfter = unpauseAfter
		g.EndAt += unpauseAfter - nowMs
	} else {
		pause.RemainingTime = g.EndAt - nowMs
		g.EndAt = EndAtInfinite
	}
	g.Pause = pause
	return nil
}

// ApplyUnpause transitions the record back to active, restoring the
// captured remaining time when the pause had no fixed resume point.
func (g *Giveaway) ApplyUnpause(now time.Time) error {
	switch {
	case g.Ended:
		return ErrGiveawayEnded
	case g.IsDrop:
		return ErrIsDrop
	case !g.IsPaused():
		return ErrNotPaused
	}

	if g.Pause.RemainingTime > 0 {
		g.EndAt = now.UnixMilli() + g.Pause.RemainingTime
	}
	g.Pause = &PauseState{IsPaused: false, Content: g.Pause.Content}
	return nil
}

// MarkEnded closes the record. Drops and early or unscheduled ends have
// their end time snapped to the actual end instant.
func (g *Giveaway) MarkEnded(now time.Time) error {
	if g.Ended {
		return ErrGiveawayEnded
	}
	nowMs := now.UnixMilli()
	if g.IsDrop || g.EndAt == EndAtInfinite || g.EndAt > nowMs {
		g.EndAt = nowMs
	}
	g.Ended = true
	return nil
}

// Clone returns a deep copy of the record for safe hand-off to event
// subscribers and API responses.
func (g *Giveaway) Clone() *Giveaway {
	data, err := json.Marshal(g)
	if err != nil {
		cp := *g
		return &cp
	}
	var cp Giveaway
	if err := json.Unmarshal(data, &cp); err != nil {
		fallback := *g
		return &fallback
	}
	return &cp
}
