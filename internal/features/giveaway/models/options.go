package models

import "encoding/json"

// GiveawayStart is the payload for starting a giveaway.
type GiveawayStart struct {
	ChannelID string `json:"channelId" binding:"required"`
	GuildID   string `json:"guildId" binding:"required"`
	Prize     string `json:"prize" binding:"required,max=400"`
	// Duration in milliseconds; required for non-drop giveaways.
	Duration    int64 `json:"duration" binding:"min=0"`
	WinnerCount int   `json:"winnerCount" binding:"required,min=1"`

	Reaction          string          `json:"reaction,omitempty"`
	BotsCanWin        bool            `json:"botsCanWin,omitempty"`
	ExemptPermissions []string        `json:"exemptPermissions,omitempty"`
	ExemptMembers     *ExemptMembers  `json:"exemptMembers,omitempty"`
	BonusEntries      []BonusEntry    `json:"bonusEntries,omitempty"`
	LastChance        *LastChance     `json:"lastChance,omitempty"`
	IsDrop            bool            `json:"isDrop,omitempty"`
	HostedBy          string          `json:"hostedBy,omitempty"`
	EmbedColor        int             `json:"embedColor,omitempty"`
	EmbedColorEnd     int             `json:"embedColorEnd,omitempty"`
	Thumbnail         string          `json:"thumbnail,omitempty"`
	Image             string          `json:"image,omitempty"`
	Messages          *Messages       `json:"messages,omitempty"`
	ExtraData         json.RawMessage `json:"extraData,omitempty"`
}

// GiveawayEdit is the payload for editing a running giveaway. Nil
// fields are left untouched. Time changes apply to non-drop giveaways
// only.
type GiveawayEdit struct {
	NewPrize       *string `json:"newPrize,omitempty" binding:"omitempty,max=400"`
	NewWinnerCount *int    `json:"newWinnerCount,omitempty" binding:"omitempty,min=1"`

	// AddTime extends the scheduled end by a millisecond delta.
	AddTime *int64 `json:"addTime,omitempty"`
	// SetEndTimestamp replaces the scheduled end outright (epoch ms).
	SetEndTimestamp *int64 `json:"setEndTimestamp,omitempty"`

	NewBonusEntries []BonusEntry    `json:"newBonusEntries,omitempty"`
	NewLastChance   *LastChance     `json:"newLastChance,omitempty"`
	NewThumbnail    *string         `json:"newThumbnail,omitempty"`
	NewImage        *string         `json:"newImage,omitempty"`
	NewMessages     *Messages       `json:"newMessages,omitempty"`
	NewExtraData    json.RawMessage `json:"newExtraData,omitempty"`
}

// GiveawayPause is the payload for pausing a giveaway.
type GiveawayPause struct {
	// UnpauseAfter is an optional absolute resume timestamp (epoch ms).
	// When absent or in the past, the giveaway pauses indefinitely.
	UnpauseAfter int64  `json:"unpauseAfter,omitempty"`
	Content      string `json:"content,omitempty"`
}

// GiveawayReroll is the payload for rerolling an ended giveaway.
type GiveawayReroll struct {
	// WinnerCount overrides the configured winner count when positive.
	WinnerCount int `json:"winnerCount,omitempty" binding:"omitempty,min=1"`
}

// EntrySignal is a live reaction event routed to the registry.
type EntrySignal struct {
	ParticipantID string   `json:"participantId" binding:"required"`
	Username      string   `json:"username,omitempty"`
	Bot           bool     `json:"bot,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
}
