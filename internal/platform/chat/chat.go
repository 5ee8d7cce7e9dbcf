// Package chat abstracts the chat platform the giveaway core runs
// against. The core never talks to a concrete platform; a bot process
// supplies implementations of these interfaces.
package chat

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("chat: message not found")

// Member is a resolved guild member.
type Member struct {
	ID          string
	Username    string
	Bot         bool
	Roles       []string
	Permissions []string
	JoinedAt    int64 // epoch ms
}

// HasPermission reports whether the member holds the given permission tag.
func (m Member) HasPermission(perm string) bool {
	for _, p := range m.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasRole reports whether the member holds the given role.
func (m Member) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// MessageHandle identifies an announcement message on the platform.
type MessageHandle struct {
	ChannelID string
	MessageID string
}

// DisplayState is the computed presentation of a giveaway announcement.
// The registry diffs consecutive states to avoid redundant edit calls.
type DisplayState struct {
	Content     string
	Description string
	Color       int
}

// Messenger posts and maintains giveaway announcement messages.
type Messenger interface {
	PostAnnouncement(ctx context.Context, channelID string, state DisplayState) (MessageHandle, error)
	EditAnnouncement(ctx context.Context, handle MessageHandle, state DisplayState) error
	FetchAnnouncement(ctx context.Context, channelID, messageID string) (MessageHandle, error)
	DeleteAnnouncement(ctx context.Context, handle MessageHandle) error
	AddEntrySignal(ctx context.Context, handle MessageHandle, reaction string) error
}

// Participation resolves who entered a giveaway.
type Participation interface {
	// FetchReactors returns one page of participant ids that reacted
	// with the entry signal, starting after the given cursor id.
	FetchReactors(ctx context.Context, handle MessageHandle, reaction string, after string, limit int) ([]string, error)

	// ResolveMember resolves a participant to a guild member. Returns
	// ErrNotFound for users that left the guild.
	ResolveMember(ctx context.Context, guildID, participantID string) (Member, error)
}
