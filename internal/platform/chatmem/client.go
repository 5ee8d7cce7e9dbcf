// Package chatmem is an in-memory chat platform binding. It backs local
// development and tests; a real deployment plugs a concrete platform
// client into the same interfaces.
package chatmem

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/reinacchi/eris-giveaways/internal/platform/chat"
)

type message struct {
	handle   chat.DisplayState
	reactors map[string][]string // reaction -> ordered participant ids
}

// Client implements chat.Messenger and chat.Participation against
// process-local state.
type Client struct {
	mu       sync.RWMutex
	messages map[string]*message     // message id -> message
	members  map[string]chat.Member  // participant id -> member
	posted   []chat.MessageHandle
}

func New() *Client {
	return &Client{
		messages: make(map[string]*message),
		members:  make(map[string]chat.Member),
	}
}

func (c *Client) PostAnnouncement(_ context.Context, channelID string, state chat.DisplayState) (chat.MessageHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	handle := chat.MessageHandle{ChannelID: channelID, MessageID: uuid.New().String()}
	c.messages[handle.MessageID] = &message{
		handle:   state,
		reactors: make(map[string][]string),
	}
	c.posted = append(c.posted, handle)
	return handle, nil
}

func (c *Client) EditAnnouncement(_ context.Context, handle chat.MessageHandle, state chat.DisplayState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.messages[handle.MessageID]
	if !ok {
		return chat.ErrNotFound
	}
	msg.handle = state
	return nil
}

func (c *Client) FetchAnnouncement(_ context.Context, channelID, messageID string) (chat.MessageHandle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.messages[messageID]; !ok {
		return chat.MessageHandle{}, chat.ErrNotFound
	}
	return chat.MessageHandle{ChannelID: channelID, MessageID: messageID}, nil
}

func (c *Client) DeleteAnnouncement(_ context.Context, handle chat.MessageHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.messages[handle.MessageID]; !ok {
		return chat.ErrNotFound
	}
	delete(c.messages, handle.MessageID)
	return nil
}

func (c *Client) AddEntrySignal(_ context.Context, handle chat.MessageHandle, reaction string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.messages[handle.MessageID]
	if !ok {
		return chat.ErrNotFound
	}
	if _, ok := msg.reactors[reaction]; !ok {
		msg.reactors[reaction] = []string{}
	}
	return nil
}

func (c *Client) FetchReactors(_ context.Context, handle chat.MessageHandle, reaction string, after string, limit int) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msg, ok := c.messages[handle.MessageID]
	if !ok {
		return nil, chat.ErrNotFound
	}

	all := msg.reactors[reaction]
	start := 0
	if after != "" {
		for i, id := range all {
			if id == after {
				start = i + 1
				break
			}
		}
	}
	if start >= len(all) {
		return nil, nil
	}
	end := start + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	page := make([]string, end-start)
	copy(page, all[start:end])
	return page, nil
}

func (c *Client) ResolveMember(_ context.Context, _ string, participantID string) (chat.Member, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.members[participantID]
	if !ok {
		return chat.Member{}, chat.ErrNotFound
	}
	return m, nil
}

// UpsertMember registers a member so ResolveMember can find it.
func (c *Client) UpsertMember(m chat.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[m.ID] = m
}

// AddReactor records a participant reaction on a message.
func (c *Client) AddReactor(messageID, reaction, participantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.messages[messageID]
	if !ok {
		return
	}
	for _, id := range msg.reactors[reaction] {
		if id == participantID {
			return
		}
	}
	msg.reactors[reaction] = append(msg.reactors[reaction], participantID)
}

// RemoveReactor removes a participant reaction from a message.
func (c *Client) RemoveReactor(messageID, reaction, participantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.messages[messageID]
	if !ok {
		return
	}
	ids := msg.reactors[reaction]
	for i, id := range ids {
		if id == participantID {
			msg.reactors[reaction] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// Display returns the current display state of a message.
func (c *Client) Display(messageID string) (chat.DisplayState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msg, ok := c.messages[messageID]
	if !ok {
		return chat.DisplayState{}, false
	}
	return msg.handle, true
}

// Posted returns the handles of all posted announcements in order.
func (c *Client) Posted() []chat.MessageHandle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]chat.MessageHandle, len(c.posted))
	copy(out, c.posted)
	return out
}
