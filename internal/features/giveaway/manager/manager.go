// Package manager holds the authoritative in-memory registry of
// giveaways and runs their lifecycle: a periodic sweep advances timers,
// triggers ends, persists state and dispatches notifications. Per
// giveaway wake-up timers are an optimization only; the sweep is the
// authoritative trigger.
package manager

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/reinacchi/eris-giveaways/internal/common/logger"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/policy"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/repository"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/roll"
	"github.com/reinacchi/eris-giveaways/internal/platform/chat"
)

var ErrNotFound = errors.New("giveaway not found")

const (
	defaultSweepInterval    = 10 * time.Second
	defaultEndedRetention   = 14 * 24 * time.Hour
	defaultReactionPageSize = 100
	defaultReaction         = "🎉"

	// maxWakeupLead bounds how far ahead a wake-up timer is armed.
	// Farther ends are left to a later sweep, which re-arms as the end
	// approaches; it also keeps the millisecond-to-Duration conversion
	// from overflowing on far-future end timestamps.
	maxWakeupLead = 7 * 24 * time.Hour
)

type Options struct {
	// SweepInterval is the authoritative scheduler tick.
	SweepInterval time.Duration

	// EndedRetention keeps ended giveaways in the registry and store
	// past their end time before garbage collection.
	EndedRetention time.Duration

	ReactionPageSize int

	// BotUserID is the platform's own automated account, always
	// excluded from winning.
	BotUserID string

	DefaultReaction string
}

func (o *Options) withDefaults() {
	if o.SweepInterval <= 0 {
		o.SweepInterval = defaultSweepInterval
	}
	if o.EndedRetention <= 0 {
		o.EndedRetention = defaultEndedRetention
	}
	if o.ReactionPageSize <= 0 {
		o.ReactionPageSize = defaultReactionPageSize
	}
	if o.DefaultReaction == "" {
		o.DefaultReaction = defaultReaction
	}
}

// entry pairs a record with its registry-side scheduling state. The
// entry mutex serializes all mutating operations against one giveaway.
// snap holds an immutable copy of the record for the store writer, so
// persisting one giveaway never reads another's live record.
type entry struct {
	mu sync.Mutex
	g  *models.Giveaway

	snap atomic.Pointer[models.Giveaway]

	timer           *time.Timer
	lastChanceTimer *time.Timer

	lastDisplay chat.DisplayState
	rendered    bool
}

func newEntry(g *models.Giveaway) *entry {
	e := &entry{g: g}
	e.snap.Store(g.Clone())
	return e
}

type Manager struct {
	repo          repository.GiveawayRepository
	messenger     chat.Messenger
	participation chat.Participation
	policies      *policy.Registry
	roller        *roll.Roller
	opts          Options
	now           func() time.Time
	log           zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	events emitter
}

func New(
	repo repository.GiveawayRepository,
	messenger chat.Messenger,
	participation chat.Participation,
	policies *policy.Registry,
	opts Options,
) *Manager {
	opts.withDefaults()
	if policies == nil {
		policies = policy.NewRegistry()
	}
	return &Manager{
		repo:          repo,
		messenger:     messenger,
		participation: participation,
		policies:      policies,
		roller:        roll.New(),
		opts:          opts,
		now:           time.Now,
		log:           logger.With("giveaway-manager"),
		entries:       make(map[string]*entry),
	}
}

// Load populates the registry from the persistence gateway and arms
// wake-up timers for active giveaways.
func (m *Manager) Load(ctx context.Context) error {
	giveaways, err := m.repo.LoadAll(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	for _, g := range giveaways {
		if g.MessageID == "" {
			// Orphan without an identity key; drop it.
			m.log.Warn().Str("channel_id", g.ChannelID).Msg("Skipping stored giveaway without message id")
			continue
		}
		m.entries[g.MessageID] = newEntry(g)
	}
	entries := m.snapshotLocked()
	m.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if !e.g.Ended && !e.g.IsPaused() {
			m.armTimerLocked(e)
		}
		e.mu.Unlock()
	}

	m.log.Info().Int("count", len(giveaways)).Msg("Giveaways loaded")
	return nil
}

// Run executes the sweep loop until the context is cancelled. Callers
// typically invoke it in its own goroutine after Load.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep(ctx)
		case <-ctx.Done():
			m.stopTimers()
			return
		}
	}
}

// Get returns a copy of the giveaway with the given message id.
func (m *Manager) Get(messageID string) (*models.Giveaway, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.g.Clone(), nil
}

// List returns copies of all registered giveaways ordered by start time.
func (m *Manager) List() []*models.Giveaway {
	m.mu.RLock()
	entries := m.snapshotLocked()
	m.mu.RUnlock()

	out := make([]*models.Giveaway, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.g.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartAt != out[j].StartAt {
			return out[i].StartAt < out[j].StartAt
		}
		return out[i].MessageID < out[j].MessageID
	})
	return out
}

func (m *Manager) lookup(messageID string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *Manager) insert(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.g.MessageID] = e
}

func (m *Manager) remove(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, messageID)
}

func (m *Manager) snapshotLocked() []*entry {
	out := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}

// persistLocked refreshes the entry's store snapshot and rewrites the
// whole store. Caller holds e.mu.
func (m *Manager) persistLocked(ctx context.Context, e *entry) error {
	e.snap.Store(e.g.Clone())
	return m.persist(ctx)
}

// persist rewrites the whole store from the per-entry snapshots.
// Snapshots are immutable, so live records mutating under their own
// entry mutex never race the store writer. Records are ordered for
// stable output.
func (m *Manager) persist(ctx context.Context) error {
	m.mu.RLock()
	giveaways := make([]*models.Giveaway, 0, len(m.entries))
	for _, e := range m.entries {
		if g := e.snap.Load(); g != nil {
			giveaways = append(giveaways, g)
		}
	}
	m.mu.RUnlock()

	sort.Slice(giveaways, func(i, j int) bool {
		if giveaways[i].StartAt != giveaways[j].StartAt {
			return giveaways[i].StartAt < giveaways[j].StartAt
		}
		return giveaways[i].MessageID < giveaways[j].MessageID
	})
	return m.repo.SaveAll(ctx, giveaways)
}

// fetchAllReactors pages through the entry-signal reactors of a
// giveaway in fixed-size batches.
func (m *Manager) fetchAllReactors(ctx context.Context, g *models.Giveaway) ([]string, error) {
	handle := chat.MessageHandle{ChannelID: g.ChannelID, MessageID: g.MessageID}
	var (
		all   []string
		after string
	)
	for {
		batch, err := m.participation.FetchReactors(ctx, handle, g.Reaction, after, m.opts.ReactionPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < m.opts.ReactionPageSize {
			return all, nil
		}
		after = batch[len(batch)-1]
	}
}

// buildPool materializes the weighted selection pool: each eligible
// reactor appears once per entry. The second result is the number of
// distinct eligible entrants. Policy evaluation errors are logged keyed
// by the giveaway's message id and never abort pool construction.
func (m *Manager) buildPool(ctx context.Context, g *models.Giveaway) ([]string, int, error) {
	reactors, err := m.fetchAllReactors(ctx, g)
	if err != nil {
		return nil, 0, err
	}

	var (
		pool     []string
		distinct int
	)
	seen := make(map[string]bool, len(reactors))
	for _, id := range reactors {
		if seen[id] {
			continue
		}
		seen[id] = true

		member, err := m.participation.ResolveMember(ctx, g.GuildID, id)
		if err != nil {
			if !errors.Is(err, chat.ErrNotFound) {
				m.log.Warn().Err(err).
					Str("message_id", g.MessageID).
					Str("participant_id", id).
					Msg("Failed to resolve member")
			}
			continue
		}

		eligible, perr := m.policies.IsEligible(g, member, m.opts.BotUserID, nil)
		if perr != nil {
			m.log.Warn().Err(perr).
				Str("message_id", g.MessageID).
				Str("participant_id", id).
				Msg("Exempt policy evaluation failed")
		}
		if !eligible {
			continue
		}

		weight, werrs := m.policies.Weight(g, member)
		for _, werr := range werrs {
			m.log.Warn().Err(werr).
				Str("message_id", g.MessageID).
				Str("participant_id", id).
				Msg("Bonus policy evaluation failed")
		}

		distinct++
		for i := 0; i < weight; i++ {
			pool = append(pool, id)
		}
	}
	return pool, distinct, nil
}

// armTimerLocked arms the wake-up timer for the entry's scheduled end.
// Idempotent: an already-armed timer is left alone. Caller holds e.mu.
func (m *Manager) armTimerLocked(e *entry) {
	if e.timer != nil || e.g.Ended || e.g.IsPaused() || e.g.EndAt == models.EndAtInfinite {
		return
	}
	remaining := e.g.RemainingMillis(m.now())
	if remaining <= 0 {
		return // sweep will pick it up
	}
	if remaining > maxWakeupLead.Milliseconds() {
		return // too far out; a later sweep arms the timer
	}
	messageID := e.g.MessageID
	e.timer = time.AfterFunc(time.Duration(remaining)*time.Millisecond, func() {
		if _, err := m.End(context.Background(), messageID); err != nil &&
			!errors.Is(err, models.ErrGiveawayEnded) && !errors.Is(err, ErrNotFound) {
			m.log.Warn().Err(err).Str("message_id", messageID).Msg("Timer-triggered end failed")
		}
	})
}

// clearTimerLocked cancels the wake-up timers. Caller holds e.mu.
func (m *Manager) clearTimerLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.lastChanceTimer != nil {
		e.lastChanceTimer.Stop()
		e.lastChanceTimer = nil
	}
}

func (m *Manager) stopTimers() {
	m.mu.RLock()
	entries := m.snapshotLocked()
	m.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		m.clearTimerLocked(e)
		e.mu.Unlock()
	}
}
