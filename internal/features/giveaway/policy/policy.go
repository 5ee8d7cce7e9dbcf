// Package policy decides whether a participant may win a giveaway and
// how many weighted entries they get. Exempt predicates and bonus rules
// are registered strategies: records store a strategy name plus
// parameters instead of executable code.
package policy

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/platform/chat"
)

// BonusFunc computes the extra entries a bonus rule grants a member.
type BonusFunc func(m chat.Member, params json.RawMessage) (int, error)

// ExemptFunc decides whether a member is disqualified from winning.
type ExemptFunc func(m chat.Member, params json.RawMessage) (bool, error)

// Registry maps strategy names to policy functions.
type Registry struct {
	mu     sync.RWMutex
	bonus  map[string]BonusFunc
	exempt map[string]ExemptFunc
}

func NewRegistry() *Registry {
	r := &Registry{
		bonus:  make(map[string]BonusFunc),
		exempt: make(map[string]ExemptFunc),
	}
	r.registerBuiltins()
	return r
}

// RegisterBonus registers a named bonus-entry strategy.
func (r *Registry) RegisterBonus(name string, fn BonusFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bonus[name] = fn
}

// RegisterExempt registers a named exempt-member strategy.
func (r *Registry) RegisterExempt(name string, fn ExemptFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exempt[name] = fn
}

func (r *Registry) bonusFunc(name string) (BonusFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.bonus[name]
	return fn, ok
}

func (r *Registry) exemptFunc(name string) (ExemptFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.exempt[name]
	return fn, ok
}

// IsEligible decides whether the member may win the giveaway. A failing
// exempt predicate counts as not exempt; the error is returned alongside
// so the caller can log it, never aborting selection.
func (r *Registry) IsEligible(g *models.Giveaway, m chat.Member, selfID string, exclude map[string]bool) (bool, error) {
	if m.ID == selfID {
		return false, nil
	}
	if m.Bot && !g.BotsCanWin {
		return false, nil
	}
	if exclude[m.ID] {
		return false, nil
	}
	for _, perm := range g.ExemptPermissions {
		if m.HasPermission(perm) {
			return false, nil
		}
	}
	if g.ExemptMembers != nil {
		fn, ok := r.exemptFunc(g.ExemptMembers.Strategy)
		if !ok {
			return true, fmt.Errorf("unknown exempt strategy %q", g.ExemptMembers.Strategy)
		}
		exempt, err := fn(m, g.ExemptMembers.Params)
		if err != nil {
			// Treat as not exempt, surface the error for logging.
			return true, fmt.Errorf("exempt strategy %q: %w", g.ExemptMembers.Strategy, err)
		}
		if exempt {
			return false, nil
		}
	}
	return true, nil
}

// ExtraEntries computes the extra weighted entries a member gets from
// the giveaway's bonus rules: the maximum across non-cumulative rules
// plus the sum of cumulative ones, each contribution clamped to >= 0.
// Failing rules contribute zero; their errors are collected.
func (r *Registry) ExtraEntries(g *models.Giveaway, m chat.Member) (int, []error) {
	var (
		errs       []error
		cumulative int
		best       int
	)
	for _, rule := range g.BonusEntries {
		fn, ok := r.bonusFunc(rule.Strategy)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown bonus strategy %q", rule.Strategy))
			continue
		}
		n, err := fn(m, rule.Params)
		if err != nil {
			errs = append(errs, fmt.Errorf("bonus strategy %q: %w", rule.Strategy, err))
			continue
		}
		if n < 0 {
			n = 0
		}
		if rule.Cumulative {
			cumulative += n
		} else if n > best {
			best = n
		}
	}
	return best + cumulative, errs
}

// Weight returns the total entries of an eligible member: the base
// entry plus bonus extras.
func (r *Registry) Weight(g *models.Giveaway, m chat.Member) (int, []error) {
	extra, errs := r.ExtraEntries(g, m)
	return 1 + extra, errs
}

type hasRoleParams struct {
	Role    string `json:"role"`
	Entries int    `json:"entries"`
}

type memberAgeParams struct {
	// MinMillis is the minimum membership age in milliseconds.
	MinMillis int64 `json:"minMillis"`
	Entries   int   `json:"entries"`
	Now       int64 `json:"now,omitempty"` // test hook, epoch ms
}

func (r *Registry) registerBuiltins() {
	r.bonus["hasRole"] = func(m chat.Member, raw json.RawMessage) (int, error) {
		var p hasRoleParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return 0, err
		}
		if p.Role == "" {
			return 0, fmt.Errorf("hasRole: missing role")
		}
		if m.HasRole(p.Role) {
			return p.Entries, nil
		}
		return 0, nil
	}

	r.bonus["memberAge"] = func(m chat.Member, raw json.RawMessage) (int, error) {
		var p memberAgeParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return 0, err
		}
		now := p.Now
		if now == 0 {
			now = time.Now().UnixMilli()
		}
		if m.JoinedAt > 0 && now-m.JoinedAt >= p.MinMillis {
			return p.Entries, nil
		}
		return 0, nil
	}

	r.exempt["hasRole"] = func(m chat.Member, raw json.RawMessage) (bool, error) {
		var p hasRoleParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return false, err
		}
		if p.Role == "" {
			return false, fmt.Errorf("hasRole: missing role")
		}
		return m.HasRole(p.Role), nil
	}
}
