// Package roll implements weighted sampling without replacement over a
// pool of participant ids, with deterministic substitution when a draw
// collides with an already-selected or ineligible entrant.
package roll

import (
	"github.com/reinacchi/eris-giveaways/internal/utils/random"
)

// Source produces a random integer in [0, n). The default draws from
// crypto/rand; tests inject deterministic sources.
type Source func(n int) (int, error)

type Roller struct {
	intn Source
}

func New() *Roller {
	return &Roller{intn: random.Intn}
}

// NewWithSource returns a Roller drawing from the given source.
func NewWithSource(src Source) *Roller {
	return &Roller{intn: src}
}

// Roll draws up to desiredCount distinct winners from the pool. The
// pool is the weighted substrate: each entrant appears once per entry,
// so extra occurrences raise the draw probability. Draws remove single
// occurrences, reducing but not eliminating the remaining weight of
// entrants already drawn. Candidates that are already winners or fail
// the eligibility re-check are replaced by the first not-yet-selected
// eligible entrant remaining in the pool. An empty or fully ineligible
// pool yields an empty result, never an error.
func (r *Roller) Roll(pool []string, desiredCount int, eligible func(id string) bool) ([]string, error) {
	if len(pool) == 0 || desiredCount <= 0 {
		return nil, nil
	}
	if eligible == nil {
		eligible = func(string) bool { return true }
	}

	remaining := make([]string, len(pool))
	copy(remaining, pool)

	distinct := make(map[string]struct{}, len(pool))
	for _, id := range pool {
		distinct[id] = struct{}{}
	}
	draws := desiredCount
	if len(distinct) < draws {
		draws = len(distinct)
	}

	winners := make([]string, 0, draws)
	picked := make(map[string]bool, draws)

	for i := 0; i < draws && len(remaining) > 0; i++ {
		idx, err := r.intn(len(remaining))
		if err != nil {
			return winners, err
		}
		candidate := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		if !picked[candidate] && eligible(candidate) {
			winners = append(winners, candidate)
			picked[candidate] = true
			continue
		}

		// Collision or failed re-check: substitute the first
		// remaining entrant that is new and eligible.
		substituted := false
		for j, id := range remaining {
			if picked[id] || !eligible(id) {
				continue
			}
			winners = append(winners, id)
			picked[id] = true
			remaining = append(remaining[:j], remaining[j+1:]...)
			substituted = true
			break
		}
		if !substituted {
			// Pool holds no further usable entrants.
			break
		}
	}

	return winners, nil
}
