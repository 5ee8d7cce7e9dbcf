// Package repository defines the persistence gateway of the giveaway
// registry: a load-all/save-all contract where every save is a full
// overwrite of the store.
package repository

import (
	"context"
	"errors"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
)

var (
	// ErrMalformedStore is returned when the persisted content is not
	// a well-formed sequence of giveaway records.
	ErrMalformedStore = errors.New("giveaway store content is malformed")
)

type GiveawayRepository interface {
	// LoadAll returns every persisted giveaway record. A missing store
	// is created empty rather than reported as an error.
	LoadAll(ctx context.Context) ([]*models.Giveaway, error)

	// SaveAll overwrites the store with the given records.
	SaveAll(ctx context.Context, giveaways []*models.Giveaway) error
}
