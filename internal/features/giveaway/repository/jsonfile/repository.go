// Package jsonfile persists giveaway records as a JSON array in a
// single file. Saves write the whole array to a temporary file and
// rename it into place.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/repository"
)

type fileRepository struct {
	path string
}

func NewFileGiveawayRepository(path string) repository.GiveawayRepository {
	return &fileRepository{path: path}
}

func (r *fileRepository) LoadAll(ctx context.Context) ([]*models.Giveaway, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		if err := r.writeAtomic([]byte("[]\n")); err != nil {
			return nil, fmt.Errorf("failed to create store: %w", err)
		}
		return []*models.Giveaway{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	if len(data) == 0 {
		return []*models.Giveaway{}, nil
	}

	var giveaways []*models.Giveaway
	if err := json.Unmarshal(data, &giveaways); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrMalformedStore, err)
	}
	if giveaways == nil {
		giveaways = []*models.Giveaway{}
	}
	return giveaways, nil
}

func (r *fileRepository) SaveAll(ctx context.Context, giveaways []*models.Giveaway) error {
	if giveaways == nil {
		giveaways = []*models.Giveaway{}
	}
	data, err := json.MarshalIndent(giveaways, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal giveaways: %w", err)
	}
	return r.writeAtomic(append(data, '\n'))
}

func (r *fileRepository) writeAtomic(data []byte) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".giveaways-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, r.path)
}
