// Package redis persists giveaway records in Redis. The full-overwrite
// contract maps to a single key holding the serialized record array.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/repository"
)

const keyGiveawayRecords = "giveaways:records"

type redisRepository struct {
	client *redis.Client
}

func NewRedisGiveawayRepository(client *redis.Client) repository.GiveawayRepository {
	return &redisRepository{client: client}
}

func (r *redisRepository) LoadAll(ctx context.Context) ([]*models.Giveaway, error) {
	data, err := r.client.Get(ctx, keyGiveawayRecords).Bytes()
	if err == redis.Nil {
		return []*models.Giveaway{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load giveaways: %w", err)
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

func (r *redisRepository) SaveAll(ctx context.Context, giveaways []*models.Giveaway) error {
	if giveaways == nil {
		giveaways = []*models.Giveaway{}
	}
	data, err := json.Marshal(giveaways)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaways: %w", err)
	}
	if err := r.client.Set(ctx, keyGiveawayRecords, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save giveaways: %w", err)
	}
	return nil
}
