package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/repository"
)

func TestLoadAllCreatesMissingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "giveaways.json")
	repo := NewFileGiveawayRepository(path)

	giveaways, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, giveaways)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestSaveAllRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaways.json")
	repo := NewFileGiveawayRepository(path)

	in := []*models.Giveaway{
		{
			MessageID:   "msg-1",
			ChannelID:   "channel-1",
			GuildID:     "guild-1",
			StartAt:     1000,
			EndAt:       6000,
			WinnerCount: 2,
			Prize:       "Nitro",
			Reaction:    "🎉",
			BonusEntries: []models.BonusEntry{
				{Strategy: "hasRole", Cumulative: true},
			},
		},
		{
			MessageID:   "msg-2",
			ChannelID:   "channel-1",
			GuildID:     "guild-1",
			StartAt:     2000,
			EndAt:       models.EndAtInfinite,
			WinnerCount: 1,
			Prize:       "Steam key",
			Reaction:    "🎉",
			IsDrop:      true,
		},
	}
	require.NoError(t, repo.SaveAll(context.Background(), in))

	out, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, in[1], out[1])
}

func TestSaveAllOverwritesPreviousContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaways.json")
	repo := NewFileGiveawayRepository(path)

	first := []*models.Giveaway{{MessageID: "msg-1", Prize: "a", WinnerCount: 1}}
	require.NoError(t, repo.SaveAll(context.Background(), first))

	second := []*models.Giveaway{{MessageID: "msg-2", Prize: "b", WinnerCount: 1}}
	require.NoError(t, repo.SaveAll(context.Background(), second))

	out, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "msg-2", out[0].MessageID)
}

func TestSaveAllNilSlice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaways.json")
	repo := NewFileGiveawayRepository(path)

	require.NoError(t, repo.SaveAll(context.Background(), nil))
	out, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoadAllEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaways.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	repo := NewFileGiveawayRepository(path)
	out, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoadAllMalformedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaways.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	repo := NewFileGiveawayRepository(path)
	_, err := repo.LoadAll(context.Background())
	assert.ErrorIs(t, err, repository.ErrMalformedStore)
}
