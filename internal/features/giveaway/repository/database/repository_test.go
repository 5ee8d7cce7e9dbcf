package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestSaveAllRoundTrip(t *testing.T) {
	repo, err := NewDatabaseGiveawayRepository(newTestDB(t))
	require.NoError(t, err)

	in := []*models.Giveaway{
		{MessageID: "msg-1", ChannelID: "channel-1", Prize: "Nitro", WinnerCount: 1, StartAt: 1000, EndAt: 6000},
		{MessageID: "msg-2", ChannelID: "channel-1", Prize: "Steam key", WinnerCount: 2, StartAt: 2000, EndAt: 9000,
			WinnerIDs: []string{"alice"}, Ended: true},
	}
	require.NoError(t, repo.SaveAll(context.Background(), in))

	out, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.ElementsMatch(t, in, out)
}

func TestSaveAllReplacesTableContents(t *testing.T) {
	repo, err := NewDatabaseGiveawayRepository(newTestDB(t))
	require.NoError(t, err)

	require.NoError(t, repo.SaveAll(context.Background(), []*models.Giveaway{
		{MessageID: "msg-1", Prize: "a", WinnerCount: 1},
	}))
	require.NoError(t, repo.SaveAll(context.Background(), []*models.Giveaway{
		{MessageID: "msg-2", Prize: "b", WinnerCount: 1},
	}))

	out, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "msg-2", out[0].MessageID)
}

func TestSaveAllEmptyClearsStore(t *testing.T) {
	repo, err := NewDatabaseGiveawayRepository(newTestDB(t))
	require.NoError(t, err)

	require.NoError(t, repo.SaveAll(context.Background(), []*models.Giveaway{
		{MessageID: "msg-1", Prize: "a", WinnerCount: 1},
	}))
	require.NoError(t, repo.SaveAll(context.Background(), nil))

	out, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "dsn")
	assert.Error(t, err)
}
