//go:build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gamelog/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func seedGame(t *testing.T, db *Database, ctx context.Context, date time.Time, home, away string, pk int) *models.Game {
	t.Helper()

	game := &models.Game{Date: date, HomeTeam: home, AwayTeam: away, Attended: true}
	_, err := db.Games.Upsert(ctx, game)
	require.NoError(t, err)

	if pk > 0 {
		meta := &models.GameMeta{GamePk: pk, HomeScore: intPtr(5), AwayScore: intPtr(3), VenueID: 3, VenueName: "Fenway Park"}
		require.NoError(t, db.Games.SetEnrichment(ctx, game.ID, meta, false))
	}

	return game
}

func TestGameRepository_Upsert(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	game := &models.Game{Date: date, HomeTeam: "BOS", AwayTeam: "NYY", Attended: true}

	inserted, err := db.Games.Upsert(ctx, game)
	require.NoError(t, err, "Should insert game")
	assert.True(t, inserted)
	assert.NotZero(t, game.ID)
	assert.Equal(t, models.SourceManual, game.Source)

	// Same natural key is not duplicated
	again := &models.Game{Date: date, HomeTeam: "BOS", AwayTeam: "NYY", Attended: true}
	inserted, err = db.Games.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, game.ID, again.ID)

	count, err := db.Games.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGameRepository_SetEnrichment(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := seedGame(t, db, ctx, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), "BOS", "NYY", 745123)

	retrieved, err := db.Games.GetByGamePk(ctx, 745123)
	require.NoError(t, err)
	assert.Equal(t, game.ID, retrieved.ID)
	assert.Equal(t, int32(5), retrieved.HomeScore.Int32)
	assert.Equal(t, "Fenway Park", retrieved.VenueName.String)

	// Without force, existing values are kept
	meta := &models.GameMeta{GamePk: 745123, HomeScore: intPtr(9), AwayScore: intPtr(0)}
	require.NoError(t, db.Games.SetEnrichment(ctx, game.ID, meta, false))

	retrieved, err = db.Games.GetByGamePk(ctx, 745123)
	require.NoError(t, err)
	assert.Equal(t, int32(5), retrieved.HomeScore.Int32, "enrichment is written once")

	// With force, they are overwritten
	require.NoError(t, db.Games.SetEnrichment(ctx, game.ID, meta, true))

	retrieved, err = db.Games.GetByGamePk(ctx, 745123)
	require.NoError(t, err)
	assert.Equal(t, int32(9), retrieved.HomeScore.Int32)
	assert.False(t, retrieved.VenueName.Valid)

	err = db.Games.SetEnrichment(ctx, 999999, meta, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGameRepository_Listings(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seedGame(t, db, ctx, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), "BOS", "NYY", 745123)
	seedGame(t, db, ctx, time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), "BOS", "NYY", 745124)
	seedGame(t, db, ctx, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), "BOS", "TB", 0)

	pending, err := db.Games.ListNeedingEnrichment(ctx, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "TB", pending[0].AwayTeam)

	all, err := db.Games.ListNeedingEnrichment(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	attended, err := db.Games.ListAttended(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, attended, 2)

	one, err := db.Games.ListAttended(ctx, 745124)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, int32(745124), one[0].GamePk.Int32)

	missing, err := db.Reports.GamesMissingPk(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 1)

	_, err = db.Games.GetByGamePk(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGameRepository_ListAll(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seedGame(t, db, ctx, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), "BOS", "NYY", 745123)
	seedGame(t, db, ctx, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), "BOS", "TB", 0)

	games, err := db.Games.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "TB", games[0].AwayTeam, "newest first")
	assert.False(t, games[0].GamePk.Valid)
	assert.Equal(t, int32(745123), games[1].GamePk.Int32)
}

func TestGameRepository_ListMissingWinExp(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seedGame(t, db, ctx, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), "BOS", "NYY", 745123)
	seedGame(t, db, ctx, time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), "BOS", "NYY", 745124)
	seedGame(t, db, ctx, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), "BOS", "TB", 745125)

	_, err := db.Events.SaveGameEvents(ctx, 745123, testEvents(745123, 0.1, 0.2), false)
	require.NoError(t, err)

	noWinExp := testEvents(745124, 0.1, 0.2)
	for i := range noWinExp {
		noWinExp[i].HomeWinExp = sql.NullFloat64{}
		noWinExp[i].AwayWinExp = sql.NullFloat64{}
	}
	_, err = db.Events.SaveGameEvents(ctx, 745124, noWinExp, false)
	require.NoError(t, err)

	games, err := db.Games.ListMissingWinExp(ctx, 0)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, int32(745124), games[0].GamePk.Int32)
	assert.Equal(t, int32(745125), games[1].GamePk.Int32, "games without events are included")

	one, err := db.Games.ListMissingWinExp(ctx, 745123)
	require.NoError(t, err)
	assert.Empty(t, one)
}
