package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gamelog/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	games   []*models.Game
	all     []*models.Game
	events  map[int][]models.Event
	moments []models.Moment
	balls   []models.BattedBall
	err     error
}

func (f *fakeStore) ListAttended(context.Context, int) ([]*models.Game, error) {
	return f.games, nil
}

func (f *fakeStore) ListAll(context.Context) ([]*models.Game, error) {
	if f.all != nil {
		return f.all, nil
	}
	return f.games, nil
}

func (f *fakeStore) ListByGame(_ context.Context, gamePk int) ([]models.Event, error) {
	return f.events[gamePk], nil
}

func (f *fakeStore) TopMoments(_ context.Context, limit int, _ bool) ([]models.Moment, error) {
	return f.moments, f.err
}

func (f *fakeStore) WPALeaders(context.Context, int, bool) ([]models.WPALeader, error) {
	return nil, nil
}

func (f *fakeStore) LongestHomers(context.Context, int) ([]models.Homer, error) {
	return nil, nil
}

func (f *fakeStore) BattedBalls(context.Context) ([]models.BattedBall, error) {
	return f.balls, nil
}

func play(seq int, wpa, winExp float64, eventType string) models.Event {
	return models.Event{
		GamePk:     745123,
		Seq:        seq,
		BatterName: "Rafael Devers",
		EventType:  eventType,
		WPA:        sql.NullFloat64{Float64: wpa, Valid: true},
		HomeWinExp: sql.NullFloat64{Float64: winExp, Valid: true},
	}
}

func testStore() *fakeStore {
	return &fakeStore{
		games: []*models.Game{{
			ID:        1,
			Date:      time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			HomeTeam:  "BOS",
			AwayTeam:  "NYY",
			Attended:  true,
			GamePk:    sql.NullInt32{Int32: 745123, Valid: true},
			HomeScore: sql.NullInt32{Int32: 5, Valid: true},
			AwayScore: sql.NullInt32{Int32: 3, Valid: true},
		}},
		events: map[int][]models.Event{745123: {
			play(1, 0.30, 0.50, "double"),
			play(2, 0.01, 0.80, ""),
			play(3, -0.05, 0.80, "strikeout"),
			play(4, 0.10, 0.75, "single"),
		}},
		balls: []models.BattedBall{
			{HomeTeam: "BOS", AwayTeam: "NYY", LaunchSpeed: 104, LaunchAngle: 28, EventType: "home_run"},
			{HomeTeam: "BOS", AwayTeam: "NYY", LaunchSpeed: 88, LaunchAngle: 3, EventType: "", Description: "field_out"},
		},
	}
}

func TestHeartbeats(t *testing.T) {
	store := testStore()
	e := New(store, store, store, Options{ReferenceTeam: "NYY"})

	hbs, err := e.Heartbeats(context.Background())
	require.NoError(t, err)
	require.Len(t, hbs, 1)

	hb := hbs[0]
	assert.Equal(t, "L", hb.Result)
	assert.Equal(t, "5-3", hb.Final)
	assert.Equal(t, "NYY @ BOS", hb.Matchup)
	assert.True(t, hb.HasData)
	assert.Equal(t, 3, hb.TotalEvents, "pitch rows without an event type are not plotted")
	require.Len(t, hb.Points, 4)
	assert.InDelta(t, 0.85, hb.Points[3].Y, 1e-9)
}

func TestHeartbeats_RankedByDrama(t *testing.T) {
	store := testStore()
	store.games = append(store.games,
		&models.Game{
			ID:       2,
			Date:     time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC),
			HomeTeam: "BOS",
			AwayTeam: "TB",
			Attended: true,
			GamePk:   sql.NullInt32{Int32: 745124, Valid: true},
		},
		&models.Game{
			ID:       3,
			Date:     time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC),
			HomeTeam: "BOS",
			AwayTeam: "TOR",
			Attended: true,
			GamePk:   sql.NullInt32{Int32: 745125, Valid: true},
		},
	)
	store.events[745124] = []models.Event{
		play(1, 0.40, 0.50, "home_run"),
		play(2, -0.45, 0.90, "double"),
		play(3, 0.50, 0.45, "home_run"),
	}

	e := New(store, store, store, Options{})
	hbs, err := e.Heartbeats(context.Background())
	require.NoError(t, err)
	require.Len(t, hbs, 3)

	assert.Equal(t, 745124, hbs[0].GamePk, "biggest swings first")
	assert.Equal(t, 745123, hbs[1].GamePk)
	assert.Equal(t, 745125, hbs[2].GamePk, "games without data last")
	assert.Greater(t, hbs[0].DramaScore, hbs[1].DramaScore)
	assert.False(t, hbs[2].HasData)
}

func TestSparklines(t *testing.T) {
	store := testStore()
	store.games = append(store.games, &models.Game{
		ID:       2,
		Date:     time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC),
		HomeTeam: "BOS",
		AwayTeam: "TB",
		Attended: true,
		GamePk:   sql.NullInt32{Int32: 745124, Valid: true},
	})

	e := New(store, store, store, Options{})
	lines, err := e.Sparklines(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 1, "games without plays have no sparkline")

	assert.Equal(t, 745123, lines[0].GamePk)
	assert.Equal(t, []float64{0.3, 0.25, 0.35}, lines[0].Series)
}

func TestGames(t *testing.T) {
	store := testStore()
	store.all = append([]*models.Game{{
		ID:       2,
		Date:     time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
		HomeTeam: "BOS",
		AwayTeam: "TB",
		Attended: true,
	}}, store.games...)

	e := New(store, store, store, Options{ReferenceTeam: "BOS"})
	games, err := e.Games(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Nil(t, games[0].GamePk, "unmatched games are listed without an id")
	assert.Empty(t, games[0].Result)
	require.NotNil(t, games[1].GamePk)
	assert.Equal(t, int32(745123), *games[1].GamePk)
	assert.Equal(t, "W", games[1].Result)
	assert.Equal(t, "2024-06-15", games[1].Date)
}

func TestBarrelMap(t *testing.T) {
	store := testStore()
	e := New(store, store, store, Options{})

	points, err := e.BarrelMap(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.True(t, points[0].IsBarrel)
	assert.Equal(t, "home_run", points[0].Outcome)
	assert.False(t, points[1].IsBarrel)
	assert.Equal(t, "out", points[1].Outcome, "description stands in for a missing event type")
	assert.Equal(t, "NYY @ BOS", points[1].Matchup)
}

func TestRun_WritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public")
	store := testStore()
	e := New(store, store, store, Options{Dir: dir, ReferenceTeam: "BOS"})

	require.NoError(t, e.Run(context.Background()))

	files := []string{GamesFile, HeartbeatFile, SparklineFile, DramaIndexFile, WPALeadersFile, LongestHomersFile, BarrelMapFile}
	for _, name := range files {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	data, err := os.ReadFile(filepath.Join(dir, WPALeadersFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	data, err = os.ReadFile(filepath.Join(dir, HeartbeatFile))
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "W", decoded[0]["result"])
	assert.Contains(t, decoded[0], "heartbeat_points")
	assert.Contains(t, decoded[0], "drama_score")

	data, err = os.ReadFile(filepath.Join(dir, SparklineFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"game_pk":745123,"series":[0.3,0.25,0.35]}]`, string(data))

	data, err = os.ReadFile(filepath.Join(dir, GamesFile))
	require.NoError(t, err)
	var games []map[string]any
	require.NoError(t, json.Unmarshal(data, &games))
	require.Len(t, games, 1)
	assert.Equal(t, float64(745123), games[0]["game_pk"])
	assert.Equal(t, "W", games[0]["result"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(files), "no temp files left behind")
}

func TestRun_PropagatesQueryErrors(t *testing.T) {
	store := testStore()
	store.err = errors.New("relation does not exist")
	e := New(store, store, store, Options{Dir: t.TempDir()})

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation does not exist")
}
