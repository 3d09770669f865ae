package resolver

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"gamelog/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scheduleCall struct {
	teamID, opponentID int
}

type fakeSchedule struct {
	filtered []models.ScheduleGame
	broad    []models.ScheduleGame
	err      error
	calls    []scheduleCall
}

func (f *fakeSchedule) FetchSchedule(_ context.Context, _ time.Time, teamID, opponentID int) ([]models.ScheduleGame, error) {
	f.calls = append(f.calls, scheduleCall{teamID, opponentID})
	if f.err != nil {
		return nil, f.err
	}
	if teamID > 0 {
		return f.filtered, nil
	}
	return f.broad, nil
}

func scheduleGame(pk, homeID, awayID int, homeScore, awayScore int) models.ScheduleGame {
	var g models.ScheduleGame
	g.GamePk = pk
	g.Teams.Home.Team.ID = homeID
	g.Teams.Away.Team.ID = awayID
	g.Teams.Home.Score = &homeScore
	g.Teams.Away.Score = &awayScore
	g.Venue.ID = 3
	g.Venue.Name = "Fenway Park"
	return g
}

var june15 = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func TestResolve_FilteredLookup(t *testing.T) {
	sched := &fakeSchedule{filtered: []models.ScheduleGame{scheduleGame(745123, 111, 147, 5, 3)}}
	r := New(sched, 0)

	meta, err := r.Resolve(context.Background(), june15, "BOS", "NYY")
	require.NoError(t, err)
	assert.Equal(t, 745123, meta.GamePk)
	assert.Equal(t, 5, *meta.HomeScore)
	assert.Equal(t, "Fenway Park", meta.VenueName)
	assert.Equal(t, []scheduleCall{{111, 147}}, sched.calls)
}

func TestResolve_FallsBackToBroadSearch(t *testing.T) {
	sched := &fakeSchedule{broad: []models.ScheduleGame{
		scheduleGame(1, 147, 111, 2, 1),
		scheduleGame(745123, 111, 147, 5, 3),
	}}
	r := New(sched, 0)

	meta, err := r.Resolve(context.Background(), june15, "BOS", "NYY")
	require.NoError(t, err)
	assert.Equal(t, 745123, meta.GamePk, "home and away must match in order")
	assert.Equal(t, []scheduleCall{{111, 147}, {0, 0}}, sched.calls)
}

func TestResolve_Errors(t *testing.T) {
	r := New(&fakeSchedule{}, 0)

	_, err := r.Resolve(context.Background(), june15, "XXX", "NYY")
	assert.ErrorIs(t, err, ErrUnknownTeam)

	_, err = r.Resolve(context.Background(), june15, "BOS", "NYY")
	assert.ErrorIs(t, err, ErrNoMatch)

	r = New(&fakeSchedule{err: errors.New("connection refused")}, 0)
	_, err = r.Resolve(context.Background(), june15, "BOS", "NYY")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatch)
}

type fakeStore struct {
	games    []*models.Game
	set      map[int]*models.GameMeta
	forced   bool
	listArgs []bool
}

func (f *fakeStore) ListNeedingEnrichment(_ context.Context, includeEnriched bool) ([]*models.Game, error) {
	f.listArgs = append(f.listArgs, includeEnriched)
	return f.games, nil
}

func (f *fakeStore) SetEnrichment(_ context.Context, gameID int, meta *models.GameMeta, force bool) error {
	if f.set == nil {
		f.set = make(map[int]*models.GameMeta)
	}
	f.set[gameID] = meta
	f.forced = force
	return nil
}

func TestEnrich_IsolatesGames(t *testing.T) {
	sched := &fakeSchedule{filtered: []models.ScheduleGame{scheduleGame(745123, 111, 147, 5, 3)}}
	r := New(sched, 0)
	r.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }

	store := &fakeStore{games: []*models.Game{
		{ID: 1, Date: june15, HomeTeam: "BOS", AwayTeam: "NYY"},
		{ID: 2, Date: june15, HomeTeam: "BOS", AwayTeam: "ZZZ"},
		{ID: 3, Date: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), HomeTeam: "BOS", AwayTeam: "NYY"},
		{ID: 4, Date: june15, HomeTeam: "BOS", AwayTeam: "TB", GamePk: sql.NullInt32{}},
	}}

	summary, err := r.Enrich(context.Background(), store, false)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Candidates)
	assert.Equal(t, 1, summary.Enriched)
	assert.Equal(t, 1, summary.Future)
	assert.Equal(t, 2, summary.Unmatched)
	assert.Equal(t, 745123, store.set[1].GamePk)
	assert.NotContains(t, store.set, 3)
	assert.Equal(t, []bool{false}, store.listArgs)
	assert.False(t, store.forced)
}

func TestEnrich_ForcePassesThrough(t *testing.T) {
	sched := &fakeSchedule{filtered: []models.ScheduleGame{scheduleGame(745123, 111, 147, 5, 3)}}
	r := New(sched, 0)

	store := &fakeStore{games: []*models.Game{{ID: 1, Date: june15, HomeTeam: "BOS", AwayTeam: "NYY"}}}
	_, err := r.Enrich(context.Background(), store, true)
	require.NoError(t, err)
	assert.True(t, store.forced)
	assert.Equal(t, []bool{true}, store.listArgs)
}
