package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"gamelog/ingestion/internal/cache"
	"gamelog/ingestion/internal/models"
	"gamelog/ingestion/internal/normalize"
	"gamelog/ingestion/internal/repository"
	"gamelog/ingestion/internal/statcast"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGames struct {
	games []*models.Game
	store *memoryStore
}

func (f *fakeGames) ListAttended(_ context.Context, gamePk int) ([]*models.Game, error) {
	var out []*models.Game
	for _, g := range f.games {
		if gamePk == 0 || int(g.GamePk.Int32) == gamePk {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGames) ListMissingWinExp(ctx context.Context, gamePk int) ([]*models.Game, error) {
	games, _ := f.ListAttended(ctx, gamePk)
	var out []*models.Game
	for _, g := range games {
		if !f.store.hasWinExp(int(g.GamePk.Int32)) {
			out = append(out, g)
		}
	}
	return out, nil
}

// memoryStore mimics the transactional skip/replace behaviour of the events table
type memoryStore struct {
	rows    map[int][]models.Event
	saveErr map[int]error
	hasErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[int][]models.Event), saveErr: make(map[int]error)}
}

func (s *memoryStore) HasEvents(_ context.Context, gamePk int) (bool, error) {
	if s.hasErr != nil {
		return false, s.hasErr
	}
	return len(s.rows[gamePk]) > 0, nil
}

func (s *memoryStore) hasWinExp(gamePk int) bool {
	for _, e := range s.rows[gamePk] {
		if e.HomeWinExp.Valid {
			return true
		}
	}
	return false
}

func (s *memoryStore) SaveGameEvents(_ context.Context, gamePk int, events []models.Event, replace bool) (repository.SaveResult, error) {
	var res repository.SaveResult
	if err := s.saveErr[gamePk]; err != nil {
		return res, err
	}
	if !replace && len(s.rows[gamePk]) > 0 {
		res.Existing = true
		return res, nil
	}
	res.Deleted = int64(len(s.rows[gamePk]))

	seen := make(map[string]bool)
	var kept []models.Event
	for _, e := range events {
		key := fmt.Sprintf("%d/%s", e.Seq, e.BatterName)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, e)
	}
	s.rows[gamePk] = kept
	res.Inserted = int64(len(kept))
	return res, nil
}

type fakeSource struct {
	results map[int]statcast.FetchResult
	calls   []int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(_ context.Context, gamePk int) statcast.FetchResult {
	f.calls = append(f.calls, gamePk)
	if r, ok := f.results[gamePk]; ok {
		return r
	}
	return statcast.FetchResult{Outcome: statcast.OutcomeEmpty, Source: "fake"}
}

func game(pk int, day int) *models.Game {
	return &models.Game{
		ID:       pk,
		Date:     time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC),
		HomeTeam: "BOS",
		AwayTeam: "NYY",
		Attended: true,
		GamePk:   sql.NullInt32{Int32: int32(pk), Valid: true},
	}
}

func records(pk int, n int) []models.RawPlayRecord {
	out := make([]models.RawPlayRecord, n)
	for i := range out {
		out[i] = models.RawPlayRecord{
			Source:          "fake",
			GamePk:          pk,
			Order:           i,
			Inning:          float64(i/3 + 1),
			Half:            "Bot",
			AtBatNumber:     float64(i + 1),
			PitchNumber:     float64(1),
			BatterName:      "Devers, Rafael",
			PitcherName:     "Cole, Gerrit",
			EventType:       "single",
			Description:     "Rafael Devers singles",
			DeltaHomeWinExp: 0.05,
			HomeWinExp:      0.5,
		}
	}
	return out
}

func ok(pk, n int) statcast.FetchResult {
	return statcast.FetchResult{Outcome: statcast.OutcomeOK, Source: "fake", Records: records(pk, n)}
}

func newPipeline(games *fakeGames, store *memoryStore, src *fakeSource) *Pipeline {
	return New(games, store, src, normalize.New(nil, cache.Noop{}, nil, ""), 0)
}

func TestRun_StoresEvents(t *testing.T) {
	games := &fakeGames{games: []*models.Game{game(1, 1), game(2, 2), game(3, 3)}}
	store := newMemoryStore()
	src := &fakeSource{results: map[int]statcast.FetchResult{
		1: ok(1, 4),
		2: {Outcome: statcast.OutcomeTransient, Source: "fake", Err: errors.New("503")},
	}}

	summary, err := newPipeline(games, store, src).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Games)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 2, summary.NoData)
	assert.Equal(t, int64(4), summary.Inserted)
	require.Len(t, store.rows[1], 4)
	assert.Equal(t, "Rafael Devers", store.rows[1][0].BatterName)
	assert.Equal(t, 1, store.rows[1][0].Seq)
}

func TestRun_SkipsGamesWithEventsBeforeFetch(t *testing.T) {
	games := &fakeGames{games: []*models.Game{game(1, 1)}}
	store := newMemoryStore()
	src := &fakeSource{results: map[int]statcast.FetchResult{1: ok(1, 3)}}
	p := newPipeline(games, store, src)

	_, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Processed)
	assert.Equal(t, []int{1}, src.calls, "second run must not fetch")
	assert.Len(t, store.rows[1], 3, "no duplicate rows")
}

func TestRun_ForceReplacesOnlyThatGame(t *testing.T) {
	games := &fakeGames{games: []*models.Game{game(1, 1), game(2, 2)}}
	store := newMemoryStore()
	src := &fakeSource{results: map[int]statcast.FetchResult{1: ok(1, 3), 2: ok(2, 2)}}
	p := newPipeline(games, store, src)

	_, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	other := store.rows[2]

	src.results[1] = ok(1, 5)
	summary, err := p.Run(context.Background(), Options{GamePk: 1, Force: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Games)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, int64(5), summary.Inserted)
	assert.Len(t, store.rows[1], 5)
	assert.Equal(t, other, store.rows[2])
}

func TestRun_MissingWinExpReplacesOnlyThoseGames(t *testing.T) {
	store := newMemoryStore()
	games := &fakeGames{games: []*models.Game{game(1, 1), game(2, 2), game(3, 3)}, store: store}

	noWinExp := records(2, 2)
	for i := range noWinExp {
		noWinExp[i].HomeWinExp = nil
	}
	src := &fakeSource{results: map[int]statcast.FetchResult{
		1: ok(1, 3),
		2: {Outcome: statcast.OutcomeOK, Source: "fake", Records: noWinExp},
	}}
	p := newPipeline(games, store, src)

	_, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, store.rows[2], 2)
	assert.False(t, store.rows[2][0].HomeWinExp.Valid)
	kept := store.rows[1]

	src.calls = nil
	src.results[2] = ok(2, 4)
	summary, err := p.Run(context.Background(), Options{MissingWinExp: true})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, src.calls, "game 1 already has win expectancy")
	assert.Equal(t, 2, summary.Games)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.NoData)
	require.Len(t, store.rows[2], 4)
	assert.True(t, store.rows[2][0].HomeWinExp.Valid)
	assert.Equal(t, kept, store.rows[1])
}

func TestRun_SkipsMalformedRecords(t *testing.T) {
	recs := records(1, 3)
	recs[1].BatterName = ""
	recs[2].EventType = "pitching_substitution"

	games := &fakeGames{games: []*models.Game{game(1, 1)}}
	store := newMemoryStore()
	src := &fakeSource{results: map[int]statcast.FetchResult{
		1: {Outcome: statcast.OutcomeOK, Source: "fake", Records: recs},
	}}

	summary, err := newPipeline(games, store, src).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RecordsSkipped)
	assert.Equal(t, int64(1), summary.Inserted)
}

func TestRun_IsolatesStoreFailures(t *testing.T) {
	games := &fakeGames{games: []*models.Game{game(1, 1), game(2, 2)}}
	store := newMemoryStore()
	store.saveErr[1] = fmt.Errorf("failed to insert: %w", &pgconn.PgError{Code: "22003"})
	src := &fakeSource{results: map[int]statcast.FetchResult{1: ok(1, 2), 2: ok(2, 2)}}

	summary, err := newPipeline(games, store, src).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []int{1}, summary.FailedGames)
	assert.Equal(t, 1, summary.Processed)
}

func TestRun_AbortsOnConnectionLoss(t *testing.T) {
	games := &fakeGames{games: []*models.Game{game(1, 1), game(2, 2)}}
	store := newMemoryStore()
	store.hasErr = errors.New("connection refused")
	src := &fakeSource{}

	_, err := newPipeline(games, store, src).Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Empty(t, src.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	games := &fakeGames{games: []*models.Game{game(1, 1)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(games, newMemoryStore(), &fakeSource{}).Run(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
