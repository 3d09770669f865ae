// Package pipeline runs Statcast ingestion for attended games, one game at a
// time: fetch, normalize, persist.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"gamelog/ingestion/internal/metrics"
	"gamelog/ingestion/internal/models"
	"gamelog/ingestion/internal/normalize"
	"gamelog/ingestion/internal/repository"
	"gamelog/ingestion/internal/statcast"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GameLister lists attended games with an MLB id
type GameLister interface {
	ListAttended(ctx context.Context, gamePk int) ([]*models.Game, error)
	ListMissingWinExp(ctx context.Context, gamePk int) ([]*models.Game, error)
}

// EventStore persists canonical events
type EventStore interface {
	HasEvents(ctx context.Context, gamePk int) (bool, error)
	SaveGameEvents(ctx context.Context, gamePk int, events []models.Event, replace bool) (repository.SaveResult, error)
}

// Normalizer turns raw records into canonical events
type Normalizer interface {
	Normalize(ctx context.Context, gamePk int, records []models.RawPlayRecord) normalize.Result
}

// Options controls one run
type Options struct {
	// GamePk restricts the run to one game when non-zero
	GamePk int
	// Force re-fetches games that already have events and replaces their rows
	Force bool
	// MissingWinExp selects only games whose stored events carry no home win
	// expectancy and replaces their rows
	MissingWinExp bool
}

// replace reports whether stored rows are replaced rather than kept
func (o Options) replace() bool {
	return o.Force || o.MissingWinExp
}

// Summary counts what a run did
type Summary struct {
	RunID          string
	Games          int
	Processed      int
	Skipped        int
	NoData         int
	Failed         int
	Inserted       int64
	RecordsSkipped int
	Suspect        int
	FailedGames    []int
}

// Pipeline wires the source, normalizer and stores together
type Pipeline struct {
	games      GameLister
	events     EventStore
	source     statcast.Source
	normalizer Normalizer
	delay      time.Duration
}

// New creates a Pipeline. delay is slept between upstream fetches.
func New(games GameLister, events EventStore, source statcast.Source, normalizer Normalizer, delay time.Duration) *Pipeline {
	return &Pipeline{
		games:      games,
		events:     events,
		source:     source,
		normalizer: normalizer,
		delay:      delay,
	}
}

// Run ingests events for every attended game. A game's failure is counted and
// the run moves on; only a lost database connection or a cancelled context
// stops it early, in which case the partial summary is returned with the error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", summary.RunID).Logger()

	list := p.games.ListAttended
	if opts.MissingWinExp {
		list = p.games.ListMissingWinExp
	}

	games, err := list(ctx, opts.GamePk)
	if err != nil {
		metrics.RecordSync("statcast", "error", time.Since(start).Seconds())
		return summary, fmt.Errorf("failed to list attended games: %w", err)
	}
	summary.Games = len(games)

	if opts.GamePk != 0 && len(games) == 0 && !opts.MissingWinExp {
		logger.Warn().Int("game_pk", opts.GamePk).Msg("Game is not an attended game with an MLB id")
	}

	logger.Info().
		Int("games", len(games)).
		Bool("force", opts.Force).
		Bool("missing_win_exp", opts.MissingWinExp).
		Msg("Starting statcast ingestion")

	fetched := false
	for _, g := range games {
		if err := ctx.Err(); err != nil {
			return p.abort(summary, start, err)
		}

		pk := int(g.GamePk.Int32)

		if !opts.replace() {
			has, err := p.events.HasEvents(ctx, pk)
			if err != nil {
				if repository.IsConnectionError(err) {
					return p.abort(summary, start, err)
				}
				p.fail(&summary, pk, err)
				continue
			}
			if has {
				summary.Skipped++
				metrics.RecordGame("skipped")
				logger.Debug().Int("game_pk", pk).Msg("Events already stored, skipping")
				continue
			}
		}

		if fetched && p.delay > 0 {
			select {
			case <-ctx.Done():
				return p.abort(summary, start, ctx.Err())
			case <-time.After(p.delay):
			}
		}
		fetched = true

		res := p.source.Fetch(ctx, pk)
		if err := ctx.Err(); err != nil {
			return p.abort(summary, start, err)
		}

		if res.Outcome != statcast.OutcomeOK {
			summary.NoData++
			metrics.RecordGame("no_data")
			logger.Info().
				Err(res.Err).
				Int("game_pk", pk).
				Str("date", g.Date.Format("2006-01-02")).
				Str("matchup", g.Matchup()).
				Str("outcome", res.Outcome.String()).
				Msg("No statcast data for game")
			continue
		}

		norm := p.normalizer.Normalize(ctx, pk, res.Records)
		summary.RecordsSkipped += norm.SkippedTotal()
		summary.Suspect += norm.Suspect

		if len(norm.Events) == 0 {
			summary.NoData++
			metrics.RecordGame("no_data")
			logger.Info().
				Int("game_pk", pk).
				Str("source", res.Source).
				Int("records", len(res.Records)).
				Msg("No usable events after normalization")
			continue
		}

		saved, err := p.events.SaveGameEvents(ctx, pk, norm.Events, opts.replace())
		if err != nil {
			if repository.IsConnectionError(err) {
				return p.abort(summary, start, err)
			}
			p.fail(&summary, pk, err)
			continue
		}

		if saved.Existing {
			summary.Skipped++
			metrics.RecordGame("skipped")
			continue
		}

		summary.Processed++
		summary.Inserted += saved.Inserted
		metrics.RecordGame("processed")

		logger.Info().
			Int("game_pk", pk).
			Str("date", g.Date.Format("2006-01-02")).
			Str("matchup", g.Matchup()).
			Str("source", res.Source).
			Int("records", len(res.Records)).
			Int64("inserted", saved.Inserted).
			Int64("replaced", saved.Deleted).
			Int("skipped_records", norm.SkippedTotal()).
			Int("suspect_wpa", norm.Suspect).
			Msg("Stored statcast events")
	}

	metrics.RecordSync("statcast", "success", time.Since(start).Seconds())
	metrics.LastSuccessfulSync.SetToCurrentTime()

	logger.Info().
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("no_data", summary.NoData).
		Int("failed", summary.Failed).
		Int64("inserted", summary.Inserted).
		Int("records_skipped", summary.RecordsSkipped).
		Ints("failed_games", summary.FailedGames).
		Dur("duration", time.Since(start)).
		Msg("Statcast ingestion complete")

	return summary, nil
}

func (p *Pipeline) fail(summary *Summary, gamePk int, err error) {
	summary.Failed++
	summary.FailedGames = append(summary.FailedGames, gamePk)
	metrics.RecordGame("failed")
	metrics.RecordError("pipeline", "store")
	log.Error().
		Err(err).
		Str("run_id", summary.RunID).
		Int("game_pk", gamePk).
		Msg("Failed to store game events")
}

func (p *Pipeline) abort(summary Summary, start time.Time, err error) (Summary, error) {
	metrics.RecordSync("statcast", "error", time.Since(start).Seconds())
	log.Error().
		Err(err).
		Str("run_id", summary.RunID).
		Int("processed", summary.Processed).
		Msg("Statcast ingestion aborted")
	return summary, fmt.Errorf("statcast run %s aborted: %w", summary.RunID, err)
}
