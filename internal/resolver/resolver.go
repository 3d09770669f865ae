// Package resolver matches attended games to MLB game ids and final scores.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamelog/ingestion/internal/metrics"
	"gamelog/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownTeam is returned when a team code is not in the reference table
	ErrUnknownTeam = errors.New("unknown team code")
	// ErrNoMatch is returned when no scheduled game matches the matchup
	ErrNoMatch = errors.New("no scheduled game matches")
)

// ScheduleFetcher queries the schedule for a date, optionally narrowed to a matchup
type ScheduleFetcher interface {
	FetchSchedule(ctx context.Context, date time.Time, teamID, opponentID int) ([]models.ScheduleGame, error)
}

// GameStore is the slice of the games repository the resolver needs
type GameStore interface {
	ListNeedingEnrichment(ctx context.Context, includeEnriched bool) ([]*models.Game, error)
	SetEnrichment(ctx context.Context, gameID int, meta *models.GameMeta, force bool) error
}

// Resolver looks up external game ids
type Resolver struct {
	schedule ScheduleFetcher
	delay    time.Duration
	now      func() time.Time
}

// New creates a Resolver. delay is slept between games during Enrich.
func New(schedule ScheduleFetcher, delay time.Duration) *Resolver {
	return &Resolver{schedule: schedule, delay: delay, now: time.Now}
}

// Resolve returns the metadata of the game played on date between home and
// away. The matchup-filtered schedule query is tried first; when it returns
// nothing, the whole day's schedule is searched.
func (r *Resolver) Resolve(ctx context.Context, date time.Time, home, away string) (*models.GameMeta, error) {
	homeTeam, ok := models.LookupTeam(home)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, home)
	}
	awayTeam, ok := models.LookupTeam(away)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, away)
	}

	games, err := r.schedule.FetchSchedule(ctx, date, homeTeam.TeamID, awayTeam.TeamID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("date", date.Format("2006-01-02")).
			Str("matchup", away+" @ "+home).
			Msg("Filtered schedule lookup failed, trying broad search")
	}

	if match := findMatch(games, homeTeam.TeamID, awayTeam.TeamID); match != nil {
		return match.ToMeta(), nil
	}

	games, err = r.schedule.FetchSchedule(ctx, date, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to search schedule for %s: %w", date.Format("2006-01-02"), err)
	}

	if match := findMatch(games, homeTeam.TeamID, awayTeam.TeamID); match != nil {
		return match.ToMeta(), nil
	}

	return nil, fmt.Errorf("%s %s @ %s: %w", date.Format("2006-01-02"), away, home, ErrNoMatch)
}

// findMatch returns the first game with the given (home, away) ids. For a
// doubleheader this is the first game of the day.
func findMatch(games []models.ScheduleGame, homeID, awayID int) *models.ScheduleGame {
	for i := range games {
		g := &games[i]
		if g.Teams.Home.Team.ID == homeID && g.Teams.Away.Team.ID == awayID {
			return g
		}
	}
	return nil
}

// EnrichSummary counts the outcome of an enrichment pass
type EnrichSummary struct {
	Candidates int
	Enriched   int
	Future     int
	Unmatched  int
	Failed     int
}

// Enrich fills the external id, score and venue of games that lack them.
// Future games and unknown teams are skipped; one game's failure does not
// stop the pass. With force, already enriched games are looked up again and
// their enrichment fields overwritten.
func (r *Resolver) Enrich(ctx context.Context, store GameStore, force bool) (EnrichSummary, error) {
	var summary EnrichSummary
	start := time.Now()

	games, err := store.ListNeedingEnrichment(ctx, force)
	if err != nil {
		metrics.RecordSync("enrich", "error", time.Since(start).Seconds())
		return summary, fmt.Errorf("failed to list games for enrichment: %w", err)
	}
	summary.Candidates = len(games)

	log.Info().Int("games", len(games)).Bool("force", force).Msg("Starting game enrichment")

	today := truncateDay(r.now())
	for i, g := range games {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		if truncateDay(g.Date).After(today) {
			summary.Future++
			log.Info().Str("date", g.Date.Format("2006-01-02")).Str("matchup", g.Matchup()).Msg("Future game, skipping lookup")
			continue
		}

		if i > 0 && r.delay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(r.delay):
			}
		}

		meta, err := r.Resolve(ctx, g.Date, g.HomeTeam, g.AwayTeam)
		switch {
		case errors.Is(err, ErrUnknownTeam), errors.Is(err, ErrNoMatch):
			summary.Unmatched++
			log.Warn().Err(err).Int("game_id", g.ID).Msg("Could not match game")
			continue
		case err != nil:
			summary.Failed++
			metrics.RecordError("resolver", "lookup")
			log.Error().Err(err).Int("game_id", g.ID).Msg("Schedule lookup failed")
			continue
		}

		if err := store.SetEnrichment(ctx, g.ID, meta, force); err != nil {
			summary.Failed++
			metrics.RecordError("resolver", "store")
			log.Error().Err(err).Int("game_id", g.ID).Msg("Failed to store enrichment")
			continue
		}

		summary.Enriched++
		log.Info().
			Str("date", g.Date.Format("2006-01-02")).
			Str("matchup", g.Matchup()).
			Int("game_pk", meta.GamePk).
			Str("venue", meta.VenueName).
			Msg("Enriched game")
	}

	metrics.RecordSync("enrich", "success", time.Since(start).Seconds())
	log.Info().
		Int("enriched", summary.Enriched).
		Int("future", summary.Future).
		Int("unmatched", summary.Unmatched).
		Int("failed", summary.Failed).
		Msg("Game enrichment complete")

	return summary, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
