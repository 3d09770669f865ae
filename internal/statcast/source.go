// Package statcast adapts the upstream play-level feeds into raw play records.
//
// Each upstream is a Source variant responsible only for mapping its own
// field names. Fallback between variants is explicit (Chain) and every fetch
// reports a typed Outcome instead of relying on error inspection by callers.
package statcast

import (
	"context"
	"errors"

	"gamelog/ingestion/internal/client"
	"gamelog/ingestion/internal/metrics"
	"gamelog/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// Outcome classifies a fetch
type Outcome int

const (
	// OutcomeOK means records were returned
	OutcomeOK Outcome = iota
	// OutcomeEmpty means the source has no data for the game. Not an error.
	OutcomeEmpty
	// OutcomeTransient means the source could not answer for this game
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// FetchResult is the typed result of one fetch
type FetchResult struct {
	Outcome Outcome
	Records []models.RawPlayRecord
	Source  string
	Err     error
}

// Source fetches raw play records for one game
type Source interface {
	Name() string
	Fetch(ctx context.Context, gamePk int) FetchResult
}

// result builds a FetchResult from a source's records and error. A 404 is
// "no data"; any other failure means the source could not serve this game.
func result(source string, records []models.RawPlayRecord, err error) FetchResult {
	r := FetchResult{Source: source, Records: records}
	switch {
	case err == nil && len(records) > 0:
		r.Outcome = OutcomeOK
	case err == nil, errors.Is(err, client.ErrNotFound):
		r.Outcome = OutcomeEmpty
		r.Records = nil
	default:
		r.Outcome = OutcomeTransient
		r.Records = nil
		r.Err = err
	}

	metrics.RecordSourceFetch(source, r.Outcome.String())
	return r
}

// Chain tries each source in order and returns the first one with data
type Chain struct {
	sources []Source
}

// NewChain creates a fallback chain. Order is priority.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Name returns the chain name
func (c *Chain) Name() string {
	return "chain"
}

// Fetch returns the first OK result. Otherwise the result is transient when
// any source failed transiently, else empty.
func (c *Chain) Fetch(ctx context.Context, gamePk int) FetchResult {
	final := FetchResult{Outcome: OutcomeEmpty, Source: c.Name()}

	for _, src := range c.sources {
		if ctx.Err() != nil {
			return FetchResult{Outcome: OutcomeTransient, Source: c.Name(), Err: ctx.Err()}
		}

		res := src.Fetch(ctx, gamePk)
		switch res.Outcome {
		case OutcomeOK:
			log.Debug().
				Int("game_pk", gamePk).
				Str("source", res.Source).
				Int("records", len(res.Records)).
				Msg("Fetched play records")
			return res

		case OutcomeEmpty:
			log.Debug().
				Int("game_pk", gamePk).
				Str("source", res.Source).
				Msg("Source has no data for game, trying next")

		case OutcomeTransient:
			log.Warn().
				Err(res.Err).
				Int("game_pk", gamePk).
				Str("source", res.Source).
				Msg("Source unavailable for game, trying next")
			final = FetchResult{Outcome: OutcomeTransient, Source: res.Source, Err: res.Err}
		}
	}

	return final
}
