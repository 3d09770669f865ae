package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamelog/ingestion/internal/app"
	"gamelog/ingestion/internal/config"
	"gamelog/ingestion/internal/models"
	"gamelog/ingestion/internal/pipeline"

	"github.com/rs/zerolog/log"
)

// errIntegrity is returned by integrity --strict when a check found problems
var errIntegrity = errors.New("integrity checks found problems")

type addCommand struct {
	Date   string `long:"date" required:"true" description:"Game date (YYYY-MM-DD)"`
	Home   string `long:"home" required:"true" description:"Home team abbreviation"`
	Away   string `long:"away" required:"true" description:"Away team abbreviation"`
	Source string `long:"source" default:"manual" choice:"manual" choice:"scorecard" choice:"app-import" description:"How the game was recorded"`
}

// game validates the flags and builds the game to insert
func (c *addCommand) game() (*models.Game, error) {
	date, err := time.Parse("2006-01-02", c.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q: %w", c.Date, err)
	}

	home, ok := models.LookupTeam(c.Home)
	if !ok {
		return nil, fmt.Errorf("unknown home team %q", c.Home)
	}
	away, ok := models.LookupTeam(c.Away)
	if !ok {
		return nil, fmt.Errorf("unknown away team %q", c.Away)
	}
	if home.Code == away.Code {
		return nil, fmt.Errorf("home and away are both %s", home.Code)
	}

	return &models.Game{
		Date:     date,
		HomeTeam: home.Code,
		AwayTeam: away.Code,
		Attended: true,
		Source:   c.Source,
	}, nil
}

func (c *addCommand) Execute([]string) error {
	game, err := c.game()
	if err != nil {
		return err
	}

	return withApp(nil, func(ctx context.Context, a *app.App) error {
		inserted, err := a.DB.Games.Upsert(ctx, game)
		if err != nil {
			return err
		}

		log.Info().
			Int("id", game.ID).
			Str("date", game.Date.Format("2006-01-02")).
			Str("matchup", game.Matchup()).
			Bool("inserted", inserted).
			Msg("Attended game recorded")
		return nil
	})
}

type enrichCommand struct {
	Force bool `long:"force" description:"Look up already enriched games again and overwrite their id, score and venue"`
}

func (c *enrichCommand) Execute([]string) error {
	return withApp(nil, func(ctx context.Context, a *app.App) error {
		summary, err := a.Enrich(ctx, c.Force)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d games failed enrichment", summary.Failed, summary.Candidates)
		}
		return nil
	})
}

type statcastCommand struct {
	Game          int  `long:"game" description:"Only process this MLB game id"`
	Force         bool `long:"force" description:"Re-fetch games that already have events and replace their rows"`
	MissingWinExp bool `long:"missing-win-exp" description:"Re-fetch only games whose stored events have no win expectancy"`
}

func (c *statcastCommand) Execute([]string) error {
	return withApp(nil, func(ctx context.Context, a *app.App) error {
		summary, err := a.Statcast(ctx, pipeline.Options{
			GamePk:        c.Game,
			Force:         c.Force,
			MissingWinExp: c.MissingWinExp,
		})
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d games failed: %v", summary.Failed, summary.FailedGames)
		}
		return nil
	})
}

type exportCommand struct {
	Dir string `long:"dir" description:"Output directory (default EXPORT_DIR)"`
}

func (c *exportCommand) Execute([]string) error {
	adjust := func(cfg *config.Config) {
		if c.Dir != "" {
			cfg.ExportDir = c.Dir
		}
	}
	return withApp(adjust, func(ctx context.Context, a *app.App) error {
		return a.Export(ctx)
	})
}

type integrityCommand struct {
	Strict bool `long:"strict" description:"Exit non-zero when any check finds a problem"`
}

func (c *integrityCommand) Execute([]string) error {
	return withApp(nil, func(ctx context.Context, a *app.App) error {
		report, err := a.Integrity(ctx)
		if err != nil {
			return err
		}

		for _, g := range report.CorruptedGroups {
			log.Warn().
				Str("batter", g.BatterName).
				Float64("wpa", g.WPA).
				Int("launch_speed", g.LaunchSpeed).
				Int("launch_angle", g.LaunchAngle).
				Int("events", g.Events).
				Int("outcomes", g.Outcomes).
				Ints("event_ids", g.EventIDs).
				Msg("Corrupted duplicate group")
		}
		for _, g := range report.MissingGamePk {
			log.Warn().
				Int("id", g.ID).
				Str("date", g.Date.Format("2006-01-02")).
				Str("matchup", g.Matchup()).
				Msg("Attended game without MLB id")
		}

		log.Info().
			Int("corrupted_groups", len(report.CorruptedGroups)).
			Int("suspect_wpa", report.SuspectWPA).
			Int("missing_game_pk", len(report.MissingGamePk)).
			Bool("ok", report.OK()).
			Msg("Integrity check complete")

		if c.Strict && !report.OK() {
			return errIntegrity
		}
		return nil
	})
}
