package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// schema bootstraps an empty database. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id           SERIAL PRIMARY KEY,
		date         DATE NOT NULL,
		home_team    VARCHAR(8) NOT NULL,
		away_team    VARCHAR(8) NOT NULL,
		attended     BOOLEAN NOT NULL DEFAULT TRUE,
		source       VARCHAR(16) NOT NULL DEFAULT 'manual',
		mlb_game_pk  INTEGER UNIQUE,
		home_score   INTEGER,
		away_score   INTEGER,
		venue_id     INTEGER,
		venue_name   TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (date, home_team, away_team)
	)`,

	`CREATE TABLE IF NOT EXISTS statcast_events (
		id               SERIAL PRIMARY KEY,
		mlb_game_pk      INTEGER NOT NULL REFERENCES games (mlb_game_pk) ON DELETE CASCADE,
		seq              INTEGER NOT NULL,
		inning           INTEGER,
		inning_topbot    VARCHAR(3),
		at_bat_number    INTEGER,
		pitch_number     INTEGER,
		sv_id            TEXT,
		event_datetime   TEXT NOT NULL DEFAULT '',
		batter_name      TEXT NOT NULL,
		pitcher_name     TEXT NOT NULL DEFAULT '',
		pitch_type       TEXT NOT NULL DEFAULT '',
		launch_speed     INTEGER,
		launch_angle     INTEGER,
		estimated_ba     INTEGER,
		hit_distance_sc  INTEGER,
		raw_description  TEXT NOT NULL DEFAULT '',
		event_type       TEXT NOT NULL DEFAULT '',
		wpa              DOUBLE PRECISION,
		wpa_suspect      BOOLEAN NOT NULL DEFAULT FALSE,
		home_win_exp     DOUBLE PRECISION,
		away_win_exp     DOUBLE PRECISION,
		outs_when_up     INTEGER,
		balls            INTEGER,
		strikes          INTEGER,
		home_score       INTEGER,
		away_score       INTEGER,
		post_home_score  INTEGER,
		post_away_score  INTEGER,
		on_1b            TEXT,
		on_2b            TEXT,
		on_3b            TEXT,
		clip_uuid        TEXT,
		video_url        TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (mlb_game_pk, seq, batter_name)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_statcast_events_game ON statcast_events (mlb_game_pk, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_statcast_events_batter ON statcast_events (batter_name)`,
	`COMMENT ON COLUMN statcast_events.wpa IS 'Home-team win probability added. Positive helped the home team.'`,
}

// EnsureSchema creates the tables when they do not exist
func (db *Database) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	log.Debug().Int("statements", len(schema)).Msg("Schema ensured")
	return nil
}
