package repository

import (
	"context"
	"fmt"
	"time"

	"gamelog/ingestion/internal/metrics"
	"gamelog/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// EventRepository handles Statcast event database operations
type EventRepository struct {
	db *Database
}

const eventColumns = `
	id, mlb_game_pk, seq, inning, inning_topbot, at_bat_number, pitch_number, sv_id,
	event_datetime, batter_name, pitcher_name, pitch_type,
	launch_speed, launch_angle, estimated_ba, hit_distance_sc,
	raw_description, event_type,
	wpa, wpa_suspect, home_win_exp, away_win_exp,
	outs_when_up, balls, strikes, home_score, away_score, post_home_score, post_away_score,
	on_1b, on_2b, on_3b, clip_uuid, video_url, created_at`

const insertEvent = `
	INSERT INTO statcast_events (
		mlb_game_pk, seq, inning, inning_topbot, at_bat_number, pitch_number, sv_id,
		event_datetime, batter_name, pitcher_name, pitch_type,
		launch_speed, launch_angle, estimated_ba, hit_distance_sc,
		raw_description, event_type,
		wpa, wpa_suspect, home_win_exp, away_win_exp,
		outs_when_up, balls, strikes, home_score, away_score, post_home_score, post_away_score,
		on_1b, on_2b, on_3b, clip_uuid, video_url
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33
	)
	ON CONFLICT (mlb_game_pk, seq, batter_name) DO NOTHING
`

func scanEvent(row scanner) (*models.Event, error) {
	var e models.Event
	err := row.Scan(
		&e.ID, &e.GamePk, &e.Seq, &e.Inning, &e.InningHalf, &e.AtBatNumber, &e.PitchNumber, &e.SvID,
		&e.EventDate, &e.BatterName, &e.PitcherName, &e.PitchType,
		&e.LaunchSpeed, &e.LaunchAngle, &e.EstimatedBA, &e.HitDistance,
		&e.Description, &e.EventType,
		&e.WPA, &e.WPASuspect, &e.HomeWinExp, &e.AwayWinExp,
		&e.Outs, &e.Balls, &e.Strikes, &e.HomeScore, &e.AwayScore, &e.PostHomeScore, &e.PostAwayScore,
		&e.OnFirst, &e.OnSecond, &e.OnThird, &e.ClipID, &e.VideoURL, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SaveResult describes what SaveGameEvents did
type SaveResult struct {
	Inserted int64
	Deleted  int64
	// Existing is true when the game already had events and replace was false
	Existing bool
}

// SaveGameEvents stores the events of one game in a single transaction.
//
// Without replace, a game that already has events is left untouched. With
// replace, the game's rows are deleted before the insert. Rows of other games
// are never touched. Duplicate (game, seq, batter) rows are skipped.
func (r *EventRepository) SaveGameEvents(ctx context.Context, gamePk int, events []models.Event, replace bool) (SaveResult, error) {
	start := time.Now()
	var res SaveResult

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize writers of the same game
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(gamePk)); err != nil {
		return res, fmt.Errorf("failed to lock game %d: %w", gamePk, err)
	}

	if replace {
		tag, err := tx.Exec(ctx, `DELETE FROM statcast_events WHERE mlb_game_pk = $1`, gamePk)
		if err != nil {
			return res, fmt.Errorf("failed to delete events for game %d: %w", gamePk, err)
		}
		res.Deleted = tag.RowsAffected()
	} else {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM statcast_events WHERE mlb_game_pk = $1)`, gamePk).Scan(&exists)
		if err != nil {
			return res, fmt.Errorf("failed to check events for game %d: %w", gamePk, err)
		}
		if exists {
			res.Existing = true
			return res, nil
		}
	}

	batch := &pgx.Batch{}
	for i := range events {
		e := &events[i]
		if e.GamePk != gamePk {
			return res, fmt.Errorf("%w: seq %d belongs to game %d, not %d", ErrInvalidEvent, e.Seq, e.GamePk, gamePk)
		}
		batch.Queue(insertEvent,
			gamePk, e.Seq, e.Inning, e.InningHalf, e.AtBatNumber, e.PitchNumber, e.SvID,
			e.EventDate, e.BatterName, e.PitcherName, e.PitchType,
			e.LaunchSpeed, e.LaunchAngle, e.EstimatedBA, e.HitDistance,
			e.Description, e.EventType,
			e.WPA, e.WPASuspect, e.HomeWinExp, e.AwayWinExp,
			e.Outs, e.Balls, e.Strikes, e.HomeScore, e.AwayScore, e.PostHomeScore, e.PostAwayScore,
			e.OnFirst, e.OnSecond, e.OnThird, e.ClipID, e.VideoURL,
		)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return res, fmt.Errorf("failed to insert event %d for game %d: %w", i, gamePk, err)
			}
			res.Inserted += tag.RowsAffected()
		}
		if err := br.Close(); err != nil {
			return res, fmt.Errorf("failed to close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		observe("insert", "statcast_events", start, err)
		return SaveResult{}, fmt.Errorf("failed to commit events for game %d: %w", gamePk, err)
	}
	observe("insert", "statcast_events", start, nil)
	metrics.RecordEventsInserted(res.Inserted)

	log.Debug().
		Int("game_pk", gamePk).
		Int64("inserted", res.Inserted).
		Int64("deleted", res.Deleted).
		Msg("Saved game events")

	return res, nil
}

// HasEvents reports whether any event is stored for the game
func (r *EventRepository) HasEvents(ctx context.Context, gamePk int) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM statcast_events WHERE mlb_game_pk = $1)`, gamePk,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check events for game %d: %w", gamePk, err)
	}
	return exists, nil
}

// Count returns the number of events stored for the game
func (r *EventRepository) Count(ctx context.Context, gamePk int) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM statcast_events WHERE mlb_game_pk = $1`, gamePk,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events for game %d: %w", gamePk, err)
	}
	return count, nil
}

// DeleteByGame removes every event of one game
func (r *EventRepository) DeleteByGame(ctx context.Context, gamePk int) (int64, error) {
	start := time.Now()
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM statcast_events WHERE mlb_game_pk = $1`, gamePk)
	observe("delete", "statcast_events", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events for game %d: %w", gamePk, err)
	}
	return tag.RowsAffected(), nil
}

// ListByGame returns the events of one game in stored sequence order
func (r *EventRepository) ListByGame(ctx context.Context, gamePk int) ([]models.Event, error) {
	start := time.Now()
	query := `SELECT ` + eventColumns + `
		FROM statcast_events
		WHERE mlb_game_pk = $1
		ORDER BY seq, id
	`

	rows, err := r.db.Pool.Query(ctx, query, gamePk)
	observe("select", "statcast_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for game %d: %w", gamePk, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}
