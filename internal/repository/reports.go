package repository

import (
	"context"
	"fmt"
	"time"

	"gamelog/ingestion/internal/models"
)

// ReportRepository runs the read queries behind the JSON exports
type ReportRepository struct {
	db *Database
}

// TopMoments returns the plays with the largest |WPA| across attended games.
// Suspect WPA values are left out unless includeSuspect is set.
func (r *ReportRepository) TopMoments(ctx context.Context, limit int, includeSuspect bool) ([]models.Moment, error) {
	start := time.Now()
	query := `
		SELECT se.mlb_game_pk, g.date, g.home_team, g.away_team, g.home_score, g.away_score,
		       se.wpa, se.batter_name, se.pitcher_name, se.event_type, se.raw_description,
		       se.clip_uuid, se.video_url
		FROM statcast_events se
		JOIN games g ON g.mlb_game_pk = se.mlb_game_pk
		WHERE g.attended
		  AND se.wpa IS NOT NULL
		  AND ($2 OR NOT se.wpa_suspect)
		ORDER BY ABS(se.wpa) DESC, se.mlb_game_pk, se.seq
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, includeSuspect)
	observe("select", "statcast_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query top moments: %w", err)
	}
	defer rows.Close()

	var moments []models.Moment
	for rows.Next() {
		var m models.Moment
		if err := rows.Scan(
			&m.GamePk, &m.Date, &m.HomeTeam, &m.AwayTeam, &m.HomeScore, &m.AwayScore,
			&m.WPA, &m.BatterName, &m.PitcherName, &m.EventType, &m.Description,
			&m.ClipID, &m.VideoURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan moment: %w", err)
		}
		moments = append(moments, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating moments: %w", err)
	}

	return moments, nil
}

// WPALeaders sums batter-credited WPA per batter over plate-appearance-ending
// events. Suspect values are excluded unless includeSuspect is set.
func (r *ReportRepository) WPALeaders(ctx context.Context, limit int, includeSuspect bool) ([]models.WPALeader, error) {
	start := time.Now()
	query := `
		SELECT se.batter_name,
		       ROUND(SUM(CASE WHEN se.inning_topbot = 'Top' THEN -se.wpa ELSE se.wpa END)::numeric, 3)::float8 AS lifetime_wpa,
		       COUNT(*) AS plate_appearances,
		       COUNT(DISTINCT se.mlb_game_pk) AS games
		FROM statcast_events se
		JOIN games g ON g.mlb_game_pk = se.mlb_game_pk
		WHERE g.attended
		  AND se.wpa IS NOT NULL
		  AND ($2 OR NOT se.wpa_suspect)
		  AND se.event_type <> ''
		GROUP BY se.batter_name
		ORDER BY lifetime_wpa DESC, se.batter_name
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, includeSuspect)
	observe("select", "statcast_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query WPA leaders: %w", err)
	}
	defer rows.Close()

	var leaders []models.WPALeader
	for rows.Next() {
		var l models.WPALeader
		if err := rows.Scan(&l.BatterName, &l.LifetimeWPA, &l.PlateAppearances, &l.Games); err != nil {
			return nil, fmt.Errorf("failed to scan WPA leader: %w", err)
		}
		leaders = append(leaders, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating WPA leaders: %w", err)
	}

	return leaders, nil
}

// LongestHomers returns home runs ordered by projected distance
func (r *ReportRepository) LongestHomers(ctx context.Context, limit int) ([]models.Homer, error) {
	start := time.Now()
	query := `
		SELECT se.mlb_game_pk, g.date, g.home_team, g.away_team,
		       se.batter_name, se.pitcher_name, se.hit_distance_sc,
		       se.launch_speed, se.launch_angle
		FROM statcast_events se
		JOIN games g ON g.mlb_game_pk = se.mlb_game_pk
		WHERE g.attended
		  AND se.event_type = 'home_run'
		  AND se.hit_distance_sc IS NOT NULL
		ORDER BY se.hit_distance_sc DESC, g.date
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	observe("select", "statcast_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query longest homers: %w", err)
	}
	defer rows.Close()

	var homers []models.Homer
	for rows.Next() {
		var h models.Homer
		if err := rows.Scan(
			&h.GamePk, &h.Date, &h.HomeTeam, &h.AwayTeam,
			&h.BatterName, &h.PitcherName, &h.Distance,
			&h.LaunchSpeed, &h.LaunchAngle,
		); err != nil {
			return nil, fmt.Errorf("failed to scan homer: %w", err)
		}
		homers = append(homers, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating homers: %w", err)
	}

	return homers, nil
}

// BattedBalls returns every event with both exit velocity and launch angle
func (r *ReportRepository) BattedBalls(ctx context.Context) ([]models.BattedBall, error) {
	start := time.Now()
	query := `
		SELECT g.date, g.home_team, g.away_team, se.batter_name,
		       se.launch_speed, se.launch_angle, se.event_type, se.raw_description
		FROM statcast_events se
		JOIN games g ON g.mlb_game_pk = se.mlb_game_pk
		WHERE g.attended
		  AND se.launch_speed IS NOT NULL
		  AND se.launch_angle IS NOT NULL
		ORDER BY g.date DESC, se.mlb_game_pk, se.seq
	`

	rows, err := r.db.Pool.Query(ctx, query)
	observe("select", "statcast_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query batted balls: %w", err)
	}
	defer rows.Close()

	var balls []models.BattedBall
	for rows.Next() {
		var b models.BattedBall
		if err := rows.Scan(
			&b.Date, &b.HomeTeam, &b.AwayTeam, &b.BatterName,
			&b.LaunchSpeed, &b.LaunchAngle, &b.EventType, &b.Description,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batted ball: %w", err)
		}
		balls = append(balls, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batted balls: %w", err)
	}

	return balls, nil
}
