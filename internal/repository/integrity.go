package repository

import (
	"context"
	"fmt"
	"time"

	"gamelog/ingestion/internal/models"
)

// IntegrityReport summarizes data quality findings
type IntegrityReport struct {
	CorruptedGroups []models.CorruptedGroup
	SuspectWPA      int
	MissingGamePk   []*models.Game
}

// OK returns true when no check found anything
func (r *IntegrityReport) OK() bool {
	return len(r.CorruptedGroups) == 0 && r.SuspectWPA == 0 && len(r.MissingGamePk) == 0
}

// CorruptedGroups finds batters whose (wpa, launch speed, launch angle)
// triple repeats across more than two events with different descriptions.
// That pattern comes from an older ingest that copied one play's values onto
// its neighbours.
func (r *ReportRepository) CorruptedGroups(ctx context.Context) ([]models.CorruptedGroup, error) {
	start := time.Now()
	query := `
		SELECT se.batter_name, se.wpa, se.launch_speed, se.launch_angle,
		       COUNT(*) AS event_count,
		       COUNT(DISTINCT se.raw_description) AS different_outcomes,
		       array_agg(se.id ORDER BY se.id) AS event_ids
		FROM statcast_events se
		JOIN games g ON g.mlb_game_pk = se.mlb_game_pk
		WHERE g.attended
		  AND se.wpa IS NOT NULL
		  AND se.launch_speed IS NOT NULL
		  AND se.launch_angle IS NOT NULL
		GROUP BY se.batter_name, se.wpa, se.launch_speed, se.launch_angle
		HAVING COUNT(DISTINCT se.raw_description) > 1 AND COUNT(*) > 2
		ORDER BY event_count DESC, se.batter_name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	observe("select", "statcast_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrupted groups: %w", err)
	}
	defer rows.Close()

	var groups []models.CorruptedGroup
	for rows.Next() {
		var g models.CorruptedGroup
		if err := rows.Scan(
			&g.BatterName, &g.WPA, &g.LaunchSpeed, &g.LaunchAngle,
			&g.Events, &g.Outcomes, &g.EventIDs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan corrupted group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corrupted groups: %w", err)
	}

	return groups, nil
}

// SuspectWPACount counts events whose |WPA| exceeds 1
func (r *ReportRepository) SuspectWPACount(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM statcast_events WHERE wpa_suspect OR ABS(wpa) > 1`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count suspect WPA: %w", err)
	}
	return count, nil
}

// GamesMissingPk returns attended games the resolver has not matched yet
func (r *ReportRepository) GamesMissingPk(ctx context.Context) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE attended AND mlb_game_pk IS NULL
		ORDER BY date, id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list games missing pk: %w", err)
	}

	return collectGames(rows)
}

// Integrity runs every data quality check
func (r *ReportRepository) Integrity(ctx context.Context) (*IntegrityReport, error) {
	groups, err := r.CorruptedGroups(ctx)
	if err != nil {
		return nil, err
	}

	suspect, err := r.SuspectWPACount(ctx)
	if err != nil {
		return nil, err
	}

	missing, err := r.GamesMissingPk(ctx)
	if err != nil {
		return nil, err
	}

	return &IntegrityReport{
		CorruptedGroups: groups,
		SuspectWPA:      suspect,
		MissingGamePk:   missing,
	}, nil
}
