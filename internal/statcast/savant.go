package statcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gamelog/ingestion/internal/models"
)

// SourceSavant is the Baseball Savant pitch-level export
const SourceSavant = "savant"

// ExportFetcher returns pitch-level export rows for a game
type ExportFetcher interface {
	FetchGameExport(ctx context.Context, gamePk int) ([]map[string]any, error)
}

// SavantSource maps Statcast export rows. Column names drift across seasons,
// so every field is read through its list of known aliases.
type SavantSource struct {
	export ExportFetcher
}

// NewSavantSource creates the primary source
func NewSavantSource(export ExportFetcher) *SavantSource {
	return &SavantSource{export: export}
}

// Name returns the source name
func (s *SavantSource) Name() string {
	return SourceSavant
}

// Fetch returns one raw record per export row, in payload order
func (s *SavantSource) Fetch(ctx context.Context, gamePk int) FetchResult {
	rows, err := s.export.FetchGameExport(ctx, gamePk)
	if err != nil {
		return result(SourceSavant, nil, err)
	}

	records := make([]models.RawPlayRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, savantRecord(gamePk, i, row))
	}

	return result(SourceSavant, records, nil)
}

func savantRecord(gamePk, order int, row map[string]any) models.RawPlayRecord {
	col := func(names ...string) any {
		for _, n := range names {
			if v, ok := row[n]; ok && !blank(v) {
				return v
			}
		}
		return nil
	}
	text := func(names ...string) string {
		return stringValue(col(names...))
	}

	return models.RawPlayRecord{
		Source:   SourceSavant,
		GamePk:   gamePk,
		Order:    order,
		GameDate: text("game_date"),

		Inning:      col("inning"),
		Half:        text("inning_topbot"),
		AtBatNumber: col("at_bat_number"),
		PitchNumber: col("pitch_number"),
		SvID:        text("sv_id"),

		BatterName:  text("player_name", "batter_name"),
		BatterID:    col("batter"),
		PitcherName: text("pitcher_name"),
		PitcherID:   col("pitcher"),

		EventType:   text("events"),
		Description: text("des", "description"),
		PitchType:   text("pitch_type"),

		LaunchSpeed: col("launch_speed", "launch_speed_value"),
		LaunchAngle: col("launch_angle", "launch_angle_value"),
		EstimatedBA: col("estimated_ba_using_speedangle", "xba"),
		HitDistance: col("hit_distance_sc", "hit_distance"),

		DeltaHomeWinExp: col("delta_home_win_exp"),
		HomeWinExp:      col("home_win_exp"),

		Outs:          col("outs_when_up"),
		Balls:         col("balls"),
		Strikes:       col("strikes"),
		HomeScore:     col("home_score"),
		AwayScore:     col("away_score"),
		PostHomeScore: col("post_home_score"),
		PostAwayScore: col("post_away_score"),
		OnFirst:       col("on_1b"),
		OnSecond:      col("on_2b"),
		OnThird:       col("on_3b"),

		PlayID: text("play_id", "play_guid"),
	}
}

// blank reports values that mean "column absent" in the export
func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s == "" || s == "nan" || s == "null" || s == "none"
	}
	return false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
