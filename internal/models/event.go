package models

import (
	"database/sql"
	"time"
)

// Half-inning labels as stored
const (
	HalfTop    = "Top"
	HalfBottom = "Bot"
)

// Event is a normalized Statcast event. WPA is always expressed from the home
// team's perspective: positive helped the home team.
type Event struct {
	ID     int `db:"id"`
	GamePk int `db:"mlb_game_pk"`

	// Chronological key
	Seq         int            `db:"seq"`
	Inning      sql.NullInt32  `db:"inning"`
	InningHalf  sql.NullString `db:"inning_topbot"`
	AtBatNumber sql.NullInt32  `db:"at_bat_number"`
	PitchNumber sql.NullInt32  `db:"pitch_number"`
	SvID        sql.NullString `db:"sv_id"`

	EventDate   string `db:"event_datetime"`
	BatterName  string `db:"batter_name"`
	PitcherName string `db:"pitcher_name"`
	PitchType   string `db:"pitch_type"`

	// Batted ball
	LaunchSpeed sql.NullInt32 `db:"launch_speed"`
	LaunchAngle sql.NullInt32 `db:"launch_angle"`
	EstimatedBA sql.NullInt32 `db:"estimated_ba"` // thousandths
	HitDistance sql.NullInt32 `db:"hit_distance_sc"`

	Description string `db:"raw_description"`
	EventType   string `db:"event_type"`

	// Win probability
	WPA        sql.NullFloat64 `db:"wpa"`
	WPASuspect bool            `db:"wpa_suspect"`
	HomeWinExp sql.NullFloat64 `db:"home_win_exp"`
	AwayWinExp sql.NullFloat64 `db:"away_win_exp"`

	// Situation before the pitch
	Outs          sql.NullInt32  `db:"outs_when_up"`
	Balls         sql.NullInt32  `db:"balls"`
	Strikes       sql.NullInt32  `db:"strikes"`
	HomeScore     sql.NullInt32  `db:"home_score"`
	AwayScore     sql.NullInt32  `db:"away_score"`
	PostHomeScore sql.NullInt32  `db:"post_home_score"`
	PostAwayScore sql.NullInt32  `db:"post_away_score"`
	OnFirst       sql.NullString `db:"on_1b"`
	OnSecond      sql.NullString `db:"on_2b"`
	OnThird       sql.NullString `db:"on_3b"`

	// Video
	ClipID   sql.NullString `db:"clip_uuid"`
	VideoURL sql.NullString `db:"video_url"`

	CreatedAt time.Time `db:"created_at"`
}

// IsPlateAppearanceEnd returns true when the event closed out a plate appearance
func (e *Event) IsPlateAppearanceEnd() bool {
	return e.EventType != ""
}

// IsBarrel applies the barrel band used by the barrel map: launch angle 8-50
// degrees and exit velocity of at least 98 mph.
func (e *Event) IsBarrel() bool {
	if !e.LaunchSpeed.Valid || !e.LaunchAngle.Valid {
		return false
	}
	return isBarrel(int(e.LaunchSpeed.Int32), int(e.LaunchAngle.Int32))
}

func isBarrel(speed, angle int) bool {
	return angle >= 8 && angle <= 50 && speed >= 98
}
