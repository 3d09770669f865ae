package models

import (
	"strings"
	"time"
)

// Moment is one high-leverage play for the drama index
type Moment struct {
	GamePk      int       `json:"mlb_game_pk"`
	Date        time.Time `json:"date"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	HomeScore   *int32    `json:"home_score"`
	AwayScore   *int32    `json:"away_score"`
	WPA         float64   `json:"wpa"`
	BatterName  string    `json:"batter_name"`
	PitcherName string    `json:"pitcher_name"`
	EventType   string    `json:"event_type"`
	Description string    `json:"raw_description"`
	ClipID      *string   `json:"clip_uuid"`
	VideoURL    *string   `json:"video_url"`
}

// WPALeader is a batter's lifetime WPA across attended games. WPA is credited
// to the batter: home-relative values are negated for top-half plays.
type WPALeader struct {
	BatterName       string  `json:"batter_name"`
	LifetimeWPA      float64 `json:"lifetime_wpa"`
	PlateAppearances int     `json:"plate_appearances"`
	Games            int     `json:"games"`
}

// Homer is one home run with its projected distance
type Homer struct {
	GamePk      int       `json:"game_pk"`
	Date        time.Time `json:"date"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	BatterName  string    `json:"batter_name"`
	PitcherName string    `json:"pitcher_name"`
	Distance    int       `json:"distance"`
	LaunchSpeed *int32    `json:"launch_speed"`
	LaunchAngle *int32    `json:"launch_angle"`
}

// BattedBall is one point of the barrel map
type BattedBall struct {
	Date        time.Time `json:"date"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	BatterName  string    `json:"batter_name"`
	LaunchSpeed int       `json:"launch_speed"`
	LaunchAngle int       `json:"launch_angle"`
	EventType   string    `json:"event_type"`
	Description string    `json:"raw_description"`
}

// Outcome buckets the batted ball result for plotting
func (b *BattedBall) Outcome() string {
	et := strings.ToLower(b.EventType)
	switch {
	case et == "home_run":
		return "home_run"
	case strings.Contains(et, "out"), strings.Contains(et, "error"), strings.Contains(et, "fielders_choice"):
		return "out"
	}
	return "hit"
}

// IsBarrel applies the same band as Event.IsBarrel
func (b *BattedBall) IsBarrel() bool {
	return isBarrel(b.LaunchSpeed, b.LaunchAngle)
}

// CorruptedGroup is a set of events where one batter shares an identical
// (wpa, launch speed, launch angle) triple across different outcomes
type CorruptedGroup struct {
	BatterName  string  `json:"batter_name"`
	WPA         float64 `json:"wpa"`
	LaunchSpeed int     `json:"launch_speed"`
	LaunchAngle int     `json:"launch_angle"`
	Events      int     `json:"event_count"`
	Outcomes    int     `json:"different_outcomes"`
	EventIDs    []int   `json:"event_ids"`
}
