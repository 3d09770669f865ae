package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Provenance tags for how an attended game was recorded
const (
	SourceManual    = "manual"
	SourceScorecard = "scorecard"
	SourceAppImport = "app-import"
)

// Game represents a game attended in person
type Game struct {
	ID        int       `db:"id"`
	Date      time.Time `db:"date"`
	HomeTeam  string    `db:"home_team"`
	AwayTeam  string    `db:"away_team"`
	Attended  bool      `db:"attended"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// Enrichment (filled once by the resolver)
	GamePk    sql.NullInt32  `db:"mlb_game_pk"`
	HomeScore sql.NullInt32  `db:"home_score"`
	AwayScore sql.NullInt32  `db:"away_score"`
	VenueID   sql.NullInt32  `db:"venue_id"`
	VenueName sql.NullString `db:"venue_name"`
}

// GameMeta is the enrichment result returned by the schedule lookup
type GameMeta struct {
	GamePk    int
	HomeScore *int
	AwayScore *int
	VenueID   int
	VenueName string
}

// ScheduleResponse mirrors the StatsAPI /api/v1/schedule payload
type ScheduleResponse struct {
	Dates []struct {
		Date  string         `json:"date"`
		Games []ScheduleGame `json:"games"`
	} `json:"dates"`
}

// ScheduleGame is one game entry of the schedule payload
type ScheduleGame struct {
	GamePk int    `json:"gamePk"`
	Status struct {
		DetailedState string `json:"detailedState"`
	} `json:"status"`
	Teams struct {
		Home ScheduleTeam `json:"home"`
		Away ScheduleTeam `json:"away"`
	} `json:"teams"`
	Venue struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"venue"`
}

// ScheduleTeam is one side of a schedule entry
type ScheduleTeam struct {
	Score *int `json:"score,omitempty"`
	Team  struct {
		ID           int    `json:"id"`
		Name         string `json:"name"`
		Abbreviation string `json:"abbreviation"`
	} `json:"team"`
}

// ToMeta converts a schedule entry to enrichment metadata
func (sg *ScheduleGame) ToMeta() *GameMeta {
	return &GameMeta{
		GamePk:    sg.GamePk,
		HomeScore: sg.Teams.Home.Score,
		AwayScore: sg.Teams.Away.Score,
		VenueID:   sg.Venue.ID,
		VenueName: sg.Venue.Name,
	}
}

// HasGamePk returns true once the resolver has assigned an external id
func (g *Game) HasGamePk() bool {
	return g.GamePk.Valid
}

// IsEnriched returns true when both the external id and final score are known
func (g *Game) IsEnriched() bool {
	return g.GamePk.Valid && g.HomeScore.Valid && g.AwayScore.Valid
}

// Matchup returns "AWAY @ HOME"
func (g *Game) Matchup() string {
	return fmt.Sprintf("%s @ %s", g.AwayTeam, g.HomeTeam)
}

// Won reports whether the given team won this game. The second value is false
// when the team did not play or the score is unknown.
func (g *Game) Won(team string) (bool, bool) {
	if !g.HomeScore.Valid || !g.AwayScore.Valid {
		return false, false
	}
	switch team {
	case g.HomeTeam:
		return g.HomeScore.Int32 > g.AwayScore.Int32, true
	case g.AwayTeam:
		return g.AwayScore.Int32 > g.HomeScore.Int32, true
	}
	return false, false
}

// ScoreLine formats the final score as higher-lower
func (g *Game) ScoreLine() string {
	if !g.HomeScore.Valid || !g.AwayScore.Valid {
		return ""
	}
	hi, lo := g.HomeScore.Int32, g.AwayScore.Int32
	if lo > hi {
		hi, lo = lo, hi
	}
	return fmt.Sprintf("%d-%d", hi, lo)
}
