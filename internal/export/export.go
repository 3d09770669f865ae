// Package export writes the JSON datasets consumed by the web front end.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gamelog/ingestion/internal/heartbeat"
	"gamelog/ingestion/internal/metrics"
	"gamelog/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// Output file names
const (
	GamesFile         = "games.json"
	HeartbeatFile     = "heartbeat_data.json"
	SparklineFile     = "wpa_sparkline.json"
	DramaIndexFile    = "drama_index.json"
	WPALeadersFile    = "wpa_leaders.json"
	LongestHomersFile = "longest_homers.json"
	BarrelMapFile     = "barrel_map.json"
)

// Row limits, matching what the front end renders
const (
	dramaLimit  = 50
	leaderLimit = 25
	homerLimit  = 100
)

// GameLister lists attended games
type GameLister interface {
	ListAll(ctx context.Context) ([]*models.Game, error)
	ListAttended(ctx context.Context, gamePk int) ([]*models.Game, error)
}

// EventLister reads a game's stored events in sequence order
type EventLister interface {
	ListByGame(ctx context.Context, gamePk int) ([]models.Event, error)
}

// ReportSource runs the aggregate report queries
type ReportSource interface {
	TopMoments(ctx context.Context, limit int, includeSuspect bool) ([]models.Moment, error)
	WPALeaders(ctx context.Context, limit int, includeSuspect bool) ([]models.WPALeader, error)
	LongestHomers(ctx context.Context, limit int) ([]models.Homer, error)
	BattedBalls(ctx context.Context) ([]models.BattedBall, error)
}

// Options configures an Exporter
type Options struct {
	Dir            string
	ReferenceTeam  string
	IncludeSuspect bool
}

// Exporter builds and writes every dataset
type Exporter struct {
	games   GameLister
	events  EventLister
	reports ReportSource
	opts    Options
}

// New creates an Exporter
func New(games GameLister, events EventLister, reports ReportSource, opts Options) *Exporter {
	return &Exporter{games: games, events: events, reports: reports, opts: opts}
}

// GameEntry is one row of the attended game list
type GameEntry struct {
	GamePk    *int32 `json:"game_pk"`
	Date      string `json:"date"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore *int32 `json:"home_score"`
	AwayScore *int32 `json:"away_score"`
	Attended  bool   `json:"attended"`
	Venue     string `json:"venue,omitempty"`
	Result    string `json:"result,omitempty"`
}

// Sparkline is the cumulative home-relative WPA after each play of a game
type Sparkline struct {
	GamePk int       `json:"game_pk"`
	Series []float64 `json:"series"`
}

// GameHeartbeat is the heartbeat of one attended game with its header
type GameHeartbeat struct {
	GamePk    int    `json:"game_pk"`
	Date      string `json:"date"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore *int32 `json:"home_score"`
	AwayScore *int32 `json:"away_score"`

	// Result is W or L for the reference team, empty when it did not play
	Result  string `json:"result,omitempty"`
	Final   string `json:"final_score,omitempty"`
	Matchup string `json:"matchup"`

	models.Heartbeat
}

// BarrelPoint is one barrel map entry
type BarrelPoint struct {
	models.BattedBall
	Outcome  string `json:"outcome"`
	IsBarrel bool   `json:"is_barrel"`
	Matchup  string `json:"matchup"`
}

// Games lists every attended game, newest first, including games the
// resolver has not matched yet
func (e *Exporter) Games(ctx context.Context) ([]GameEntry, error) {
	games, err := e.games.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	out := make([]GameEntry, 0, len(games))
	for _, g := range games {
		out = append(out, GameEntry{
			GamePk:    nullInt(g.GamePk.Int32, g.GamePk.Valid),
			Date:      g.Date.Format("2006-01-02"),
			HomeTeam:  g.HomeTeam,
			AwayTeam:  g.AwayTeam,
			HomeScore: nullInt(g.HomeScore.Int32, g.HomeScore.Valid),
			AwayScore: nullInt(g.AwayScore.Int32, g.AwayScore.Valid),
			Attended:  g.Attended,
			Venue:     g.VenueName.String,
			Result:    result(g, e.opts.ReferenceTeam),
		})
	}
	return out, nil
}

// Heartbeats builds the heartbeat of every attended game, ranked by drama
// score. Ties keep date then game id order.
func (e *Exporter) Heartbeats(ctx context.Context) ([]GameHeartbeat, error) {
	heartbeats, _, err := e.timelines(ctx)
	return heartbeats, err
}

// Sparklines returns the cumulative WPA series of every game with plays,
// oldest first
func (e *Exporter) Sparklines(ctx context.Context) ([]Sparkline, error) {
	_, sparklines, err := e.timelines(ctx)
	return sparklines, err
}

// timelines loads each game's events once and derives both per-game series
func (e *Exporter) timelines(ctx context.Context) ([]GameHeartbeat, []Sparkline, error) {
	games, err := e.games.ListAttended(ctx, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list attended games: %w", err)
	}

	heartbeats := make([]GameHeartbeat, 0, len(games))
	sparklines := make([]Sparkline, 0, len(games))
	for _, g := range games {
		pk := int(g.GamePk.Int32)

		events, err := e.events.ListByGame(ctx, pk)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load events for game %d: %w", pk, err)
		}

		plays := heartbeat.PlayEvents(events, e.opts.IncludeSuspect)
		hb := heartbeat.Build(plays, heartbeat.Teams{Home: g.HomeTeam, Away: g.AwayTeam})

		heartbeats = append(heartbeats, GameHeartbeat{
			GamePk:    pk,
			Date:      g.Date.Format("2006-01-02"),
			HomeTeam:  g.HomeTeam,
			AwayTeam:  g.AwayTeam,
			HomeScore: nullInt(g.HomeScore.Int32, g.HomeScore.Valid),
			AwayScore: nullInt(g.AwayScore.Int32, g.AwayScore.Valid),
			Result:    result(g, e.opts.ReferenceTeam),
			Final:     g.ScoreLine(),
			Matchup:   g.Matchup(),
			Heartbeat: hb,
		})

		if len(plays) > 0 {
			sparklines = append(sparklines, Sparkline{GamePk: pk, Series: cumulative(plays)})
		}
	}

	sort.SliceStable(heartbeats, func(i, j int) bool {
		a, b := heartbeats[i], heartbeats[j]
		if a.DramaScore != b.DramaScore {
			return a.DramaScore > b.DramaScore
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.GamePk < b.GamePk
	})

	return heartbeats, sparklines, nil
}

// cumulative returns the running WPA sum after each play, to 3 decimals
func cumulative(plays []models.Event) []float64 {
	series := make([]float64, len(plays))
	sum := 0.0
	for i, p := range plays {
		sum += p.WPA.Float64
		series[i] = math.Round(sum*1000) / 1000
	}
	return series
}

// BarrelMap decorates batted balls with outcome and barrel flags
func (e *Exporter) BarrelMap(ctx context.Context) ([]BarrelPoint, error) {
	balls, err := e.reports.BattedBalls(ctx)
	if err != nil {
		return nil, err
	}

	points := make([]BarrelPoint, len(balls))
	for i := range balls {
		b := balls[i]
		if b.EventType == "" {
			b.EventType = b.Description
		}
		points[i] = BarrelPoint{
			BattedBall: b,
			Outcome:    b.Outcome(),
			IsBarrel:   b.IsBarrel(),
			Matchup:    b.AwayTeam + " @ " + b.HomeTeam,
		}
	}
	return points, nil
}

// Run writes every dataset into the output directory
func (e *Exporter) Run(ctx context.Context) error {
	start := time.Now()

	if err := os.MkdirAll(e.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	games, err := e.Games(ctx)
	if err != nil {
		return e.failed(start, err)
	}
	if err := e.write(GamesFile, games, len(games)); err != nil {
		return e.failed(start, err)
	}

	heartbeats, sparklines, err := e.timelines(ctx)
	if err != nil {
		return e.failed(start, err)
	}
	if err := e.write(HeartbeatFile, heartbeats, len(heartbeats)); err != nil {
		return e.failed(start, err)
	}
	if err := e.write(SparklineFile, sparklines, len(sparklines)); err != nil {
		return e.failed(start, err)
	}

	moments, err := e.reports.TopMoments(ctx, dramaLimit, e.opts.IncludeSuspect)
	if err != nil {
		return e.failed(start, err)
	}
	if err := e.write(DramaIndexFile, nonNil(moments), len(moments)); err != nil {
		return e.failed(start, err)
	}

	leaders, err := e.reports.WPALeaders(ctx, leaderLimit, e.opts.IncludeSuspect)
	if err != nil {
		return e.failed(start, err)
	}
	if err := e.write(WPALeadersFile, nonNil(leaders), len(leaders)); err != nil {
		return e.failed(start, err)
	}

	homers, err := e.reports.LongestHomers(ctx, homerLimit)
	if err != nil {
		return e.failed(start, err)
	}
	if err := e.write(LongestHomersFile, nonNil(homers), len(homers)); err != nil {
		return e.failed(start, err)
	}

	barrels, err := e.BarrelMap(ctx)
	if err != nil {
		return e.failed(start, err)
	}
	if err := e.write(BarrelMapFile, barrels, len(barrels)); err != nil {
		return e.failed(start, err)
	}

	metrics.RecordSync("export", "success", time.Since(start).Seconds())
	log.Info().
		Str("dir", e.opts.Dir).
		Int("games", len(games)).
		Int("heartbeats", len(heartbeats)).
		Dur("duration", time.Since(start)).
		Msg("Export complete")

	return nil
}

func (e *Exporter) failed(start time.Time, err error) error {
	metrics.RecordSync("export", "error", time.Since(start).Seconds())
	metrics.RecordError("export", "write")
	return fmt.Errorf("export failed: %w", err)
}

// write replaces name atomically so readers never see a partial file
func (e *Exporter) write(name string, v any, rows int) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(e.opts.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	path := filepath.Join(e.opts.Dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	log.Info().Str("file", path).Int("rows", rows).Msg("Wrote export")
	return nil
}

// result returns W or L for the reference team
func result(g *models.Game, team string) string {
	won, ok := g.Won(team)
	if !ok {
		return ""
	}
	if won {
		return "W"
	}
	return "L"
}

func nullInt(v int32, valid bool) *int32 {
	if !valid {
		return nil
	}
	return &v
}

// nonNil makes an empty result encode as [] instead of null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
