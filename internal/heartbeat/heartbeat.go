// Package heartbeat rebuilds a game's home win probability curve from its
// ordered events and scores how volatile the game was.
package heartbeat

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gamelog/ingestion/internal/models"
)

// SignificantSwing is the |WPA| at which a play counts as a big moment
const SignificantSwing = 0.1

// Drama categories, highest first. Lower bounds are inclusive.
var categories = []struct {
	min float64
	cat models.DramaCategory
}{
	{70, models.DramaCategory{Level: "cardiac_arrest", Label: "Cardiac Arrest", Color: "#ef4444"}},
	{40, models.DramaCategory{Level: "elevated", Label: "Elevated Heartbeat", Color: "#f97316"}},
	{20, models.DramaCategory{Level: "steady", Label: "Steady Heartbeat", Color: "#22c55e"}},
	{math.Inf(-1), models.DramaCategory{Level: "flatline", Label: "Flatline", Color: "#6b7280"}},
}

// Teams names the two sides for score context strings
type Teams struct {
	Home string
	Away string
}

// PlayEvents keeps the events that belong on the curve: plate appearance
// endings with a WPA value. Suspect WPA is left out unless includeSuspect.
func PlayEvents(events []models.Event, includeSuspect bool) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if !e.IsPlateAppearanceEnd() || !e.WPA.Valid {
			continue
		}
		if e.WPASuspect && !includeSuspect {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Build reconstructs the curve for events already in chronological order.
//
// The first point is the first event's pre-play home win expectancy. Each
// following point adds that event's WPA to the previous point, clamped to
// [0, 1]. x is the event's rank over the event count. With no win expectancy
// on any event the result is a flat line at 0.5 and HasData is false.
func Build(events []models.Event, teams Teams) models.Heartbeat {
	start, ok := firstWinExp(events)
	if !ok {
		return flatline()
	}

	n := len(events)
	points := make([]models.HeartbeatPoint, 0, n+1)
	points = append(points, models.HeartbeatPoint{
		X:            0,
		Y:            start,
		PrevY:        start,
		Batter:       "Game Start",
		Event:        "game_start",
		Description:  "First Pitch",
		Situation:    "Top 1, 0 outs",
		ScoreContext: "Score: 0-0",
	})

	deltas := make([]float64, 0, n)
	y := start
	for i, e := range events {
		d := 0.0
		if e.WPA.Valid {
			d = e.WPA.Float64
		}
		deltas = append(deltas, d)

		prev := y
		y = clamp(prev + d)

		points = append(points, models.HeartbeatPoint{
			X:            float64(i+1) / float64(n),
			Y:            y,
			PrevY:        prev,
			WPA:          d,
			Batter:       e.BatterName,
			Pitcher:      e.PitcherName,
			Event:        e.EventType,
			Description:  e.Description,
			Situation:    Situation(e),
			ScoreContext: ScoreContext(e, teams),
		})
	}

	score := DramaScore(deltas)
	return models.Heartbeat{
		Points:        points,
		DramaScore:    score,
		DramaCategory: Categorize(score),
		TotalEvents:   n,
		HasData:       true,
	}
}

// firstWinExp returns the earliest known pre-play home win expectancy
func firstWinExp(events []models.Event) (float64, bool) {
	for _, e := range events {
		if e.HomeWinExp.Valid {
			return clamp(e.HomeWinExp.Float64), true
		}
	}
	return 0, false
}

func flatline() models.Heartbeat {
	return models.Heartbeat{
		Points: []models.HeartbeatPoint{
			{X: 0, Y: 0.5, PrevY: 0.5, Batter: "No data", Event: "game_start", Description: "Game start"},
			{X: 1, Y: 0.5, PrevY: 0.5, Batter: "No data", Event: "game_end", Description: "Game end - no WPA data available"},
		},
		DramaScore:    0,
		DramaCategory: Categorize(0),
		HasData:       false,
	}
}

// DramaScore combines the total swing, the number of significant swings and
// the population standard deviation of the deltas:
//
//	min(100, 10*sum|d| + 5*count(|d| >= 0.1) + 20*stddev)
//
// rounded to one decimal. Deltas are summed in sorted order so any ordering
// of the same multiset gives the same float result.
func DramaScore(deltas []float64) float64 {
	if len(deltas) == 0 {
		return 0
	}

	sorted := make([]float64, len(deltas))
	copy(sorted, deltas)
	sort.Float64s(sorted)

	var swing, sum float64
	significant := 0
	for _, d := range sorted {
		swing += math.Abs(d)
		sum += d
		if math.Abs(d) >= SignificantSwing {
			significant++
		}
	}

	mean := sum / float64(len(sorted))
	var sq float64
	for _, d := range sorted {
		sq += (d - mean) * (d - mean)
	}
	stddev := math.Sqrt(sq / float64(len(sorted)))

	score := math.Min(100, swing*10+float64(significant)*5+stddev*20)
	return math.Round(score*10) / 10
}

// Categorize buckets a drama score
func Categorize(score float64) models.DramaCategory {
	for _, c := range categories {
		if score >= c.min {
			return c.cat
		}
	}
	return categories[len(categories)-1].cat
}

// Situation describes the game state before the play, e.g. "Bot 7, 2 outs, 3-2 count"
func Situation(e models.Event) string {
	var parts []string
	if e.Inning.Valid && e.InningHalf.Valid {
		parts = append(parts, fmt.Sprintf("%s %d", e.InningHalf.String, e.Inning.Int32))
	}
	if e.Outs.Valid {
		noun := "outs"
		if e.Outs.Int32 == 1 {
			noun = "out"
		}
		parts = append(parts, fmt.Sprintf("%d %s", e.Outs.Int32, noun))
	}
	if e.Balls.Valid && e.Strikes.Valid {
		parts = append(parts, fmt.Sprintf("%d-%d count", e.Balls.Int32, e.Strikes.Int32))
	}
	if len(parts) == 0 {
		return "Unknown situation"
	}
	return strings.Join(parts, ", ")
}

// ScoreContext formats the score before the play, and after it when the play
// changed the score: "Score: 3-2 BOS → 4-3 NYY"
func ScoreContext(e models.Event, teams Teams) string {
	if !e.HomeScore.Valid || !e.AwayScore.Valid {
		return ""
	}

	pre := scoreText(e.HomeScore.Int32, e.AwayScore.Int32, teams)
	if !e.PostHomeScore.Valid || !e.PostAwayScore.Valid {
		return "Score: " + pre
	}
	if e.PostHomeScore.Int32 == e.HomeScore.Int32 && e.PostAwayScore.Int32 == e.AwayScore.Int32 {
		return "Score: " + pre
	}
	return "Score: " + pre + " → " + scoreText(e.PostHomeScore.Int32, e.PostAwayScore.Int32, teams)
}

func scoreText(home, away int32, teams Teams) string {
	hi, lo := home, away
	if away > home {
		hi, lo = away, home
	}

	leader := "TIE"
	switch {
	case home > away:
		leader = teams.Home
	case away > home:
		leader = teams.Away
	}
	return strings.TrimSpace(fmt.Sprintf("%d-%d %s", hi, lo, leader))
}

func clamp(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
