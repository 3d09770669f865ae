package heartbeat

import (
	"database/sql"
	"testing"

	"gamelog/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(wpa float64, homeWinExp *float64) models.Event {
	e := models.Event{
		BatterName: "Rafael Devers",
		EventType:  "single",
		WPA:        sql.NullFloat64{Float64: wpa, Valid: true},
	}
	if homeWinExp != nil {
		e.HomeWinExp = sql.NullFloat64{Float64: *homeWinExp, Valid: true}
	}
	return e
}

func ptr(f float64) *float64 { return &f }

func TestBuild_ThreePlayScenario(t *testing.T) {
	events := []models.Event{
		event(0.30, ptr(0.50)),
		event(-0.05, nil),
		event(0.10, nil),
	}

	hb := Build(events, Teams{Home: "BOS", Away: "NYY"})
	require.True(t, hb.HasData)
	require.Len(t, hb.Points, 4)

	want := []float64{0.50, 0.80, 0.75, 0.85}
	for i, p := range hb.Points {
		assert.InDelta(t, want[i], p.Y, 1e-9, "point %d", i)
	}

	assert.Equal(t, 0.0, hb.Points[0].X)
	assert.Equal(t, 1.0, hb.Points[3].X)
	assert.InDelta(t, 1.0/3, hb.Points[1].X, 1e-12)
	assert.Equal(t, 3, hb.TotalEvents)

	// 10*0.45 + 5*2 + 20*0.14337 = 17.37
	assert.Equal(t, 17.4, hb.DramaScore)
	assert.Equal(t, "flatline", hb.DramaCategory.Level)
}

func TestBuild_NoWinExpectancyIsFlat(t *testing.T) {
	for name, events := range map[string][]models.Event{
		"no events":         nil,
		"no win expectancy": {event(0.2, nil), event(-0.1, nil)},
	} {
		t.Run(name, func(t *testing.T) {
			hb := Build(events, Teams{})
			assert.False(t, hb.HasData)
			require.Len(t, hb.Points, 2)
			assert.Equal(t, 0.0, hb.Points[0].X)
			assert.Equal(t, 1.0, hb.Points[1].X)
			assert.Equal(t, 0.5, hb.Points[0].Y)
			assert.Equal(t, 0.5, hb.Points[1].Y)
			assert.Equal(t, 0.0, hb.DramaScore)
			assert.Equal(t, "flatline", hb.DramaCategory.Level)
		})
	}
}

func TestBuild_Clamps(t *testing.T) {
	events := []models.Event{
		event(0.4, ptr(1.2)),
		event(-0.7, nil),
		event(-0.9, nil),
		event(0.05, nil),
	}

	hb := Build(events, Teams{})
	for _, p := range hb.Points {
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.LessOrEqual(t, p.Y, 1.0)
	}
	assert.Equal(t, 1.0, hb.Points[0].Y)
	assert.Equal(t, 1.0, hb.Points[1].Y)
	assert.InDelta(t, 0.3, hb.Points[2].Y, 1e-9)
	assert.Equal(t, 0.0, hb.Points[3].Y)
	assert.InDelta(t, 0.05, hb.Points[4].Y, 1e-9)
}

func TestDramaScore_OrderIndependent(t *testing.T) {
	deltas := []float64{0.31, -0.052, 0.1, -0.27, 0.004, 0.18, -0.09, 0.4}
	reversed := make([]float64, len(deltas))
	for i, d := range deltas {
		reversed[len(deltas)-1-i] = d
	}
	shuffled := []float64{-0.09, 0.4, 0.31, 0.004, -0.27, 0.1, 0.18, -0.052}

	base := DramaScore(deltas)
	assert.Equal(t, base, DramaScore(reversed))
	assert.Equal(t, base, DramaScore(shuffled))
	assert.Equal(t, base, DramaScore(deltas), "repeatable")
}

func TestDramaScore_Bounds(t *testing.T) {
	assert.Equal(t, 0.0, DramaScore(nil))
	assert.Equal(t, 0.0, DramaScore([]float64{0}))

	big := make([]float64, 40)
	for i := range big {
		big[i] = 0.3
		if i%2 == 0 {
			big[i] = -0.3
		}
	}
	assert.Equal(t, 100.0, DramaScore(big))
}

func TestCategorize_ClosedLowerBounds(t *testing.T) {
	tests := []struct {
		score float64
		level string
	}{
		{100, "cardiac_arrest"},
		{70, "cardiac_arrest"},
		{69.9, "elevated"},
		{40, "elevated"},
		{39.9, "steady"},
		{20, "steady"},
		{19.9, "flatline"},
		{0, "flatline"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, Categorize(tt.score).Level, "score %.1f", tt.score)
	}
	assert.Equal(t, "#ef4444", Categorize(70).Color)
}

func TestPlayEvents(t *testing.T) {
	suspect := event(1.4, nil)
	suspect.WPASuspect = true
	pitch := event(0.01, nil)
	pitch.EventType = ""
	noWPA := event(0, nil)
	noWPA.WPA = sql.NullFloat64{}

	events := []models.Event{event(0.1, nil), suspect, pitch, noWPA}

	assert.Len(t, PlayEvents(events, false), 1)
	assert.Len(t, PlayEvents(events, true), 2)
}

func TestSituationAndScoreContext(t *testing.T) {
	e := models.Event{
		Inning:        sql.NullInt32{Int32: 7, Valid: true},
		InningHalf:    sql.NullString{String: "Bot", Valid: true},
		Outs:          sql.NullInt32{Int32: 1, Valid: true},
		Balls:         sql.NullInt32{Int32: 3, Valid: true},
		Strikes:       sql.NullInt32{Int32: 2, Valid: true},
		HomeScore:     sql.NullInt32{Int32: 2, Valid: true},
		AwayScore:     sql.NullInt32{Int32: 3, Valid: true},
		PostHomeScore: sql.NullInt32{Int32: 4, Valid: true},
		PostAwayScore: sql.NullInt32{Int32: 3, Valid: true},
	}
	teams := Teams{Home: "BOS", Away: "NYY"}

	assert.Equal(t, "Bot 7, 1 out, 3-2 count", Situation(e))
	assert.Equal(t, "Score: 3-2 NYY → 4-3 BOS", ScoreContext(e, teams))

	e.PostHomeScore.Int32 = 2
	assert.Equal(t, "Score: 3-2 NYY", ScoreContext(e, teams))

	e.HomeScore.Int32 = 3
	e.PostHomeScore.Int32 = 3
	assert.Equal(t, "Score: 3-3 TIE", ScoreContext(e, teams))

	assert.Equal(t, "Unknown situation", Situation(models.Event{}))
	assert.Empty(t, ScoreContext(models.Event{}, teams))
}
