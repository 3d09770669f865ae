package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gamelog/ingestion/internal/models"
)

// StatsAPI is the official MLB schedule and play-by-play feed
type StatsAPI struct {
	*Client
}

// NewStatsAPI creates a StatsAPI client
func NewStatsAPI(baseURL string, timeout time.Duration, opts ...Option) *StatsAPI {
	return &StatsAPI{Client: NewClient("statsapi", baseURL, timeout, opts...)}
}

// FetchSchedule returns the games scheduled on date. When teamID and
// opponentID are positive the query is narrowed to that matchup.
func (s *StatsAPI) FetchSchedule(ctx context.Context, date time.Time, teamID, opponentID int) ([]models.ScheduleGame, error) {
	params := map[string]string{
		"sportId": "1",
		"date":    date.Format("2006-01-02"),
	}
	if teamID > 0 {
		params["teamId"] = strconv.Itoa(teamID)
		params["hydrate"] = "team,linescore,flags"
	}
	if opponentID > 0 {
		params["opponentId"] = strconv.Itoa(opponentID)
	}

	body, err := s.get(ctx, "schedule", "api/v1/schedule", params, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}

	var schedule models.ScheduleResponse
	if err := json.Unmarshal(body, &schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}

	if len(schedule.Dates) == 0 {
		return nil, nil
	}
	return schedule.Dates[0].Games, nil
}

type peopleResponse struct {
	People []struct {
		ID       int    `json:"id"`
		FullName string `json:"fullName"`
	} `json:"people"`
}

// FetchPlayerName resolves a player id to a display name
func (s *StatsAPI) FetchPlayerName(ctx context.Context, playerID int) (string, error) {
	body, err := s.get(ctx, "people", fmt.Sprintf("api/v1/people/%d", playerID), nil, 1)
	if err != nil {
		return "", fmt.Errorf("failed to fetch player %d: %w", playerID, err)
	}

	var resp peopleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal player %d: %w", playerID, err)
	}
	if len(resp.People) == 0 || resp.People[0].FullName == "" {
		return "", fmt.Errorf("player %d: %w", playerID, ErrNotFound)
	}

	return resp.People[0].FullName, nil
}

// WinProbabilityPlay is one plate appearance from the winProbability endpoint.
// Win probabilities are percentages (0-100), home-relative.
type WinProbabilityPlay struct {
	Result struct {
		Type        string `json:"type"`
		Event       string `json:"event"`
		EventType   string `json:"eventType"`
		Description string `json:"description"`
		HomeScore   *int   `json:"homeScore"`
		AwayScore   *int   `json:"awayScore"`
	} `json:"result"`
	About struct {
		AtBatIndex  int    `json:"atBatIndex"`
		HalfInning  string `json:"halfInning"`
		Inning      int    `json:"inning"`
		StartTime   string `json:"startTime"`
		IsTopInning bool   `json:"isTopInning"`
	} `json:"about"`
	Count struct {
		Balls   *int `json:"balls"`
		Strikes *int `json:"strikes"`
		Outs    *int `json:"outs"`
	} `json:"count"`
	Matchup struct {
		Batter       PersonRef  `json:"batter"`
		Pitcher      PersonRef  `json:"pitcher"`
		PostOnFirst  *PersonRef `json:"postOnFirst,omitempty"`
		PostOnSecond *PersonRef `json:"postOnSecond,omitempty"`
		PostOnThird  *PersonRef `json:"postOnThird,omitempty"`
	} `json:"matchup"`
	PlayEvents []PlayEvent `json:"playEvents"`

	HomeTeamWinProbability      *float64 `json:"homeTeamWinProbability"`
	AwayTeamWinProbability      *float64 `json:"awayTeamWinProbability"`
	HomeTeamWinProbabilityAdded *float64 `json:"homeTeamWinProbabilityAdded"`
}

// PersonRef is a player reference inside a play
type PersonRef struct {
	ID       int    `json:"id"`
	FullName string `json:"fullName"`
}

// PlayEvent is a pitch or action inside a plate appearance
type PlayEvent struct {
	IsPitch     bool   `json:"isPitch"`
	Type        string `json:"type"`
	PitchNumber *int   `json:"pitchNumber"`
	PlayID      string `json:"playId"`
	Details     struct {
		Description string `json:"description"`
		Type        struct {
			Code string `json:"code"`
		} `json:"type"`
	} `json:"details"`
	Count struct {
		Balls   *int `json:"balls"`
		Strikes *int `json:"strikes"`
		Outs    *int `json:"outs"`
	} `json:"count"`
	HitData *HitData `json:"hitData,omitempty"`
}

// HitData is the batted-ball tracking attached to a pitch
type HitData struct {
	LaunchSpeed   *float64 `json:"launchSpeed"`
	LaunchAngle   *float64 `json:"launchAngle"`
	TotalDistance *float64 `json:"totalDistance"`
}

// FetchWinProbability returns the play-by-play win probability for a game.
// A game without data yields an empty slice and a nil error.
func (s *StatsAPI) FetchWinProbability(ctx context.Context, gamePk int) ([]WinProbabilityPlay, error) {
	body, err := s.get(ctx, "win_probability", fmt.Sprintf("api/v1/game/%d/winProbability", gamePk), nil, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch win probability for %d: %w", gamePk, err)
	}

	var plays []WinProbabilityPlay
	if err := json.Unmarshal(body, &plays); err != nil {
		return nil, fmt.Errorf("failed to unmarshal win probability for %d: %w", gamePk, err)
	}

	return plays, nil
}
