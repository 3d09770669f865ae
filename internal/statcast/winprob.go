package statcast

import (
	"context"

	"gamelog/ingestion/internal/client"
	"gamelog/ingestion/internal/models"
)

// SourceWinProbability is the StatsAPI per-play win probability feed
const SourceWinProbability = "statsapi_wp"

// WinProbabilityFetcher returns per-plate-appearance win probability plays
type WinProbabilityFetcher interface {
	FetchWinProbability(ctx context.Context, gamePk int) ([]client.WinProbabilityPlay, error)
}

// WinProbabilitySource emits one record per plate appearance. Pitch-level
// fields come from the last pitch of the appearance; win probability is
// reported in percent.
type WinProbabilitySource struct {
	api WinProbabilityFetcher
}

// NewWinProbabilitySource creates the secondary source
func NewWinProbabilitySource(api WinProbabilityFetcher) *WinProbabilitySource {
	return &WinProbabilitySource{api: api}
}

// Name returns the source name
func (s *WinProbabilitySource) Name() string {
	return SourceWinProbability
}

// Fetch maps the plays for a game
func (s *WinProbabilitySource) Fetch(ctx context.Context, gamePk int) FetchResult {
	plays, err := s.api.FetchWinProbability(ctx, gamePk)
	if err != nil {
		return result(SourceWinProbability, nil, err)
	}

	records := make([]models.RawPlayRecord, 0, len(plays))

	// Pre-play state is the previous play's post-play state
	homeScore, awayScore := 0, 0
	var prev *client.WinProbabilityPlay

	for i := range plays {
		p := &plays[i]
		sameHalf := prev != nil &&
			prev.About.Inning == p.About.Inning &&
			prev.About.IsTopInning == p.About.IsTopInning

		rec := models.RawPlayRecord{
			Source:          SourceWinProbability,
			GamePk:          gamePk,
			Order:           i,
			GameDate:        datePart(p.About.StartTime),
			Inning:          p.About.Inning,
			Half:            models.HalfBottom,
			AtBatNumber:     p.About.AtBatIndex + 1,
			BatterName:      p.Matchup.Batter.FullName,
			BatterID:        idOrNil(p.Matchup.Batter.ID),
			PitcherName:     p.Matchup.Pitcher.FullName,
			PitcherID:       idOrNil(p.Matchup.Pitcher.ID),
			EventType:       p.Result.EventType,
			Description:     p.Result.Description,
			WinExpInPercent: true,
			Balls:           intOrNil(p.Count.Balls),
			Strikes:         intOrNil(p.Count.Strikes),
			HomeScore:       homeScore,
			AwayScore:       awayScore,
			PostHomeScore:   intOrNil(p.Result.HomeScore),
			PostAwayScore:   intOrNil(p.Result.AwayScore),
			Outs:            0,
		}
		if p.About.IsTopInning {
			rec.Half = models.HalfTop
		}

		if sameHalf {
			rec.Outs = intOrNil(prev.Count.Outs)
			rec.OnFirst = runnerOrNil(prev.Matchup.PostOnFirst)
			rec.OnSecond = runnerOrNil(prev.Matchup.PostOnSecond)
			rec.OnThird = runnerOrNil(prev.Matchup.PostOnThird)
		}

		if p.HomeTeamWinProbabilityAdded != nil {
			rec.DeltaHomeWinExp = *p.HomeTeamWinProbabilityAdded
			if p.HomeTeamWinProbability != nil {
				rec.HomeWinExp = *p.HomeTeamWinProbability - *p.HomeTeamWinProbabilityAdded
			}
		}

		if pitch := lastPitch(p.PlayEvents); pitch != nil {
			rec.PitchNumber = intOrNil(pitch.PitchNumber)
			rec.PitchType = pitch.Details.Type.Code
			rec.PlayID = pitch.PlayID
		}
		for j := len(p.PlayEvents) - 1; j >= 0; j-- {
			if hd := p.PlayEvents[j].HitData; hd != nil {
				rec.LaunchSpeed = floatOrNil(hd.LaunchSpeed)
				rec.LaunchAngle = floatOrNil(hd.LaunchAngle)
				rec.HitDistance = floatOrNil(hd.TotalDistance)
				break
			}
		}

		records = append(records, rec)

		if p.Result.HomeScore != nil {
			homeScore = *p.Result.HomeScore
		}
		if p.Result.AwayScore != nil {
			awayScore = *p.Result.AwayScore
		}
		prev = p
	}

	return result(SourceWinProbability, records, nil)
}

func lastPitch(events []client.PlayEvent) *client.PlayEvent {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].IsPitch {
			return &events[i]
		}
	}
	return nil
}

func datePart(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

// The helpers below keep typed nils out of the raw record's any fields.

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func idOrNil(id int) any {
	if id == 0 {
		return nil
	}
	return id
}

func runnerOrNil(r *client.PersonRef) any {
	if r == nil || r.ID == 0 {
		return nil
	}
	return r.ID
}
