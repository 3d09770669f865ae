// Package normalize turns raw upstream play records into canonical events.
//
// WPA is home-relative: positive values helped the home team. The sign is
// never flipped by batter, so sums over a game and over a player use the same
// convention.
package normalize

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"gamelog/ingestion/internal/cache"
	"gamelog/ingestion/internal/metrics"
	"gamelog/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// Skip reasons
const (
	SkipMissingBatter = "missing_batter"
	SkipBookkeeping   = "bookkeeping"
)

// bookkeepingEvents are event types that do not represent a play
var bookkeepingEvents = map[string]bool{
	"game_advisory":          true,
	"batter_timeout":         true,
	"mound_visit":            true,
	"pitching_substitution":  true,
	"offensive_substitution": true,
	"defensive_substitution": true,
	"defensive_switch":       true,
	"umpire_substitution":    true,
	"ejection":               true,
	"injury":                 true,
	"runner_placed":          true,
}

// ClipLookup returns the sv_id → clip id mapping for a game
type ClipLookup interface {
	Lookup(ctx context.Context, gamePk int) map[string]string
}

// Result is the output of one Normalize call
type Result struct {
	Events  []models.Event
	Skipped map[string]int
	Suspect int
}

// SkippedTotal returns the number of dropped records
func (r Result) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Normalizer converts raw records for one game at a time
type Normalizer struct {
	names       NameLookup
	nameCache   cache.Cache
	clips       ClipLookup
	clipBaseURL string
}

// New creates a Normalizer. Any dependency may be nil: names then fall back
// to ids and clips resolve only from direct play ids.
func New(names NameLookup, nameCache cache.Cache, clips ClipLookup, clipBaseURL string) *Normalizer {
	if nameCache == nil {
		nameCache = cache.NewMemoryCache(cache.WithName("players"))
	}
	return &Normalizer{
		names:       names,
		nameCache:   nameCache,
		clips:       clips,
		clipBaseURL: strings.TrimRight(clipBaseURL, "/"),
	}
}

// Normalize sorts, filters and converts the records of one game. A record
// that cannot be normalized is skipped and counted; it never fails the batch.
func (n *Normalizer) Normalize(ctx context.Context, gamePk int, records []models.RawPlayRecord) Result {
	res := Result{Skipped: make(map[string]int)}
	if len(records) == 0 {
		return res
	}

	names := &nameResolver{lookup: n.names, cache: n.nameCache, failed: make(map[int]bool)}

	var clipMap map[string]string
	clipFor := func(r *models.RawPlayRecord) string {
		if id := strings.TrimSpace(r.PlayID); id != "" && !isNullText(id) {
			return id
		}
		sv := strings.TrimSpace(r.SvID)
		if sv == "" || isNullText(sv) || n.clips == nil {
			return ""
		}
		if clipMap == nil {
			clipMap = n.clips.Lookup(ctx, gamePk)
			if clipMap == nil {
				clipMap = map[string]string{}
			}
		}
		return clipMap[sv]
	}

	sorted := SortRecords(records)
	res.Events = make([]models.Event, 0, len(sorted))

	for i := range sorted {
		r := &sorted[i]

		eventType := strings.ToLower(strings.TrimSpace(r.EventType))
		if isNullText(eventType) {
			eventType = ""
		}
		if bookkeepingEvents[eventType] {
			res.Skipped[SkipBookkeeping]++
			continue
		}

		batter := names.display(ctx, r.BatterName, r.BatterID)
		if batter == "" {
			res.Skipped[SkipMissingBatter]++
			log.Debug().
				Int("game_pk", gamePk).
				Str("source", r.Source).
				Int("order", r.Order).
				Msg("Skipping record without batter")
			continue
		}

		ev := models.Event{
			GamePk:      gamePk,
			Seq:         len(res.Events) + 1,
			Inning:      NullInt32(r.Inning),
			InningHalf:  nullString(Half(r.Half)),
			AtBatNumber: NullInt32(r.AtBatNumber),
			PitchNumber: NullInt32(r.PitchNumber),
			SvID:        nullString(Text(r.SvID)),
			EventDate:   Text(r.GameDate),
			BatterName:  batter,
			PitcherName: names.display(ctx, r.PitcherName, r.PitcherID),
			PitchType:   Text(r.PitchType),
			LaunchSpeed: NullInt32(r.LaunchSpeed),
			LaunchAngle: NullInt32(r.LaunchAngle),
			EstimatedBA: thousandths(r.EstimatedBA),
			HitDistance: NullInt32(r.HitDistance),
			Description: Text(r.Description),
			EventType:   eventType,

			Outs:          NullInt32(r.Outs),
			Balls:         NullInt32(r.Balls),
			Strikes:       NullInt32(r.Strikes),
			HomeScore:     NullInt32(r.HomeScore),
			AwayScore:     NullInt32(r.AwayScore),
			PostHomeScore: NullInt32(r.PostHomeScore),
			PostAwayScore: NullInt32(r.PostAwayScore),
			OnFirst:       nullString(Text(r.OnFirst)),
			OnSecond:      nullString(Text(r.OnSecond)),
			OnThird:       nullString(Text(r.OnThird)),
		}

		scale := 1.0
		if r.WinExpInPercent {
			scale = 100
		}

		if d, ok := Float(r.DeltaHomeWinExp); ok {
			wpa := Round(d/scale, 6)
			ev.WPA = sql.NullFloat64{Float64: wpa, Valid: true}
			if math.Abs(wpa) > 1 {
				ev.WPASuspect = true
				res.Suspect++
			}
		}

		if h, ok := Float(r.HomeWinExp); ok {
			home := h / scale
			ev.HomeWinExp = sql.NullFloat64{Float64: Round(home, 4), Valid: true}
			ev.AwayWinExp = sql.NullFloat64{Float64: Round(1-home, 4), Valid: true}
		}

		if clip := clipFor(r); clip != "" {
			ev.ClipID = sql.NullString{String: clip, Valid: true}
			if n.clipBaseURL != "" {
				ev.VideoURL = sql.NullString{String: videoURL(n.clipBaseURL, gamePk, clip), Valid: true}
			}
		}

		res.Events = append(res.Events, ev)
	}

	for reason, count := range res.Skipped {
		metrics.RecordSkippedRecords(reason, count)
	}
	if res.Suspect > 0 {
		metrics.RecordSuspectWPA(res.Suspect)
		log.Warn().
			Int("game_pk", gamePk).
			Int("count", res.Suspect).
			Msg("WPA outside [-1, 1], flagged as suspect")
	}

	return res
}

// thousandths stores an estimated batting average such as .312 as 312
func thousandths(v any) sql.NullInt32 {
	f, ok := Float(v)
	if !ok {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(math.Round(f * 1000)), Valid: true}
}

// videoURL builds the direct clip URL for a play id
func videoURL(baseURL string, gamePk int, clipID string) string {
	return fmt.Sprintf("%s/%d/home/%s.mp4", baseURL, gamePk, clipID)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
