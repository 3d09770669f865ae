package normalize

import (
	"sort"
	"strings"

	"gamelog/ingestion/internal/models"
)

// Half maps an upstream half-inning label to its stored form. Unknown labels
// return "".
func Half(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "t":
		return models.HalfTop
	case "bot", "bottom", "b":
		return models.HalfBottom
	}
	return ""
}

type sortKey struct {
	inning int
	half   int
	atBat  int
	pitch  int
	svID   string
	order  int
}

func keyOf(r *models.RawPlayRecord) sortKey {
	k := sortKey{svID: r.SvID, order: r.Order}
	k.inning, _ = Int(r.Inning)
	k.atBat, _ = Int(r.AtBatNumber)
	k.pitch, _ = Int(r.PitchNumber)
	if Half(r.Half) == models.HalfBottom {
		k.half = 1
	}
	return k
}

func (a sortKey) less(b sortKey) bool {
	switch {
	case a.inning != b.inning:
		return a.inning < b.inning
	case a.half != b.half:
		return a.half < b.half
	case a.atBat != b.atBat:
		return a.atBat < b.atBat
	case a.pitch != b.pitch:
		return a.pitch < b.pitch
	case a.svID != b.svID:
		return a.svID < b.svID
	}
	return a.order < b.order
}

// SortRecords returns records in chronological order: inning, top before
// bottom, at-bat, pitch number, sv_id, then arrival order. Exports are not
// reliably sorted inside a half-inning. Missing keys sort as zero.
// The input slice is not modified.
func SortRecords(records []models.RawPlayRecord) []models.RawPlayRecord {
	type keyed struct {
		key sortKey
		rec models.RawPlayRecord
	}

	items := make([]keyed, len(records))
	for i := range records {
		items[i] = keyed{key: keyOf(&records[i]), rec: records[i]}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].key.less(items[j].key)
	})

	out := make([]models.RawPlayRecord, len(items))
	for i := range items {
		out[i] = items[i].rec
	}
	return out
}
