package normalize

import (
	"context"
	"strconv"
	"strings"

	"gamelog/ingestion/internal/cache"

	"github.com/rs/zerolog/log"
)

// NameLookup resolves a player id to a display name
type NameLookup interface {
	FetchPlayerName(ctx context.Context, playerID int) (string, error)
}

// FormatName rewrites "Last, First" to "First Last". Other names are trimmed
// and returned unchanged, including purely numeric ids.
func FormatName(name string) string {
	name = strings.TrimSpace(name)
	if isNullText(name) {
		return ""
	}

	last, first, ok := strings.Cut(name, ",")
	if !ok {
		return name
	}
	last, first = strings.TrimSpace(last), strings.TrimSpace(first)
	if first == "" {
		return last
	}
	if last == "" {
		return first
	}
	return first + " " + last
}

// numericID reports whether s is a bare player id
func numericID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// nameResolver resolves ids through the lookup and cache. Failed lookups are
// remembered for the lifetime of the resolver so one game does not retry the
// same id on every pitch.
type nameResolver struct {
	lookup NameLookup
	cache  cache.Cache
	failed map[int]bool
}

func (r *nameResolver) resolve(ctx context.Context, id int) string {
	fallback := strconv.Itoa(id)
	if r.lookup == nil || r.failed[id] {
		return fallback
	}

	key := "player:" + fallback
	if name, ok := r.cache.Get(ctx, key); ok {
		return name
	}

	name, err := r.lookup.FetchPlayerName(ctx, id)
	if err != nil || strings.TrimSpace(name) == "" {
		log.Debug().Err(err).Int("player_id", id).Msg("Player lookup failed, using id")
		r.failed[id] = true
		return fallback
	}

	name = strings.TrimSpace(name)
	r.cache.Set(ctx, key, name)
	return name
}

// display returns the "First Last" display name for a raw name/id pair.
// A bare numeric name and a missing name with a known id both go to lookup.
func (r *nameResolver) display(ctx context.Context, raw string, rawID any) string {
	name := FormatName(raw)
	if id, ok := numericID(name); ok {
		return r.resolve(ctx, id)
	}
	if name != "" {
		return name
	}
	if id, ok := Int(rawID); ok && id > 0 {
		return r.resolve(ctx, id)
	}
	return ""
}
