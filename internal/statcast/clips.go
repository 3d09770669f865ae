package statcast

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"gamelog/ingestion/internal/cache"

	"github.com/rs/zerolog/log"
)

// FeedFetcher returns the Savant gf document for a game
type FeedFetcher interface {
	FetchGameFeed(ctx context.Context, gamePk int) (map[string]any, error)
}

// ClipMapper resolves Savant sv_id values to clip play ids through the gf feed.
// Non-empty mappings are memoised per game in the injected cache. A failed or
// empty fetch is not cached: the caller holds that result for the rest of the
// game's normalization, and the next run asks the feed again.
type ClipMapper struct {
	feed  FeedFetcher
	cache cache.Cache
}

// NewClipMapper creates a clip mapper
func NewClipMapper(feed FeedFetcher, c cache.Cache) *ClipMapper {
	if c == nil {
		c = cache.NewMemoryCache(cache.WithName("clips"))
	}
	return &ClipMapper{feed: feed, cache: c}
}

// Lookup returns the sv_id → play_id mapping for a game. It never fails:
// an unavailable feed yields an empty mapping.
func (m *ClipMapper) Lookup(ctx context.Context, gamePk int) map[string]string {
	key := "clips:" + strconv.Itoa(gamePk)

	if cached, ok := m.cache.Get(ctx, key); ok {
		var mapping map[string]string
		if err := json.Unmarshal([]byte(cached), &mapping); err == nil {
			return mapping
		}
	}

	doc, err := m.feed.FetchGameFeed(ctx, gamePk)
	if err != nil {
		if ctx.Err() != nil {
			return map[string]string{}
		}
		log.Warn().
			Err(err).
			Int("game_pk", gamePk).
			Msg("Clip feed unavailable, continuing without clip mapping")
		return map[string]string{}
	}

	mapping := ClipMapping(doc)
	if len(mapping) == 0 {
		return mapping
	}

	if encoded, err := json.Marshal(mapping); err == nil {
		m.cache.Set(ctx, key, string(encoded))
	}

	return mapping
}

// ClipMapping extracts {sv_id: play_id} from every list in a gf document.
// Entries without an sv_id (older seasons) are ignored. Lists are read in
// key order so duplicate sv_ids resolve the same way every run.
func ClipMapping(doc map[string]any) map[string]string {
	mapping := make(map[string]string)

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		list, ok := doc[k].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			play, ok := item.(map[string]any)
			if !ok {
				continue
			}
			pid := firstText(play, "play_id", "playId")
			sv := firstText(play, "sv_id", "svId")
			if pid != "" && sv != "" {
				mapping[sv] = pid
			}
		}
	}

	return mapping
}

func firstText(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && !blank(v) {
			return stringValue(v)
		}
	}
	return ""
}
