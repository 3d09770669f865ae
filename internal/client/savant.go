package client

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// SavantConfig holds Baseball Savant settings
type SavantConfig struct {
	BaseURL      string
	ExportPath   string
	Timeout      time.Duration
	FeedTimeout  time.Duration
	FeedAttempts int
	FeedBackoff  time.Duration
}

// Savant reads the pitch-level Statcast export and the per-game gf feed.
// The two endpoints have different timeouts, so each gets its own Client.
type Savant struct {
	export       *Client
	feed         *Client
	exportPath   string
	feedAttempts int
}

// NewSavant creates a Baseball Savant client
func NewSavant(cfg SavantConfig, opts ...Option) *Savant {
	feedOpts := append([]Option{WithRetryDelay(cfg.FeedBackoff)}, opts...)

	attempts := cfg.FeedAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Savant{
		export:       NewClient("savant", cfg.BaseURL, cfg.Timeout, opts...),
		feed:         NewClient("savant_gf", cfg.BaseURL, cfg.FeedTimeout, feedOpts...),
		exportPath:   cfg.ExportPath,
		feedAttempts: attempts,
	}
}

// FetchGameExport returns the pitch-level rows for a game, keyed by Statcast
// column name. Savant serves the export as CSV; a JSON array body is also
// accepted. An empty or header-only export returns no rows.
func (s *Savant) FetchGameExport(ctx context.Context, gamePk int) ([]map[string]any, error) {
	params := map[string]string{
		"all":     "true",
		"type":    "details",
		"game_pk": strconv.Itoa(gamePk),
	}

	body, err := s.export.get(ctx, "savant_export", s.exportPath, params, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statcast export for %d: %w", gamePk, err)
	}

	body = bytes.TrimSpace(bytes.TrimPrefix(body, utf8BOM))
	if len(body) == 0 {
		return nil, nil
	}

	var rows []map[string]any
	if body[0] == '[' {
		err = decodeNumbers(body, &rows)
	} else {
		rows, err = decodeCSV(body)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse statcast export for %d: %w", gamePk, err)
	}

	return rows, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeCSV maps each data row onto the header row. Cells stay strings; the
// normalizer coerces them. Short rows leave the missing columns out.
func decodeCSV(body []byte) ([]map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]any
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]any, len(header))
		for i, cell := range record {
			if i < len(header) && header[i] != "" {
				row[header[i]] = cell
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// FetchGameFeed returns the gf document for a game. Transient failures are
// retried with exponential backoff.
func (s *Savant) FetchGameFeed(ctx context.Context, gamePk int) (map[string]any, error) {
	params := map[string]string{"game_pk": strconv.Itoa(gamePk)}

	body, err := s.feed.get(ctx, "savant_gf", "gf", params, s.feedAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch game feed for %d: %w", gamePk, err)
	}

	var doc map[string]any
	if err := decodeNumbers(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game feed for %d: %w", gamePk, err)
	}

	return doc, nil
}

func decodeNumbers(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}
