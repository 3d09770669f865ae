package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamelog/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// GameRepository handles attended game database operations
type GameRepository struct {
	db *Database
}

const gameColumns = `
	id, date, home_team, away_team, attended, source,
	mlb_game_pk, home_score, away_score, venue_id, venue_name,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*models.Game, error) {
	var game models.Game
	err := row.Scan(
		&game.ID, &game.Date, &game.HomeTeam, &game.AwayTeam, &game.Attended, &game.Source,
		&game.GamePk, &game.HomeScore, &game.AwayScore, &game.VenueID, &game.VenueName,
		&game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func collectGames(rows pgx.Rows) ([]*models.Game, error) {
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

// Upsert inserts an attended game unless one already exists for the same
// (date, home, away). game.ID is set either way. Returns true if inserted.
func (r *GameRepository) Upsert(ctx context.Context, game *models.Game) (bool, error) {
	start := time.Now()

	if game.Source == "" {
		game.Source = models.SourceManual
	}

	query := `
		INSERT INTO games (date, home_team, away_team, attended, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date, home_team, away_team) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		game.Date, game.HomeTeam, game.AwayTeam, game.Attended, game.Source,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := r.GetByMatchup(ctx, game.Date, game.HomeTeam, game.AwayTeam)
		observe("upsert", "games", start, err)
		if err != nil {
			return false, err
		}
		*game = *existing
		return false, nil
	}
	observe("upsert", "games", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to upsert game: %w", err)
	}

	log.Debug().
		Int("id", game.ID).
		Str("date", game.Date.Format("2006-01-02")).
		Str("matchup", game.Matchup()).
		Msg("Game created")

	return true, nil
}

// GetByMatchup retrieves a game by its natural key
func (r *GameRepository) GetByMatchup(ctx context.Context, date time.Time, home, away string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE date = $1 AND home_team = $2 AND away_team = $3
	`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, date, home, away))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game %s %s @ %s: %w", date.Format("2006-01-02"), away, home, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// GetByGamePk retrieves a game by its MLB game id
func (r *GameRepository) GetByGamePk(ctx context.Context, gamePk int) (*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE mlb_game_pk = $1
	`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, gamePk))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game mlb_game_pk=%d: %w", gamePk, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// ListNeedingEnrichment returns attended games missing an MLB id or a final
// score. With includeEnriched every attended game is returned.
func (r *GameRepository) ListNeedingEnrichment(ctx context.Context, includeEnriched bool) ([]*models.Game, error) {
	start := time.Now()
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE attended
		  AND ($1 OR mlb_game_pk IS NULL OR home_score IS NULL OR away_score IS NULL)
		ORDER BY date, id
	`

	rows, err := r.db.Pool.Query(ctx, query, includeEnriched)
	observe("select", "games", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list games needing enrichment: %w", err)
	}

	return collectGames(rows)
}

// ListAttended returns attended games that have an MLB id, oldest first.
// A non-zero gamePk restricts the result to that game.
func (r *GameRepository) ListAttended(ctx context.Context, gamePk int) ([]*models.Game, error) {
	start := time.Now()
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE attended
		  AND mlb_game_pk IS NOT NULL
		  AND ($1 = 0 OR mlb_game_pk = $1)
		ORDER BY date, id
	`

	rows, err := r.db.Pool.Query(ctx, query, gamePk)
	observe("select", "games", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list attended games: %w", err)
	}

	return collectGames(rows)
}

// ListAll returns every attended game, newest first, with or without an MLB id
func (r *GameRepository) ListAll(ctx context.Context) ([]*models.Game, error) {
	start := time.Now()
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE attended
		ORDER BY date DESC, id DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	observe("select", "games", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	return collectGames(rows)
}

// ListMissingWinExp returns attended games with an MLB id where no stored
// event carries a home win expectancy, including games with no events at all.
// A non-zero gamePk restricts the result to that game.
func (r *GameRepository) ListMissingWinExp(ctx context.Context, gamePk int) ([]*models.Game, error) {
	start := time.Now()
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE attended
		  AND mlb_game_pk IS NOT NULL
		  AND ($1 = 0 OR mlb_game_pk = $1)
		  AND NOT EXISTS (
			SELECT 1 FROM statcast_events se
			WHERE se.mlb_game_pk = games.mlb_game_pk
			  AND se.home_win_exp IS NOT NULL
		  )
		ORDER BY date, id
	`

	rows, err := r.db.Pool.Query(ctx, query, gamePk)
	observe("select", "games", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list games missing win expectancy: %w", err)
	}

	return collectGames(rows)
}

// SetEnrichment stores resolver output. Without force only NULL columns are
// filled, so enrichment is written once.
func (r *GameRepository) SetEnrichment(ctx context.Context, gameID int, meta *models.GameMeta, force bool) error {
	start := time.Now()

	query := `
		UPDATE games SET
			mlb_game_pk = COALESCE(mlb_game_pk, $2),
			home_score  = COALESCE(home_score, $3),
			away_score  = COALESCE(away_score, $4),
			venue_id    = COALESCE(venue_id, $5),
			venue_name  = COALESCE(venue_name, $6),
			updated_at  = NOW()
		WHERE id = $1
	`
	if force {
		query = `
			UPDATE games SET
				mlb_game_pk = $2,
				home_score  = $3,
				away_score  = $4,
				venue_id    = $5,
				venue_name  = $6,
				updated_at  = NOW()
			WHERE id = $1
		`
	}

	var venueID *int
	var venueName *string
	if meta.VenueID != 0 {
		venueID = &meta.VenueID
	}
	if meta.VenueName != "" {
		venueName = &meta.VenueName
	}

	result, err := r.db.Pool.Exec(ctx, query, gameID, meta.GamePk, meta.HomeScore, meta.AwayScore, venueID, venueName)
	observe("update", "games", start, err)
	if err != nil {
		return fmt.Errorf("failed to set enrichment for game %d: %w", gameID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("game id=%d: %w", gameID, ErrNotFound)
	}

	return nil
}

// Count returns the total number of games
func (r *GameRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM games`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}

	return count, nil
}
