package postgres

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/search"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GameRepository handles persistence for the game catalog.
type GameRepository struct {
	db *pgxpool.Pool
}

// NewGameRepository constructs a GameRepository.
func NewGameRepository(db *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: db}
}

// Create inserts a game along with its folded search document.
func (r *GameRepository) Create(ctx context.Context, g model.Game) error {
	platforms := g.Platforms
	if platforms == nil {
		platforms = []string{}
	}
	doc := search.Document(append([]string{g.Title, g.Genre}, g.Platforms...)...)
	// pgx encodes []string as JSON for a jsonb parameter.
	_, err := r.db.Exec(ctx,
		`INSERT INTO games (id, title, genre, platforms, description, image, search_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.Title, g.Genre, platforms, g.Description, g.Image, doc,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// Search returns the games whose search document contains folded. An empty
// query returns the whole catalog.
func (r *GameRepository) Search(ctx context.Context, folded string) ([]model.Game, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id::text, title, genre, platforms, description, image
		   FROM games
		  WHERE search_text LIKE $1 ESCAPE '\'
		  ORDER BY title ASC`,
		search.LikePattern(folded),
	)
	if err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}
	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Game, error) {
		var g model.Game
		err := row.Scan(&g.ID, &g.Title, &g.Genre, &g.Platforms, &g.Description, &g.Image)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan game: %w", err)
	}
	return games, nil
}

var _ repository.GameRepository = (*GameRepository)(nil)
