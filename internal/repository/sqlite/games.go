package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/search"
)

// GameRepository handles persistence for the game catalog.
type GameRepository struct {
	db *sql.DB
}

// NewGameRepository constructs a GameRepository.
func NewGameRepository(db *sql.DB) *GameRepository {
	return &GameRepository{db: db}
}

// Create inserts a game along with its folded search document.
func (r *GameRepository) Create(ctx context.Context, g model.Game) error {
	platforms, err := json.Marshal(nonNil(g.Platforms))
	if err != nil {
		return fmt.Errorf("encode platforms: %w", err)
	}
	doc := search.Document(append([]string{g.Title, g.Genre}, g.Platforms...)...)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO games (id, title, genre, platforms, description, image, search_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Title, g.Genre, string(platforms), g.Description, g.Image, doc,
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
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, genre, platforms, description, image
		   FROM games
		  WHERE search_text LIKE ? ESCAPE '\'
		  ORDER BY title ASC`,
		search.LikePattern(folded),
	)
	if err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		var (
			g         model.Game
			platforms string
		)
		if err := rows.Scan(&g.ID, &g.Title, &g.Genre, &platforms, &g.Description, &g.Image); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if err := json.Unmarshal([]byte(platforms), &g.Platforms); err != nil {
			return nil, fmt.Errorf("decode platforms for %s: %w", g.ID, err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ repository.GameRepository = (*GameRepository)(nil)
