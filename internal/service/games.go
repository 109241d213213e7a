package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/search"
	"github.com/google/uuid"
)

// GameService serves the game catalog.
type GameService struct {
	games repository.GameRepository
}

// NewGameService constructs a GameService.
func NewGameService(games repository.GameRepository) *GameService {
	return &GameService{games: games}
}

// Search matches query against titles, genres and platforms, ignoring case
// and accents.
func (s *GameService) Search(ctx context.Context, query string) ([]model.Game, error) {
	games, err := s.games.Search(ctx, search.Fold(query))
	if err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}
	return games, nil
}

// Import inserts games, assigning ids where missing. Games whose id already
// exists are skipped. It returns the number inserted.
func (s *GameService) Import(ctx context.Context, games []model.Game) (int, error) {
	inserted := 0
	for _, g := range games {
		if g.Title == "" {
			return inserted, invalid("game title is required")
		}
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		if err := s.games.Create(ctx, g); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				continue
			}
			return inserted, fmt.Errorf("import %q: %w", g.Title, err)
		}
		inserted++
	}
	return inserted, nil
}
