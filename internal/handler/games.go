package handler

import (
	"log"
	"net/http"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/service"
)

// GameHandler serves the game catalog.
type GameHandler struct {
	svc *service.GameService
}

// NewGameHandler constructs a GameHandler.
func NewGameHandler(svc *service.GameService) *GameHandler {
	return &GameHandler{svc: svc}
}

// Search handles GET /games?q=
func (h *GameHandler) Search(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		log.Printf("search games: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to search games")
		return
	}
	if games == nil {
		games = []model.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}
