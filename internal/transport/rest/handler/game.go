package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"guessthesong/internal/model"
	"guessthesong/internal/service"
)

// GameHandler handles the in-game actions
type GameHandler struct {
	scheduler *service.Scheduler
	guessSvc  *service.GuessService
	states    *service.BroadcastService
}

func NewGameHandler(scheduler *service.Scheduler, guessSvc *service.GuessService, states *service.BroadcastService) *GameHandler {
	return &GameHandler{
		scheduler: scheduler,
		guessSvc:  guessSvc,
		states:    states,
	}
}

// Start godoc
// @Summary Start the game (host only)
// @Tags game
// @Produce json
// @Param code path string true "room code"
// @Success 200 {object} model.GameState
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /v1/rooms/{code}/start [post]
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	code := mux.Vars(r)["code"]

	if _, err := h.scheduler.StartGame(r.Context(), code, user.ID); err != nil {
		writeAppError(w, err)
		return
	}
	gs, err := h.states.GameState(r.Context(), code)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// Guess godoc
// @Summary Submit a guess for the live round
// @Tags game
// @Accept json
// @Produce json
// @Param code path string true "room code"
// @Param body body model.GuessRequest true "guess"
// @Success 200 {object} model.GuessResult
// @Router /v1/rooms/{code}/guesses [post]
func (h *GameHandler) Guess(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.GuessRequest
	if err := decode(r, &req, false); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.guessSvc.SubmitGuess(r.Context(), mux.Vars(r)["code"], user, req.Guess)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SendMessage handles POST /v1/rooms/{code}/messages
func (h *GameHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.MessageRequest
	if err := decode(r, &req, false); err != nil {
		writeAppError(w, err)
		return
	}

	msg, err := h.guessSvc.SendMessage(r.Context(), mux.Vars(r)["code"], user, req.Content)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
