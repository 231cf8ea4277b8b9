package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"guessthesong/internal/model"
	"guessthesong/internal/service"
)

// RoomHandler handles room lifecycle endpoints
type RoomHandler struct {
	roomSvc *service.RoomService
	states  *service.BroadcastService
}

func NewRoomHandler(roomSvc *service.RoomService, states *service.BroadcastService) *RoomHandler {
	return &RoomHandler{
		roomSvc: roomSvc,
		states:  states,
	}
}

func (h *RoomHandler) respondState(w http.ResponseWriter, r *http.Request, status int, code string) {
	gs, err := h.states.GameState(r.Context(), code)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, status, gs)
}

// Create godoc
// @Summary Create a room hosted by the caller
// @Tags rooms
// @Accept json
// @Produce json
// @Param body body model.CreateRoomRequest false "settings"
// @Success 201 {object} model.GameState
// @Router /v1/rooms [post]
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.CreateRoomRequest
	if err := decode(r, &req, true); err != nil {
		writeAppError(w, err)
		return
	}

	state, err := h.roomSvc.CreateRoom(r.Context(), user, req.Settings)
	if err != nil {
		writeAppError(w, err)
		return
	}
	h.respondState(w, r, http.StatusCreated, state.Room.Code)
}

// Get godoc
// @Summary Full current game state, used to resync after reconnecting
// @Tags rooms
// @Produce json
// @Param code path string true "room code"
// @Success 200 {object} model.GameState
// @Failure 404 {object} ErrorResponse
// @Router /v1/rooms/{code} [get]
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, http.StatusOK, mux.Vars(r)["code"])
}

// UpdateSettings handles PUT /v1/rooms/{code}/settings
func (h *RoomHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	code := mux.Vars(r)["code"]

	var settings model.RoomSettings
	if err := decode(r, &settings, false); err != nil {
		writeAppError(w, err)
		return
	}
	if _, err := h.roomSvc.UpdateSettings(r.Context(), code, user, settings); err != nil {
		writeAppError(w, err)
		return
	}
	h.respondState(w, r, http.StatusOK, code)
}

// Join godoc
// @Summary Join a room as a player
// @Tags rooms
// @Produce json
// @Param code path string true "room code"
// @Success 200 {object} model.GameState
// @Failure 409 {object} ErrorResponse
// @Router /v1/rooms/{code}/join [post]
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	code := mux.Vars(r)["code"]

	if _, err := h.roomSvc.Join(r.Context(), code, user); err != nil {
		writeAppError(w, err)
		return
	}
	h.respondState(w, r, http.StatusOK, code)
}

// Leave handles POST /v1/rooms/{code}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.roomSvc.Leave(r.Context(), mux.Vars(r)["code"], user); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Kick handles POST /v1/rooms/{code}/players/{userId}/kick
func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.roomSvc.Kick(r.Context(), vars["code"], user, vars["userId"]); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// End handles POST /v1/rooms/{code}/end
func (h *RoomHandler) End(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.roomSvc.EndRoom(r.Context(), mux.Vars(r)["code"], user); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leaderboard handles GET /v1/rooms/{code}/leaderboard
func (h *RoomHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.roomSvc.Leaderboard(r.Context(), code, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
