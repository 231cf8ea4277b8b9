package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"guessthesong/internal/model"
	"guessthesong/internal/service"
)

// SongHandler handles song contribution and catalog search
type SongHandler struct {
	songSvc *service.SongService
	catalog *service.CatalogClient
}

func NewSongHandler(songSvc *service.SongService, catalog *service.CatalogClient) *SongHandler {
	return &SongHandler{
		songSvc: songSvc,
		catalog: catalog,
	}
}

// Add godoc
// @Summary Contribute a song to the room
// @Tags songs
// @Accept json
// @Produce json
// @Param code path string true "room code"
// @Param body body model.AddSongRequest true "track"
// @Success 201 {object} model.Song
// @Failure 409 {object} ErrorResponse
// @Router /v1/rooms/{code}/songs [post]
func (h *SongHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.AddSongRequest
	if err := decode(r, &req, false); err != nil {
		writeAppError(w, err)
		return
	}

	song, err := h.songSvc.AddSong(r.Context(), mux.Vars(r)["code"], user, req.Track())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

// Remove handles DELETE /v1/rooms/{code}/songs/{songId}
func (h *SongHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.songSvc.RemoveSong(r.Context(), vars["code"], user, vars["songId"]); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search godoc
// @Summary Search the track catalog
// @Tags songs
// @Produce json
// @Param q query string true "query"
// @Success 200 {array} model.CatalogTrack
// @Failure 503 {object} ErrorResponse
// @Router /v1/catalog/search [get]
func (h *SongHandler) Search(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}
