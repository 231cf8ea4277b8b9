package handler

import (
	"net/http"

	"guessthesong/internal/model"
	"guessthesong/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Guest godoc
// @Summary Issue a guest identity
// @Tags auth
// @Accept json
// @Produce json
// @Param body body model.GuestRequest true "display name"
// @Success 200 {object} model.GuestResponse
// @Failure 400 {object} ErrorResponse
// @Router /v1/auth/guest [post]
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	var req model.GuestRequest
	if err := decode(r, &req, false); err != nil {
		writeAppError(w, err)
		return
	}

	resp, err := h.authSvc.IssueGuest(&req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
