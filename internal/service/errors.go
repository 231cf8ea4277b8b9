package service

import (
	"errors"

	"guessthesong/internal/apperr"
)

var (
	ErrNotHost        = apperr.Forbidden("only the host can do that")
	ErrNotMember      = apperr.Forbidden("not a member of this room")
	ErrSelfKick       = apperr.Forbidden("the host cannot kick themselves")
	ErrNotSongOwner   = apperr.Forbidden("only the contributor or the host can remove this song")
	ErrPlayerNotFound = apperr.NotFound("player not found")
	ErrSongNotFound   = apperr.NotFound("song not found")
	ErrRoomInactive   = apperr.Conflict("room is no longer active")
	ErrAlreadyInRoom  = apperr.Conflict("already in this room")
	ErrGameStarted    = apperr.Conflict("game already started")
	ErrNoSongs        = apperr.Conflict("add at least one song before starting")
	ErrDuplicateSong  = apperr.Conflict("song already added to this room")
	ErrSongLimit      = apperr.Conflict("song limit reached")
	ErrNoActiveRound  = apperr.Conflict("no round is being played")
	ErrCodeExhausted  = apperr.Conflict("could not allocate a room code")
	ErrEmptyMessage   = apperr.InvalidInput("message must not be empty")
	ErrMessageTooLong = apperr.InvalidInput("message is too long")
	ErrEmptyGuess     = apperr.InvalidInput("guess must not be empty")
	ErrEmptyQuery     = apperr.InvalidInput("search query must not be empty")
	ErrInvalidToken   = errors.New("invalid or expired token")
)

// errNoop aborts a store update that turned out to have nothing to do.
var errNoop = errors.New("no change")
