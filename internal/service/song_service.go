package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guessthesong/internal/cache"
	"guessthesong/internal/model"
)

// SongService manages the songs players contribute in the lobby.
type SongService struct {
	store       cache.StateStore
	broadcaster StateBroadcaster
	log         *zap.Logger
}

func NewSongService(store cache.StateStore, broadcaster StateBroadcaster, log *zap.Logger) *SongService {
	return &SongService{
		store:       store,
		broadcaster: broadcaster,
		log:         log.Named("songs"),
	}
}

// AddSong stores a catalog track as the user's contribution. A track whose
// source id is already in the room is rejected and leaves the songs untouched.
func (s *SongService) AddSong(ctx context.Context, code string, user model.Identity, track model.CatalogTrack) (*model.Song, error) {
	song := model.Song{
		ID:         uuid.NewString(),
		Title:      track.Title,
		Artist:     track.Artist,
		AlbumArt:   track.AlbumArt,
		SourceID:   track.SourceID,
		SourceType: track.SourceType,
		PreviewURL: track.PreviewURL,
		UserID:     user.ID,
	}

	_, err := s.store.Update(ctx, code, func(st *model.RoomState) error {
		if !st.IsMember(user.ID) {
			return ErrNotMember
		}
		if !st.InLobby() {
			return ErrGameStarted
		}
		if st.HasSource(track.SourceID) {
			return ErrDuplicateSong
		}
		if st.SongCountBy(user.ID) >= st.Settings.SongsPerPlayer {
			return ErrSongLimit
		}
		st.Songs = append(st.Songs, song)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("song added", zap.String("room", code), zap.String("user", user.ID), zap.String("source", song.SourceID))
	s.broadcaster.Broadcast(ctx, code)
	return &song, nil
}

// RemoveSong is allowed for the contributor and the host, before the game starts.
func (s *SongService) RemoveSong(ctx context.Context, code string, user model.Identity, songID string) error {
	_, err := s.store.Update(ctx, code, func(st *model.RoomState) error {
		if !st.IsMember(user.ID) {
			return ErrNotMember
		}
		if !st.InLobby() {
			return ErrGameStarted
		}
		for i, song := range st.Songs {
			if song.ID != songID {
				continue
			}
			if song.UserID != user.ID && st.HostID() != user.ID {
				return ErrNotSongOwner
			}
			st.Songs = append(st.Songs[:i], st.Songs[i+1:]...)
			return nil
		}
		return ErrSongNotFound
	})
	if err != nil {
		return err
	}
	s.broadcaster.Broadcast(ctx, code)
	return nil
}
