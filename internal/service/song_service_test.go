package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guessthesong/internal/apperr"
	"guessthesong/internal/model"
)

func TestAddSong_DuplicateSourceRejected(t *testing.T) {
	f := newFixture(t)
	code := f.lobby()

	song, err := f.songs.AddSong(f.ctx, code, alice, model.CatalogTrack{Title: "Song", SourceID: "42"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, song.UserID)
	assert.NotEmpty(t, song.ID)

	before := f.state(code).Songs
	_, err = f.songs.AddSong(f.ctx, code, host, model.CatalogTrack{Title: "Same", SourceID: "42"})
	assert.ErrorIs(t, err, ErrDuplicateSong)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, before, f.state(code).Songs)
}

func TestAddSong_Limits(t *testing.T) {
	f := newFixture(t)
	code := f.lobby()

	for _, id := range []string{"a", "b"} {
		_, err := f.songs.AddSong(f.ctx, code, alice, model.CatalogTrack{Title: id, SourceID: id})
		require.NoError(t, err)
	}
	_, err := f.songs.AddSong(f.ctx, code, alice, model.CatalogTrack{Title: "c", SourceID: "c"})
	assert.ErrorIs(t, err, ErrSongLimit)

	_, err = f.songs.AddSong(f.ctx, code, bob, model.CatalogTrack{Title: "d", SourceID: "d"})
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestRemoveSong(t *testing.T) {
	f := newFixture(t)
	code := f.lobby()
	_, err := f.rooms.Join(f.ctx, code, bob)
	require.NoError(t, err)

	song, err := f.songs.AddSong(f.ctx, code, alice, model.CatalogTrack{Title: "x", SourceID: "x"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.songs.RemoveSong(f.ctx, code, bob, song.ID), ErrNotSongOwner)
	assert.ErrorIs(t, f.songs.RemoveSong(f.ctx, code, alice, "missing"), ErrSongNotFound)
	require.NoError(t, f.songs.RemoveSong(f.ctx, code, host, song.ID))
	assert.Empty(t, f.state(code).Songs)
}

func TestAddSong_LockedOnceStarted(t *testing.T) {
	f := newFixture(t)
	code := f.lobby()
	f.withSongs(code)
	_, err := f.sched.StartGame(f.ctx, code, host.ID)
	require.NoError(t, err)

	_, err = f.songs.AddSong(f.ctx, code, alice, model.CatalogTrack{Title: "late", SourceID: "late"})
	assert.ErrorIs(t, err, ErrGameStarted)
}
