package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guessthesong/internal/model"
)

func TestAuthService_GuestRoundTrip(t *testing.T) {
	svc := NewAuthService("secret", "guessthesong", time.Hour)

	resp, err := svc.IssueGuest(&model.GuestRequest{DisplayName: "Alice", AvatarURL: "https://example.com/a.png"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	id, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, id.ID)
	assert.Equal(t, "Alice", id.DisplayName)
	assert.Equal(t, "https://example.com/a.png", id.AvatarURL)
}

func TestAuthService_Rejects(t *testing.T) {
	svc := NewAuthService("secret", "guessthesong", time.Hour)
	other := NewAuthService("other", "guessthesong", time.Hour)

	resp, err := other.IssueGuest(&model.GuestRequest{DisplayName: "Mallory"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err := svc.Sign(model.Identity{ID: "late"}, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
