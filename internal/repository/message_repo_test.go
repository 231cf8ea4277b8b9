package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guessthesong/internal/model"
)

func TestMemoryMessageRepo_RecentKeepsNewestOldestFirst(t *testing.T) {
	repo := NewMemoryMessageRepo()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, content := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Append(ctx, &model.Message{
			RoomID:    "r1",
			Content:   content,
			Type:      model.MessageChat,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Append(ctx, &model.Message{RoomID: "r2", Content: "other"}))

	got, err := repo.Recent(ctx, "r1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Content)
	assert.Equal(t, "three", got[1].Content)
	assert.NotEmpty(t, got[0].ID)
}

func TestMemoryRoomRepo(t *testing.T) {
	repo := NewMemoryRoomRepo()
	ctx := context.Background()

	room, err := repo.GetByCode(ctx, "ABCD")
	require.NoError(t, err)
	assert.Nil(t, room)

	require.NoError(t, repo.Create(ctx, &model.Room{ID: "r1", Code: "ABCD", IsActive: true}))
	require.NoError(t, repo.Update(ctx, &model.Room{ID: "r1", Code: "ABCD", IsActive: false}))

	room, err = repo.GetByCode(ctx, "ABCD")
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.False(t, room.IsActive)
}
