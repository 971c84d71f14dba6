package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magcho/hedgedoc/internal/domain"
	"github.com/magcho/hedgedoc/internal/repository"
)

func TestMongoMediaRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := repository.NewMongoMediaRepository(db)

	noteID := "note-1"
	uploads := []*domain.MediaUpload{
		{
			ID:          "aaaaaaaa.png",
			UserID:      "user-1",
			NoteID:      &noteID,
			ContentType: "image/png",
			Size:        4,
			BackendData: `{"path":"uploads/aaaaaaaa.png"}`,
			CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		},
		{
			ID:          "bbbbbbbb.png",
			UserID:      "user-1",
			ContentType: "image/png",
			Size:        4,
			BackendData: `{"path":"uploads/bbbbbbbb.png"}`,
			CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		},
		{
			ID:          "cccccccc.png",
			UserID:      "user-2",
			ContentType: "image/png",
			Size:        4,
			BackendData: `{"path":"uploads/cccccccc.png"}`,
			CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	for _, u := range uploads {
		require.NoError(t, repo.Create(ctx, u))
	}

	t.Run("get by id round trips the record", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "aaaaaaaa.png")
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.UserID)
		require.NotNil(t, got.NoteID)
		assert.Equal(t, noteID, *got.NoteID)
		assert.Equal(t, `{"path":"uploads/aaaaaaaa.png"}`, got.BackendData)
	})

	t.Run("get by unknown id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing.png")
		assert.ErrorIs(t, err, domain.ErrNotInStore)
	})

	t.Run("list by user", func(t *testing.T) {
		got, err := repo.ListByUserID(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = repo.ListByUserID(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("list by note", func(t *testing.T) {
		got, err := repo.ListByNoteID(ctx, noteID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "aaaaaaaa.png", got[0].ID)
	})

	t.Run("detach note clears the reference", func(t *testing.T) {
		require.NoError(t, repo.DetachNote(ctx, "aaaaaaaa.png"))

		got, err := repo.GetByID(ctx, "aaaaaaaa.png")
		require.NoError(t, err)
		assert.Nil(t, got.NoteID)

		byNote, err := repo.ListByNoteID(ctx, noteID)
		require.NoError(t, err)
		assert.Empty(t, byNote)

		// Detaching an already detached record is a no-op.
		assert.NoError(t, repo.DetachNote(ctx, "aaaaaaaa.png"))
	})

	t.Run("delete removes exactly one record", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "bbbbbbbb.png"))

		_, err := repo.GetByID(ctx, "bbbbbbbb.png")
		assert.ErrorIs(t, err, domain.ErrNotInStore)

		assert.ErrorIs(t, repo.Delete(ctx, "bbbbbbbb.png"), domain.ErrNotInStore)
	})
}
