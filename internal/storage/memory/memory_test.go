package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/models"
)

func TestStore_AppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	rows, err := s.ListParticipants(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, s.AppendParticipant(ctx, models.Participant{Name: "Ana", Status: models.StatusPending}))
	require.NoError(t, s.AppendParticipant(ctx, models.Participant{Name: "Bia", Status: models.StatusPending}))

	rows, err = s.ListParticipants(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, 3, rows[1].Row)
	assert.Equal(t, 2, s.Writes())
}

func TestStore_ListReturnsCopy(t *testing.T) {
	s := New(models.Participant{Name: "Ana", Status: models.StatusPending})
	ctx := context.Background()

	rows, err := s.ListParticipants(ctx)
	require.NoError(t, err)
	rows[0].Status = models.StatusConfirmed

	again, err := s.ListParticipants(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again[0].Status)
}

func TestStore_UpdateStatus(t *testing.T) {
	s := New(
		models.Participant{Name: "Ana", Status: models.StatusPending},
		models.Participant{Name: "Bia", Status: models.StatusPending},
	)
	ctx := context.Background()
	rows, _ := s.ListParticipants(ctx)

	require.NoError(t, s.UpdateStatus(ctx, rows[1], models.StatusInReview))

	rows, _ = s.ListParticipants(ctx)
	assert.Equal(t, models.StatusPending, rows[0].Status)
	assert.Equal(t, models.StatusInReview, rows[1].Status)
}

func TestStore_UpdateStatus_Conflict(t *testing.T) {
	s := New(models.Participant{Name: "Ana", Status: models.StatusPending})
	ctx := context.Background()
	rows, _ := s.ListParticipants(ctx)
	ana := rows[0]

	require.NoError(t, s.UpdateStatus(ctx, ana, models.StatusConfirmed))

	// stale copy still says PENDING
	err := s.UpdateStatus(ctx, ana, models.StatusConfirmed)
	assert.ErrorIs(t, err, attendance.ErrConflict)

	err = s.UpdateStatus(ctx, models.Participant{Name: "Other", Row: 2}, models.StatusConfirmed)
	assert.ErrorIs(t, err, attendance.ErrConflict)

	err = s.UpdateStatus(ctx, models.Participant{Name: "Ghost", Row: 9}, models.StatusConfirmed)
	assert.ErrorIs(t, err, attendance.ErrConflict)
}

func TestStore_ReplaceParticipants(t *testing.T) {
	s := New(models.Participant{Name: "Ana"})
	ctx := context.Background()

	require.NoError(t, s.ReplaceParticipants(ctx, []models.Participant{{Name: "Bia"}, {Name: "Caio"}}))

	rows, err := s.ListParticipants(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Caio", rows[1].Name)
	assert.Equal(t, 3, rows[1].Row)
}

func TestStore_Upload(t *testing.T) {
	s := New()
	id, err := s.Upload(context.Background(), "folder", "proof.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	blobs := s.Blobs()
	require.Len(t, blobs, 1)
	assert.Equal(t, id, blobs[0].ID)
	assert.Equal(t, "folder", blobs[0].FolderID)
	assert.Equal(t, "proof.pdf", blobs[0].Name)
}

func TestStore_FailOn(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	s.FailOn(OpUpload, boom)
	_, err := s.Upload(ctx, "f", "n", nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Blobs())

	s.FailOn(OpUpload, nil)
	_, err = s.Upload(ctx, "f", "n", nil)
	assert.NoError(t, err)

	s.FailOn(OpAppend, boom)
	assert.ErrorIs(t, s.AppendParticipant(ctx, models.Participant{Name: "Ana"}), boom)
	assert.Equal(t, 0, s.Writes())
}
