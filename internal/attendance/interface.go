package attendance

import (
	"context"

	"presenca-bot/internal/models"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go presenca-bot/internal/attendance Service

// Service defines the attendance workflow used by the bot and the HTTP API.
type Service interface {
	// Search lists participants whose name contains the query
	Search(ctx context.Context, input *SearchInput) (*SearchOutput, error)

	// Register appends a new PENDING participant
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)

	// Confirm stores a payment proof and moves the participant to the terminal status
	Confirm(ctx context.Context, input *ConfirmInput) (*ConfirmOutput, error)
}

//go:generate mockgen -package=mocks -destination=mocks/mock_stores.go presenca-bot/internal/attendance RecordStore,BlobStore,Notifier

// RecordStore holds one row per participant.
type RecordStore interface {
	// ListParticipants returns every data row in store order. An empty store is not an error.
	ListParticipants(ctx context.Context) ([]models.Participant, error)

	// AppendParticipant adds a single row without rewriting the others.
	AppendParticipant(ctx context.Context, p models.Participant) error

	// UpdateStatus patches the status of p's row. It returns ErrConflict when
	// the row no longer holds p in the PENDING state.
	UpdateStatus(ctx context.Context, p models.Participant, status models.Status) error
}

// BlobStore keeps uploaded proofs.
type BlobStore interface {
	Upload(ctx context.Context, folderID, name string, data []byte) (string, error)
}

// Notifier is told about every proof that reached the terminal status.
type Notifier interface {
	ProofSubmitted(ctx context.Context, ev ProofSubmitted) error
}
