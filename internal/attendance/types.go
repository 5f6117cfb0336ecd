package attendance

import (
	"time"

	"presenca-bot/internal/models"
)

type SearchInput struct {
	Query string
}

type SearchOutput struct {
	Matches []models.Participant
}

type RegisterInput struct {
	Name  string                 `validate:"required,max=120"`
	Phone string                 `validate:"required,phone11"`
	Type  models.ParticipantType `validate:"max=40"`
}

type RegisterOutput struct {
	Participant models.Participant
}

type ConfirmInput struct {
	// Name is the exact name picked from a search result.
	Name string

	// Row is the store row of that search result, 0 when unknown.
	Row int

	Proof models.Proof
}

type ConfirmOutput struct {
	Participant models.Participant

	// AlreadySubmitted is set when the participant was not PENDING; nothing was uploaded or written.
	AlreadySubmitted bool

	FileName string
	BlobID   string
}

// ProofSubmitted is published after a successful confirmation.
type ProofSubmitted struct {
	Participant models.Participant
	FileName    string
	BlobID      string
	SubmittedAt time.Time
}
