package models

import "strings"

// Status is the attendance state of a participant row.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusInReview  Status = "IN_REVIEW"
	StatusConfirmed Status = "CONFIRMED"
)

// Labels as they appear in the Status column of the sheet.
const (
	LabelPending   = "Pagamento Pendente"
	LabelInReview  = "Em Análise"
	LabelConfirmed = "Pagamento Confirmado"
)

// ParseStatus maps a sheet cell to a Status. Empty cells are PENDING; values
// that match neither a label nor a code are returned verbatim.
func ParseStatus(raw string) Status {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", strings.ToLower(LabelPending), "pending", "pendente":
		return StatusPending
	case strings.ToLower(LabelInReview), "in_review", "em analise":
		return StatusInReview
	case strings.ToLower(LabelConfirmed), "confirmed", "confirmado":
		return StatusConfirmed
	}
	return Status(s)
}

// Label is the value written back to the sheet.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return LabelPending
	case StatusInReview:
		return LabelInReview
	case StatusConfirmed:
		return LabelConfirmed
	}
	return string(s)
}

func (s Status) IsPending() bool { return s == StatusPending }

// IsTerminal reports whether the workflow must not prompt for a proof again.
func (s Status) IsTerminal() bool {
	return s == StatusInReview || s == StatusConfirmed
}

type ParticipantType string

const (
	TypeMember ParticipantType = "Membro"
	TypeGuest  ParticipantType = "Convidado"
	TypeNew    ParticipantType = "Novo"
)

// KnownTypes is the order offered by the front doors.
var KnownTypes = []ParticipantType{TypeMember, TypeGuest, TypeNew}

type Participant struct {
	Name   string
	Phone  string
	Type   ParticipantType
	Status Status
	Row    int // 1-based sheet row, 0 when not backed by a sheet row
}

// Proof is an uploaded payment receipt. It is never stored on the participant.
type Proof struct {
	FileName string
	Data     []byte
}

func (p Proof) Size() int64 { return int64(len(p.Data)) }
