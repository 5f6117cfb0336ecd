package attendance

import "errors"

var (
	ErrValidation   = errors.New("invalid input")
	ErrDuplicate    = errors.New("participant already registered")
	ErrNotFound     = errors.New("participant not found")
	ErrFileTooLarge = errors.New("file too large")
	ErrUpload       = errors.New("proof upload failed")
	ErrPersist      = errors.New("record store write failed")
	ErrConflict     = errors.New("record changed concurrently")
	ErrUnavailable  = errors.New("record store unavailable")

	ErrNilConfig      = errors.New("config cannot be nil")
	ErrNilRecordStore = errors.New("record store cannot be nil")
	ErrNilBlobStore   = errors.New("blob store cannot be nil")
	ErrNilClock       = errors.New("clock cannot be nil")
)

// Error is returned by every Service operation that fails. Kind is one of the
// sentinels above and matches with errors.Is, as does the wrapped Err.
type Error struct {
	Kind   error
	Op     string
	Detail string
	Err    error

	// Set when the proof was stored but the status write did not happen.
	OrphanBlobID string
	OrphanFile   string
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Orphaned reports whether a stored proof is left without a status update.
func (e *Error) Orphaned() bool {
	return e.OrphanBlobID != "" || e.OrphanFile != ""
}

// Detail returns the user facing detail of err, or "" when err is not an *Error.
func Detail(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Detail
	}
	return ""
}
