package events

import (
	"context"
	"errors"

	"presenca-bot/internal/attendance"
)

// Multi fans one event out to every notifier. All of them are called even
// when some fail; the failures are joined.
type Multi []attendance.Notifier

func (m Multi) ProofSubmitted(ctx context.Context, ev attendance.ProofSubmitted) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.ProofSubmitted(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
