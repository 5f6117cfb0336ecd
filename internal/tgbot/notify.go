package tgbot

import (
	"context"
	"errors"
	"fmt"

	"presenca-bot/internal/attendance"
)

var _ attendance.Notifier = (*App)(nil)

// ProofSubmitted tells every admin about a new proof.
func (a *App) ProofSubmitted(ctx context.Context, ev attendance.ProofSubmitted) error {
	if len(a.cfg.AdminTGIDs) == 0 {
		return nil
	}
	text := fmt.Sprintf("📄 Novo comprovante\nNome: %s\nCelular: %s\nTipo: %s\nArquivo: %s\nStatus: %s",
		ev.Participant.Name,
		ev.Participant.Phone,
		ev.Participant.Type,
		ev.FileName,
		ev.Participant.Status.Label(),
	)

	var errs []error
	for id := range a.cfg.AdminTGIDs {
		if err := a.SendText(id, text); err != nil {
			errs = append(errs, fmt.Errorf("notify admin %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
