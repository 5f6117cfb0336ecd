package tgbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/models"
	"presenca-bot/internal/util"
)

// ---------- Search ----------

func (a *App) startSearch(tgID int64) error {
	a.state[tgID] = userState{Flow: flowSearch, Step: 1}
	return a.SendText(tgID, "Digite seu nome (ou parte dele):")
}

func (a *App) handleSearchInput(ctx context.Context, tgID int64, txt string) error {
	if txt == "" {
		return a.SendText(tgID, "Digite seu nome (ou parte dele):")
	}

	out, err := a.svc.Search(ctx, &attendance.SearchInput{Query: txt})
	if errors.Is(err, attendance.ErrNotFound) {
		msg := tgbotapi.NewMessage(tgID, fmt.Sprintf("Nenhum nome encontrado para \"%s\". Tente de novo ou faça seu cadastro.", txt))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📝 Fazer cadastro", "u:register"),
			),
		)
		_, err := a.bot.Send(msg)
		return err
	}
	if err != nil {
		return a.SendText(tgID, errorText(err))
	}

	if len(out.Matches) == 1 {
		return a.selectParticipant(tgID, out.Matches[0])
	}
	if len(out.Matches) > maxChoices {
		return a.SendText(tgID, fmt.Sprintf("Encontrei %d nomes. Digite mais do seu nome para refinar a busca.", len(out.Matches)))
	}

	a.state[tgID] = userState{Flow: flowSearch, Step: 2, Matches: out.Matches}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i, p := range out.Matches {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Name, "u:pick:"+strconv.Itoa(i)),
		))
	}
	msg := tgbotapi.NewMessage(tgID, "Encontrei mais de um nome. Qual é você?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) pickMatch(tgID int64, raw string) error {
	st := a.state[tgID]
	i, err := strconv.Atoi(raw)
	if st.Flow != flowSearch || err != nil || i < 0 || i >= len(st.Matches) {
		a.state[tgID] = userState{}
		return a.SendText(tgID, "Essa seleção expirou. Use /buscar para buscar novamente.")
	}
	return a.selectParticipant(tgID, st.Matches[i])
}

func (a *App) selectParticipant(tgID int64, p models.Participant) error {
	if !p.Status.IsPending() {
		a.state[tgID] = userState{}
		return a.SendText(tgID, fmt.Sprintf("%s, seu comprovante já foi enviado. Status: %s.", p.Name, p.Status.Label()))
	}
	a.state[tgID] = userState{Flow: flowProof, Step: 1, Data: map[string]string{
		"name": p.Name,
		"row":  strconv.Itoa(p.Row),
	}}
	return a.SendText(tgID, fmt.Sprintf(
		"%s, envie o comprovante de pagamento como arquivo (PDF, PNG, JPG ou CSV) ou como foto. Tamanho máximo: %s.\n/cancel para sair.",
		p.Name, humanBytes(a.maxUpload()),
	))
}

// ---------- Proof upload ----------

func (a *App) handleProofInput(ctx context.Context, tgID int64, m *tgbotapi.Message, st userState) error {
	name := st.Data["name"]
	// a missing row falls back to the name lookup
	row, _ := strconv.Atoi(st.Data["row"])

	var fileID, fileName string
	var size int
	switch {
	case m.Document != nil:
		fileID, fileName, size = m.Document.FileID, m.Document.FileName, m.Document.FileSize
	case len(m.Photo) > 0:
		// the last size is the largest
		ph := m.Photo[len(m.Photo)-1]
		fileID, fileName, size = ph.FileID, "foto.jpg", ph.FileSize
	default:
		return a.SendText(tgID, "Envie o comprovante como arquivo ou foto. /cancel para sair.")
	}

	if int64(size) > a.maxUpload() {
		return a.SendText(tgID, fmt.Sprintf("O arquivo passa de %s. Envie um arquivo menor.", humanBytes(a.maxUpload())))
	}

	data, err := a.download(ctx, fileID)
	if err != nil {
		a.log.Error().Err(err).Int64("tg_id", tgID).Msg("download proof")
		return a.SendText(tgID, "Não consegui baixar o arquivo. Tente enviar novamente.")
	}

	out, err := a.svc.Confirm(ctx, &attendance.ConfirmInput{
		Name:  name,
		Row:   row,
		Proof: models.Proof{FileName: fileName, Data: data},
	})
	if err != nil {
		if !retryable(err) {
			a.state[tgID] = userState{}
		}
		return a.SendText(tgID, errorText(err))
	}

	a.state[tgID] = userState{}
	if out.AlreadySubmitted {
		return a.SendText(tgID, fmt.Sprintf("%s, seu comprovante já tinha sido enviado. Status: %s.", out.Participant.Name, out.Participant.Status.Label()))
	}
	return a.SendText(tgID, fmt.Sprintf("✅ Comprovante recebido! Obrigado, %s.\nStatus: %s.", out.Participant.Name, out.Participant.Status.Label()))
}

func (a *App) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := a.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, a.maxUpload()+1))
}

// ---------- Registration ----------

func (a *App) startRegistration(tgID int64) error {
	a.state[tgID] = userState{Flow: flowReg, Step: 1, Data: map[string]string{}}
	return a.SendText(tgID, "Cadastro. Digite seu nome completo:")
}

func (a *App) handleRegistrationFlow(tgID int64, txt string, st userState) error {
	if st.Data == nil {
		st.Data = map[string]string{}
	}

	switch st.Step {
	case 1:
		if txt == "" {
			return a.SendText(tgID, "Digite seu nome completo:")
		}
		st.Data["name"] = txt
		st.Step = 2
		a.state[tgID] = st
		return a.SendText(tgID, "Digite seu celular com DDD (11 dígitos):")
	case 2:
		if !util.ValidPhone(txt) {
			return a.SendText(tgID, "Celular inválido. Use DDD + número, 11 dígitos, ex.: (11) 91234-5678")
		}
		st.Data["phone"] = txt
		st.Step = 3
		a.state[tgID] = st
		return a.showTypePicker(tgID)
	case 3:
		return a.showTypePicker(tgID)
	default:
		a.state[tgID] = userState{}
		return a.SendText(tgID, "Cadastro reiniciado. /cadastro")
	}
}

func (a *App) showTypePicker(tgID int64) error {
	row := []tgbotapi.InlineKeyboardButton{}
	for _, t := range models.KnownTypes {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(t), "u:type:"+string(t)))
	}
	msg := tgbotapi.NewMessage(tgID, "Qual é o seu tipo de participação?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) finishRegistration(ctx context.Context, tgID int64, t models.ParticipantType) error {
	st := a.state[tgID]
	if st.Flow != flowReg || st.Step != 3 {
		return a.SendText(tgID, "Esse cadastro expirou. Use /cadastro para começar de novo.")
	}

	out, err := a.svc.Register(ctx, &attendance.RegisterInput{
		Name:  st.Data["name"],
		Phone: st.Data["phone"],
		Type:  t,
	})
	if err != nil {
		a.state[tgID] = userState{}
		if errors.Is(err, attendance.ErrDuplicate) {
			return a.SendText(tgID, "Já existe um cadastro com esse nome. Use /buscar para enviar o comprovante.")
		}
		return a.SendText(tgID, errorText(err))
	}

	if err := a.SendText(tgID, "✅ Cadastro realizado: "+out.Participant.Name); err != nil {
		return err
	}
	return a.selectParticipant(tgID, out.Participant)
}

// ---------- Errors ----------

// retryable errors keep the user in the upload step.
func retryable(err error) bool {
	return errors.Is(err, attendance.ErrValidation) ||
		errors.Is(err, attendance.ErrFileTooLarge) ||
		errors.Is(err, attendance.ErrUpload)
}

func errorText(err error) string {
	var ae *attendance.Error
	switch {
	case errors.Is(err, attendance.ErrValidation):
		if d := attendance.Detail(err); d != "" {
			return "Dados inválidos: " + d
		}
		return "Dados inválidos."
	case errors.Is(err, attendance.ErrFileTooLarge):
		return "O arquivo é grande demais. Envie um arquivo menor."
	case errors.Is(err, attendance.ErrNotFound):
		return "Participante não encontrado. Use /buscar."
	case errors.Is(err, attendance.ErrDuplicate):
		return "Já existe um cadastro com esse nome."
	case errors.Is(err, attendance.ErrUpload):
		return "Não foi possível salvar o comprovante. Tente enviar novamente."
	case errors.Is(err, attendance.ErrConflict):
		return "Seus dados mudaram enquanto o envio acontecia. Use /buscar e confira o status."
	case errors.As(err, &ae) && ae.Orphaned():
		return "O comprovante foi salvo, mas não conseguimos atualizar seu status. Avise a organização."
	case errors.Is(err, attendance.ErrPersist):
		return "Não foi possível salvar seus dados. Tente novamente mais tarde."
	case errors.Is(err, attendance.ErrUnavailable):
		return "A lista de participantes está indisponível agora. Tente novamente em instantes."
	default:
		return "Algo deu errado. Tente novamente mais tarde."
	}
}

func humanBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return strconv.FormatInt(n/mb, 10) + " MB"
	}
	return strconv.FormatInt(n/1024, 10) + " KB"
}
