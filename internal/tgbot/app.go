package tgbot

import (
	"context"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/config"
	"presenca-bot/internal/models"
)

const (
	flowSearch = "search"
	flowReg    = "reg"
	flowProof  = "proof"

	// more matches than this and the user is asked to type more of the name
	maxChoices = 8
)

// botAPI is the part of *tgbotapi.BotAPI the app uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type App struct {
	cfg  config.Config
	bot  botAPI
	svc  attendance.Service
	http *http.Client
	log  zerolog.Logger

	// per-user conversation state, only touched from the update loop
	state map[int64]userState
}

type userState struct {
	Flow    string
	Step    int
	Data    map[string]string
	Matches []models.Participant
}

func New(cfg config.Config, svc attendance.Service, log zerolog.Logger) (*App, error) {
	b, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	return newApp(cfg, b, svc, log), nil
}

func newApp(cfg config.Config, bot botAPI, svc attendance.Service, log zerolog.Logger) *App {
	return &App{
		cfg:   cfg,
		bot:   bot,
		svc:   svc,
		http:  &http.Client{Timeout: 30 * time.Second},
		log:   log.With().Str("component", "tgbot").Logger(),
		state: map[int64]userState{},
	}
}

// SetService wires the workflow when it is built after the bot.
func (a *App) SetService(svc attendance.Service) {
	a.svc = svc
}

func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.bot.GetUpdatesChan(u)
	defer a.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message != nil {
				if err := a.handleMessage(ctx, upd.Message); err != nil {
					a.log.Error().Err(err).Msg("handle message")
				}
			} else if upd.CallbackQuery != nil {
				if err := a.handleCallback(ctx, upd.CallbackQuery); err != nil {
					a.log.Error().Err(err).Msg("handle callback")
				}
			}
		}
	}
}

func (a *App) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) maxUpload() int64 {
	if a.cfg.MaxUploadBytes > 0 {
		return a.cfg.MaxUploadBytes
	}
	return attendance.DefaultMaxUploadBytes
}

// ---------- Message handling ----------

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.From == nil {
		return nil
	}
	tgID := m.From.ID
	txt := strings.TrimSpace(m.Text)

	switch {
	case strings.HasPrefix(txt, "/start"):
		a.state[tgID] = userState{}
		return a.showMenu(tgID)
	case strings.HasPrefix(txt, "/cancel"):
		a.state[tgID] = userState{}
		return a.SendText(tgID, "Operação cancelada. Use /start para recomeçar.")
	case strings.HasPrefix(txt, "/cadastro"):
		return a.startRegistration(tgID)
	case strings.HasPrefix(txt, "/buscar"):
		return a.startSearch(tgID)
	}

	st := a.state[tgID]
	if st.Flow != "" {
		return a.handleFlowInput(ctx, tgID, m, txt, st)
	}

	return a.showMenu(tgID)
}

func (a *App) handleFlowInput(ctx context.Context, tgID int64, m *tgbotapi.Message, txt string, st userState) error {
	switch st.Flow {
	case flowSearch:
		return a.handleSearchInput(ctx, tgID, txt)
	case flowReg:
		return a.handleRegistrationFlow(tgID, txt, st)
	case flowProof:
		return a.handleProofInput(ctx, tgID, m, st)
	default:
		a.state[tgID] = userState{}
		return a.SendText(tgID, "Sessão reiniciada. Use /start")
	}
}

func (a *App) showMenu(tgID int64) error {
	msg := tgbotapi.NewMessage(tgID, "Olá! Aqui você envia o comprovante de pagamento da sua presença.\n\nBusque seu nome para enviar o comprovante ou faça seu cadastro se ainda não estiver na lista.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔎 Buscar meu nome", "u:search"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Fazer cadastro", "u:register"),
		),
	)
	_, err := a.bot.Send(msg)
	return err
}

// ---------- Callback handling ----------

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	tgID := q.From.ID
	data := q.Data

	// ack
	cb := tgbotapi.NewCallback(q.ID, "")
	_, _ = a.bot.Request(cb)

	if !strings.HasPrefix(data, "u:") {
		return nil
	}

	switch data {
	case "u:search":
		return a.startSearch(tgID)
	case "u:register":
		return a.startRegistration(tgID)
	case "u:menu":
		a.state[tgID] = userState{}
		return a.showMenu(tgID)
	}

	if strings.HasPrefix(data, "u:pick:") {
		return a.pickMatch(tgID, strings.TrimPrefix(data, "u:pick:"))
	}

	if strings.HasPrefix(data, "u:type:") {
		t := models.ParticipantType(strings.TrimPrefix(data, "u:type:"))
		return a.finishRegistration(ctx, tgID, t)
	}

	return nil
}
