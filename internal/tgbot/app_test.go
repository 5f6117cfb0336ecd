package tgbot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/attendance/mocks"
	"presenca-bot/internal/config"
	"presenca-bot/internal/models"
)

const userID int64 = 1001

type fakeBot struct {
	sent    []tgbotapi.MessageConfig
	fileURL string
	sendErr error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeBot) StopReceivingUpdates() {}

func (f *fakeBot) last() tgbotapi.MessageConfig {
	return f.sent[len(f.sent)-1]
}

func (f *fakeBot) lastButtons() []tgbotapi.InlineKeyboardButton {
	kb, ok := f.last().ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []tgbotapi.InlineKeyboardButton
	for _, row := range kb.InlineKeyboard {
		out = append(out, row...)
	}
	return out
}

func newTestApp(t *testing.T, cfg config.Config) (*App, *fakeBot, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	bot := &fakeBot{}
	return newApp(cfg, bot, svc, zerolog.Nop()), bot, svc
}

func text(s string) *tgbotapi.Message {
	return &tgbotapi.Message{From: &tgbotapi.User{ID: userID}, Chat: &tgbotapi.Chat{ID: userID}, Text: s}
}

func callback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{ID: "cb", From: &tgbotapi.User{ID: userID}, Data: data}
}

func TestStartShowsMenu(t *testing.T) {
	app, bot, _ := newTestApp(t, config.Config{})

	require.NoError(t, app.handleMessage(context.Background(), text("/start")))
	buttons := bot.lastButtons()
	require.Len(t, buttons, 2)
	assert.Equal(t, "u:search", *buttons[0].CallbackData)
	assert.Equal(t, "u:register", *buttons[1].CallbackData)
}

func TestSearch_SingleMatchAsksForProof(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})
	ctx := context.Background()

	svc.EXPECT().Search(gomock.Any(), &attendance.SearchInput{Query: "ana"}).
		Return(&attendance.SearchOutput{Matches: []models.Participant{{Name: "Ana Silva", Status: models.StatusPending}}}, nil)

	require.NoError(t, app.handleCallback(ctx, callback("u:search")))
	require.NoError(t, app.handleMessage(ctx, text("ana")))

	assert.Equal(t, flowProof, app.state[userID].Flow)
	assert.Equal(t, "Ana Silva", app.state[userID].Data["name"])
	assert.Contains(t, bot.last().Text, "2 MB")
}

func TestSearch_AlreadySubmitted(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})
	ctx := context.Background()

	svc.EXPECT().Search(gomock.Any(), gomock.Any()).
		Return(&attendance.SearchOutput{Matches: []models.Participant{{Name: "Ana Silva", Status: models.StatusInReview}}}, nil)

	require.NoError(t, app.startSearch(userID))
	require.NoError(t, app.handleMessage(ctx, text("ana")))

	assert.Empty(t, app.state[userID].Flow)
	assert.Contains(t, bot.last().Text, models.LabelInReview)
}

func TestSearch_Disambiguation(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})
	ctx := context.Background()

	svc.EXPECT().Search(gomock.Any(), gomock.Any()).
		Return(&attendance.SearchOutput{Matches: []models.Participant{
			{Name: "Ana Silva", Status: models.StatusPending},
			{Name: "Mariana Costa", Status: models.StatusPending},
		}}, nil)

	require.NoError(t, app.startSearch(userID))
	require.NoError(t, app.handleMessage(ctx, text("ana")))

	buttons := bot.lastButtons()
	require.Len(t, buttons, 2)
	assert.Equal(t, "Mariana Costa", buttons[1].Text)
	assert.Equal(t, "u:pick:1", *buttons[1].CallbackData)

	require.NoError(t, app.handleCallback(ctx, callback("u:pick:1")))
	assert.Equal(t, flowProof, app.state[userID].Flow)
	assert.Equal(t, "Mariana Costa", app.state[userID].Data["name"])
}

func TestSearch_StalePick(t *testing.T) {
	app, bot, _ := newTestApp(t, config.Config{})

	require.NoError(t, app.handleCallback(context.Background(), callback("u:pick:3")))
	assert.Contains(t, bot.last().Text, "/buscar")
	assert.Empty(t, app.state[userID].Flow)
}

func TestSearch_NotFoundOffersRegistration(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})

	svc.EXPECT().Search(gomock.Any(), gomock.Any()).
		Return(nil, &attendance.Error{Kind: attendance.ErrNotFound})

	require.NoError(t, app.startSearch(userID))
	require.NoError(t, app.handleMessage(context.Background(), text("zeca")))

	buttons := bot.lastButtons()
	require.Len(t, buttons, 1)
	assert.Equal(t, "u:register", *buttons[0].CallbackData)
	assert.Equal(t, flowSearch, app.state[userID].Flow)
}

func TestSearch_TooManyMatches(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})

	matches := make([]models.Participant, maxChoices+1)
	svc.EXPECT().Search(gomock.Any(), gomock.Any()).Return(&attendance.SearchOutput{Matches: matches}, nil)

	require.NoError(t, app.startSearch(userID))
	require.NoError(t, app.handleMessage(context.Background(), text("a")))
	assert.Contains(t, bot.last().Text, "refinar")
}

func TestRegistrationFlow(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})
	ctx := context.Background()

	svc.EXPECT().
		Register(gomock.Any(), &attendance.RegisterInput{Name: "Ana Silva", Phone: "(11) 91234-5678", Type: models.TypeGuest}).
		Return(&attendance.RegisterOutput{Participant: models.Participant{
			Name: "Ana Silva", Phone: "(11) 91234-5678", Type: models.TypeGuest, Status: models.StatusPending,
		}}, nil)

	require.NoError(t, app.handleMessage(ctx, text("/cadastro")))
	require.NoError(t, app.handleMessage(ctx, text("Ana Silva")))

	require.NoError(t, app.handleMessage(ctx, text("1234")))
	assert.Contains(t, bot.last().Text, "Celular inválido")
	assert.Equal(t, 2, app.state[userID].Step)

	require.NoError(t, app.handleMessage(ctx, text("(11) 91234-5678")))
	buttons := bot.lastButtons()
	require.Len(t, buttons, len(models.KnownTypes))

	require.NoError(t, app.handleCallback(ctx, callback("u:type:"+string(models.TypeGuest))))
	assert.Equal(t, flowProof, app.state[userID].Flow)
	assert.Equal(t, "Ana Silva", app.state[userID].Data["name"])
}

func TestRegistrationFlow_Duplicate(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})
	ctx := context.Background()

	svc.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, &attendance.Error{Kind: attendance.ErrDuplicate})

	app.state[userID] = userState{Flow: flowReg, Step: 3, Data: map[string]string{"name": "Ana", "phone": "11912345678"}}
	require.NoError(t, app.handleCallback(ctx, callback("u:type:Membro")))
	assert.Contains(t, bot.last().Text, "Já existe um cadastro")
	assert.Empty(t, app.state[userID].Flow)
}

func TestRegistrationFlow_ExpiredTypeButton(t *testing.T) {
	app, bot, _ := newTestApp(t, config.Config{})

	require.NoError(t, app.handleCallback(context.Background(), callback("u:type:Membro")))
	assert.Contains(t, bot.last().Text, "/cadastro")
}

func TestCancelResetsState(t *testing.T) {
	app, _, _ := newTestApp(t, config.Config{})
	app.state[userID] = userState{Flow: flowProof, Data: map[string]string{"name": "Ana"}}

	require.NoError(t, app.handleMessage(context.Background(), text("/cancel")))
	assert.Empty(t, app.state[userID].Flow)
}

func fileServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestProofUpload_Document(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})
	data := []byte("%PDF-1.4 proof")
	bot.fileURL = fileServer(t, data).URL

	svc.EXPECT().
		Confirm(gomock.Any(), &attendance.ConfirmInput{Name: "Ana Silva", Proof: models.Proof{FileName: "recibo.pdf", Data: data}}).
		Return(&attendance.ConfirmOutput{
			Participant: models.Participant{Name: "Ana Silva", Status: models.StatusInReview},
			FileName:    "19042025_120000_ana_silva.pdf",
		}, nil)

	app.state[userID] = userState{Flow: flowProof, Data: map[string]string{"name": "Ana Silva"}}
	msg := text("")
	msg.Document = &tgbotapi.Document{FileID: "doc-1", FileName: "recibo.pdf", FileSize: len(data)}

	require.NoError(t, app.handleMessage(context.Background(), msg))
	assert.Contains(t, bot.last().Text, "Comprovante recebido")
	assert.Empty(t, app.state[userID].Flow)
}

func TestProofUpload_PhotoUsesLargestSize(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})
	bot.fileURL = fileServer(t, []byte("jpeg")).URL

	svc.EXPECT().Confirm(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *attendance.ConfirmInput) (*attendance.ConfirmOutput, error) {
			assert.Equal(t, "foto.jpg", in.Proof.FileName)
			return &attendance.ConfirmOutput{Participant: models.Participant{Name: "Ana Silva", Status: models.StatusInReview}}, nil
		})

	app.state[userID] = userState{Flow: flowProof, Data: map[string]string{"name": "Ana Silva"}}
	msg := text("")
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "small", FileSize: 10}, {FileID: "large", FileSize: 4}}

	require.NoError(t, app.handleMessage(context.Background(), msg))
	assert.Contains(t, bot.last().Text, "Comprovante recebido")
}

func TestProofUpload_TooLargeIsRejectedBeforeDownload(t *testing.T) {
	app, bot, _ := newTestApp(t, config.Config{MaxUploadBytes: 1024})
	bot.fileURL = "http://127.0.0.1:1"

	app.state[userID] = userState{Flow: flowProof, Data: map[string]string{"name": "Ana Silva"}}
	msg := text("")
	msg.Document = &tgbotapi.Document{FileID: "doc-1", FileName: "big.pdf", FileSize: 2048}

	require.NoError(t, app.handleMessage(context.Background(), msg))
	assert.Contains(t, bot.last().Text, "1 KB")
	assert.Equal(t, flowProof, app.state[userID].Flow)
}

func TestProofUpload_TextIsNotAProof(t *testing.T) {
	app, bot, _ := newTestApp(t, config.Config{})
	app.state[userID] = userState{Flow: flowProof, Data: map[string]string{"name": "Ana Silva"}}

	require.NoError(t, app.handleMessage(context.Background(), text("segue")))
	assert.Contains(t, bot.last().Text, "arquivo ou foto")
}

func TestProofUpload_DownloadFailure(t *testing.T) {
	app, bot, _ := newTestApp(t, config.Config{})
	bot.fileURL = fileServer(t, nil).URL

	app.state[userID] = userState{Flow: flowProof, Data: map[string]string{"name": "Ana Silva"}}
	msg := text("")
	msg.Document = &tgbotapi.Document{FileID: "missing", FileName: "p.pdf", FileSize: 3}

	require.NoError(t, app.handleMessage(context.Background(), msg))
	assert.Contains(t, bot.last().Text, "Não consegui baixar")
}

func TestProofUpload_ServiceErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		keepsFlow bool
		want      string
	}{
		{"bad type", &attendance.Error{Kind: attendance.ErrValidation, Detail: "file type not accepted: .exe"}, true, ".exe"},
		{"upload", &attendance.Error{Kind: attendance.ErrUpload}, true, "Tente enviar novamente"},
		{"orphan", &attendance.Error{Kind: attendance.ErrPersist, OrphanBlobID: "b", OrphanFile: "f.pdf"}, false, "Avise a organização"},
		{"persist", &attendance.Error{Kind: attendance.ErrPersist}, false, "Não foi possível salvar seus dados"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, bot, svc := newTestApp(t, config.Config{})
			bot.fileURL = fileServer(t, []byte("x")).URL
			svc.EXPECT().Confirm(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			app.state[userID] = userState{Flow: flowProof, Data: map[string]string{"name": "Ana Silva"}}
			msg := text("")
			msg.Document = &tgbotapi.Document{FileID: "doc", FileName: "p.exe", FileSize: 1}

			require.NoError(t, app.handleMessage(context.Background(), msg))
			assert.Contains(t, bot.last().Text, tt.want)
			assert.Equal(t, tt.keepsFlow, app.state[userID].Flow == flowProof)
		})
	}
}

func TestProofSubmittedNotifiesAdmins(t *testing.T) {
	app, bot, _ := newTestApp(t, config.Config{AdminTGIDs: map[int64]bool{7: true, 8: true}})

	err := app.ProofSubmitted(context.Background(), attendance.ProofSubmitted{
		Participant: models.Participant{Name: "Ana Silva", Phone: "(11) 91234-5678", Type: models.TypeMember, Status: models.StatusInReview},
		FileName:    "19042025_120000_ana_silva.pdf",
	})
	require.NoError(t, err)
	require.Len(t, bot.sent, 2)

	chats := []int64{bot.sent[0].ChatID, bot.sent[1].ChatID}
	assert.ElementsMatch(t, []int64{7, 8}, chats)
	assert.Contains(t, bot.sent[0].Text, "19042025_120000_ana_silva.pdf")
}

func TestProofSubmittedReportsSendFailures(t *testing.T) {
	app, bot, _ := newTestApp(t, config.Config{AdminTGIDs: map[int64]bool{7: true}})
	bot.sendErr = errors.New("forbidden")

	err := app.ProofSubmitted(context.Background(), attendance.ProofSubmitted{})
	assert.ErrorContains(t, err, "notify admin 7")
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "2 MB", humanBytes(2*1024*1024))
	assert.Equal(t, "1 KB", humanBytes(1024))
	assert.Equal(t, "1536 KB", humanBytes(1536*1024))
}

func TestProofUpload_SendsThePickedRow(t *testing.T) {
	app, bot, svc := newTestApp(t, config.Config{})
	ctx := context.Background()
	bot.fileURL = fileServer(t, []byte("%PDF")).URL

	svc.EXPECT().Search(gomock.Any(), gomock.Any()).
		Return(&attendance.SearchOutput{Matches: []models.Participant{
			{Name: "Ana Silva", Status: models.StatusConfirmed, Row: 2},
			{Name: "ana silva ", Status: models.StatusPending, Row: 3},
		}}, nil)
	svc.EXPECT().
		Confirm(gomock.Any(), &attendance.ConfirmInput{Name: "ana silva ", Row: 3, Proof: models.Proof{FileName: "p.pdf", Data: []byte("%PDF")}}).
		Return(&attendance.ConfirmOutput{Participant: models.Participant{Name: "ana silva ", Status: models.StatusInReview, Row: 3}}, nil)

	require.NoError(t, app.startSearch(userID))
	require.NoError(t, app.handleMessage(ctx, text("ana")))
	require.NoError(t, app.handleCallback(ctx, callback("u:pick:1")))

	msg := text("")
	msg.Document = &tgbotapi.Document{FileID: "doc", FileName: "p.pdf", FileSize: 4}
	require.NoError(t, app.handleMessage(ctx, msg))
	assert.Contains(t, bot.last().Text, "Comprovante recebido")
}
