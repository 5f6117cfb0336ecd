package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"presenca-bot/internal/common/clock"
	"presenca-bot/internal/models"
	"presenca-bot/internal/util"
)

const (
	opSearch   = "search"
	opRegister = "register"
	opConfirm  = "confirm"

	DefaultMaxUploadBytes = 2 * 1024 * 1024
	DefaultCacheTTL       = 10 * time.Minute
)

// DefaultExtensions are the proof formats accepted when Config.AllowedExtensions is empty.
var DefaultExtensions = []string{".csv", ".png", ".jpg", ".pdf"}

type Config struct {
	// FolderID is the Blob Store folder proofs are written to.
	FolderID string

	// TerminalStatus is IN_REVIEW or CONFIRMED.
	TerminalStatus models.Status

	MaxUploadBytes    int64
	AllowedExtensions []string

	// CacheTTL bounds how long a participant list read is reused. Zero disables caching.
	CacheTTL time.Duration
}

type Dependencies struct {
	Records  RecordStore
	Blobs    BlobStore
	Notifier Notifier // optional
	Clock    clock.Clock
	Logger   zerolog.Logger
}

var _ Service = (*service)(nil)

type service struct {
	cfg      Config
	records  RecordStore
	blobs    BlobStore
	notifier Notifier
	clock    clock.Clock
	log      zerolog.Logger
	cache    *readCache

	// writes serializes the read-check-write sequences of this process
	writes sync.Mutex
}

// NewService creates the attendance workflow.
func NewService(cfg *Config, deps *Dependencies) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if deps == nil || deps.Records == nil {
		return nil, ErrNilRecordStore
	}
	if deps.Blobs == nil {
		return nil, ErrNilBlobStore
	}
	if deps.Clock == nil {
		return nil, ErrNilClock
	}

	c := *cfg
	if c.TerminalStatus == "" {
		c.TerminalStatus = models.StatusInReview
	}
	if !c.TerminalStatus.IsTerminal() {
		return nil, errors.New("terminal status must be IN_REVIEW or CONFIRMED")
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = DefaultExtensions
	}

	return &service{
		cfg:      c,
		records:  deps.Records,
		blobs:    deps.Blobs,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		log:      deps.Logger.With().Str("component", "attendance").Logger(),
		cache:    newReadCache(c.CacheTTL, deps.Clock),
	}, nil
}

// Search lists participants whose trimmed name contains the query, ignoring case.
// The query is matched literally.
func (s *service) Search(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if input == nil {
		return nil, &Error{Kind: ErrValidation, Op: opSearch, Detail: "input cannot be nil"}
	}
	q := util.NormalizeName(input.Query)
	if q == "" {
		return nil, &Error{Kind: ErrValidation, Op: opSearch, Detail: "query is empty"}
	}

	rows, err := s.cache.get(ctx, s.records.ListParticipants)
	if err != nil {
		s.log.Error().Err(err).Str("event", "read_failed").Str("op", opSearch).Msg("list participants")
		return nil, &Error{Kind: ErrUnavailable, Op: opSearch, Err: err}
	}

	matches := []models.Participant{}
	for _, p := range rows {
		if strings.Contains(util.NormalizeName(p.Name), q) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, &Error{Kind: ErrNotFound, Op: opSearch, Detail: input.Query}
	}
	return &SearchOutput{Matches: matches}, nil
}

// Register appends a new participant in the PENDING state.
func (s *service) Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error) {
	if input == nil {
		return nil, &Error{Kind: ErrValidation, Op: opRegister, Detail: "input cannot be nil"}
	}
	in := RegisterInput{
		Name:  strings.TrimSpace(input.Name),
		Phone: strings.TrimSpace(input.Phone),
		Type:  models.ParticipantType(strings.TrimSpace(string(input.Type))),
	}
	if msg := validateStruct(ctx, &in); msg != "" {
		return nil, &Error{Kind: ErrValidation, Op: opRegister, Detail: msg}
	}
	if in.Type == "" {
		in.Type = models.TypeNew
	}

	s.writes.Lock()
	defer s.writes.Unlock()

	rows, err := s.records.ListParticipants(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("event", "read_failed").Str("op", opRegister).Msg("list participants")
		return nil, &Error{Kind: ErrUnavailable, Op: opRegister, Err: err}
	}
	key := util.NormalizeName(in.Name)
	for _, p := range rows {
		if util.NormalizeName(p.Name) == key {
			return nil, &Error{Kind: ErrDuplicate, Op: opRegister, Detail: p.Name}
		}
	}

	p := models.Participant{
		Name:   in.Name,
		Phone:  util.FormatPhone(in.Phone),
		Type:   in.Type,
		Status: models.StatusPending,
	}
	if err := s.records.AppendParticipant(ctx, p); err != nil {
		s.log.Error().Err(err).
			Str("event", "persist_failed").
			Str("op", opRegister).
			Bool("orphan", false).
			Str("participant", p.Name).
			Msg("append participant")
		return nil, &Error{Kind: ErrPersist, Op: opRegister, Err: err}
	}
	s.cache.invalidate()

	s.log.Info().
		Str("event", "participant_registered").
		Str("participant", p.Name).
		Str("type", string(p.Type)).
		Msg("participant registered")

	return &RegisterOutput{Participant: p}, nil
}

// Confirm uploads the proof and moves a PENDING participant to the terminal
// status. The blob is written before the status; a participant that is not
// PENDING is left untouched.
func (s *service) Confirm(ctx context.Context, input *ConfirmInput) (*ConfirmOutput, error) {
	if input == nil {
		return nil, &Error{Kind: ErrValidation, Op: opConfirm, Detail: "input cannot be nil"}
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &Error{Kind: ErrValidation, Op: opConfirm, Detail: "name is empty"}
	}

	// file checks come before any store call
	if input.Proof.Size() > s.cfg.MaxUploadBytes {
		return nil, &Error{Kind: ErrFileTooLarge, Op: opConfirm, Detail: input.Proof.FileName}
	}
	if input.Proof.Size() == 0 {
		return nil, &Error{Kind: ErrValidation, Op: opConfirm, Detail: "file is empty"}
	}
	if !s.allowedExtension(input.Proof.FileName) {
		return nil, &Error{Kind: ErrValidation, Op: opConfirm, Detail: "file type not accepted: " + util.Ext(input.Proof.FileName)}
	}

	s.writes.Lock()
	defer s.writes.Unlock()

	rows, err := s.records.ListParticipants(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("event", "read_failed").Str("op", opConfirm).Msg("list participants")
		return nil, &Error{Kind: ErrUnavailable, Op: opConfirm, Err: err}
	}
	p, err := resolve(rows, name, input.Row)
	if err != nil {
		return nil, err
	}

	log := s.log.With().Str("participant", p.Name).Logger()

	if !p.Status.IsPending() {
		log.Info().Str("event", "already_submitted").Str("status", string(p.Status)).Msg("confirmation skipped")
		return &ConfirmOutput{Participant: p, AlreadySubmitted: true}, nil
	}

	now := s.clock.Now()
	fileName := util.ProofFileName(now, p.Name, input.Proof.FileName)

	blobID, err := s.blobs.Upload(ctx, s.cfg.FolderID, fileName, input.Proof.Data)
	if err != nil {
		log.Error().Err(err).Str("event", "upload_failed").Str("file", fileName).Msg("upload proof")
		return nil, &Error{Kind: ErrUpload, Op: opConfirm, Err: err}
	}
	log.Info().
		Str("event", "proof_uploaded").
		Str("file", fileName).
		Str("blob_id", blobID).
		Int64("bytes", input.Proof.Size()).
		Msg("proof uploaded")

	if err := s.records.UpdateStatus(ctx, p, s.cfg.TerminalStatus); err != nil {
		s.cache.invalidate()
		kind := ErrPersist
		if errors.Is(err, ErrConflict) {
			kind = ErrConflict
		}
		log.Error().Err(err).
			Str("event", "orphan_blob").
			Str("op", opConfirm).
			Bool("orphan", true).
			Str("file", fileName).
			Str("blob_id", blobID).
			Msg("proof stored but status not updated")
		return nil, &Error{Kind: kind, Op: opConfirm, Err: err, OrphanBlobID: blobID, OrphanFile: fileName}
	}
	s.cache.invalidate()

	p.Status = s.cfg.TerminalStatus
	log.Info().Str("event", "status_updated").Str("status", string(p.Status)).Msg("attendance confirmed")

	s.notify(ctx, ProofSubmitted{Participant: p, FileName: fileName, BlobID: blobID, SubmittedAt: now})

	return &ConfirmOutput{Participant: p, FileName: fileName, BlobID: blobID}, nil
}

func (s *service) notify(ctx context.Context, ev ProofSubmitted) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ProofSubmitted(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", "notify_failed").Str("participant", ev.Participant.Name).Msg("notify proof submitted")
	}
}

func (s *service) allowedExtension(fileName string) bool {
	ext := strings.ToLower(util.Ext(fileName))
	for _, a := range s.cfg.AllowedExtensions {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// resolve finds the participant picked by the caller. With a row it must still
// hold the same name; without one the first row with that name wins.
func resolve(rows []models.Participant, name string, row int) (models.Participant, error) {
	if row == 0 {
		p, ok := findByName(rows, name)
		if !ok {
			return models.Participant{}, &Error{Kind: ErrNotFound, Op: opConfirm, Detail: name}
		}
		return p, nil
	}
	for _, p := range rows {
		if p.Row != row {
			continue
		}
		if util.NormalizeName(p.Name) != util.NormalizeName(name) {
			return models.Participant{}, &Error{Kind: ErrConflict, Op: opConfirm, Detail: fmt.Sprintf("row %d no longer holds %s", row, name)}
		}
		return p, nil
	}
	return models.Participant{}, &Error{Kind: ErrConflict, Op: opConfirm, Detail: fmt.Sprintf("row %d not found", row)}
}

func findByName(rows []models.Participant, name string) (models.Participant, bool) {
	key := util.NormalizeName(name)
	for _, p := range rows {
		if util.NormalizeName(p.Name) == key {
			return p, true
		}
	}
	return models.Participant{}, false
}
