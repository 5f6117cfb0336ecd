package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/models"
	"presenca-bot/internal/util"
)

// Op names a store call that can be made to fail with FailOn.
type Op string

const (
	OpList    Op = "list"
	OpAppend  Op = "append"
	OpUpdate  Op = "update"
	OpReplace Op = "replace"
	OpUpload  Op = "upload"
)

// firstDataRow mirrors a sheet with its header on row 1.
const firstDataRow = 2

type Blob struct {
	ID       string
	FolderID string
	Name     string
	Data     []byte
}

// Store is an in-process RecordStore and BlobStore. It backs local runs
// without Google credentials and lets tests inject failures.
type Store struct {
	mu     sync.RWMutex
	rows   []models.Participant
	blobs  []Blob
	faults map[Op]error
	writes int
}

var (
	_ attendance.RecordStore = (*Store)(nil)
	_ attendance.BlobStore   = (*Store)(nil)
)

// New creates a store seeded with rows.
func New(rows ...models.Participant) *Store {
	s := &Store{faults: map[Op]error{}}
	s.rows = append(s.rows, rows...)
	s.renumber()
	return s
}

// FailOn makes every following call of op return err. A nil err clears the fault.
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// Writes counts successful record writes (append, update, replace).
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Blobs returns a copy of every stored blob in upload order.
func (s *Store) Blobs() []Blob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Blob, len(s.blobs))
	copy(out, s.blobs)
	return out
}

func (s *Store) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.faults[OpList]; err != nil {
		return nil, err
	}
	out := make([]models.Participant, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *Store) AppendParticipant(ctx context.Context, p models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.faults[OpAppend]; err != nil {
		return err
	}
	p.Row = len(s.rows) + firstDataRow
	s.rows = append(s.rows, p)
	s.writes++
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, p models.Participant, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.faults[OpUpdate]; err != nil {
		return err
	}

	idx := p.Row - firstDataRow
	if p.Row == 0 {
		idx = s.indexOf(p.Name)
	}
	if idx < 0 || idx >= len(s.rows) {
		return fmt.Errorf("row %d: %w", p.Row, attendance.ErrConflict)
	}
	cur := s.rows[idx]
	if util.NormalizeName(cur.Name) != util.NormalizeName(p.Name) {
		return fmt.Errorf("row %d holds %q: %w", cur.Row, cur.Name, attendance.ErrConflict)
	}
	if !cur.Status.IsPending() {
		return fmt.Errorf("row %d is %s: %w", cur.Row, cur.Status, attendance.ErrConflict)
	}
	s.rows[idx].Status = status
	s.writes++
	return nil
}

// ReplaceParticipants swaps every row for ps. Used to seed or reset the store.
func (s *Store) ReplaceParticipants(ctx context.Context, ps []models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.faults[OpReplace]; err != nil {
		return err
	}
	s.rows = make([]models.Participant, len(ps))
	copy(s.rows, ps)
	s.renumber()
	s.writes++
	return nil
}

func (s *Store) Upload(ctx context.Context, folderID, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.faults[OpUpload]; err != nil {
		return "", err
	}
	b := Blob{
		ID:       uuid.New().String(),
		FolderID: folderID,
		Name:     name,
		Data:     append([]byte(nil), data...),
	}
	s.blobs = append(s.blobs, b)
	return b.ID, nil
}

func (s *Store) indexOf(name string) int {
	key := util.NormalizeName(name)
	for i, p := range s.rows {
		if util.NormalizeName(p.Name) == key {
			return i
		}
	}
	return -1
}

func (s *Store) renumber() {
	for i := range s.rows {
		s.rows[i].Row = i + firstDataRow
	}
}
