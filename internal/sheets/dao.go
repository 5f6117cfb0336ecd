package sheets

import (
	"context"
	"fmt"
	"strings"

	sheetsv4 "google.golang.org/api/sheets/v4"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/models"
	"presenca-bot/internal/util"
)

// Columns of the participants sheet, in order A:D.
var Header = []interface{}{"Nome", "Celular", "Tipo", "Status"}

const (
	colName = iota
	colPhone
	colType
	colStatus
)

const statusColumn = "D"

var _ attendance.RecordStore = (*Client)(nil)

func (c *Client) a1(r string) string { return c.sheet + "!" + r }

func (c *Client) readRange(ctx context.Context, r string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, c.a1(r)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) appendRow(ctx context.Context, row []interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A:D"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (c *Client) updateRange(ctx context.Context, r string, values [][]interface{}) error {
	vr := &sheetsv4.ValueRange{Values: values}
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, c.a1(r), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// ---------- Participants ----------

func (c *Client) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	values, err := c.readRange(ctx, "A:D")
	if err != nil {
		return nil, fmt.Errorf("read participants: %w", err)
	}
	out := []models.Participant{}
	// header row at index 0
	for i := 1; i < len(values); i++ {
		p, ok := parseRow(values[i], i+1)
		if !ok {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) AppendParticipant(ctx context.Context, p models.Participant) error {
	if err := c.appendRow(ctx, formatRow(p)); err != nil {
		return fmt.Errorf("append participant: %w", err)
	}
	return nil
}

// UpdateStatus re-reads p's row and patches only its status cell. The row
// must still hold p in the PENDING state.
func (c *Client) UpdateStatus(ctx context.Context, p models.Participant, status models.Status) error {
	if p.Row < 2 {
		return fmt.Errorf("participant %q has no sheet row: %w", p.Name, attendance.ErrConflict)
	}
	values, err := c.readRange(ctx, fmt.Sprintf("A%d:D%d", p.Row, p.Row))
	if err != nil {
		return fmt.Errorf("read row %d: %w", p.Row, err)
	}
	var cur models.Participant
	if len(values) > 0 {
		cur, _ = parseRow(values[0], p.Row)
	}
	if util.NormalizeName(cur.Name) != util.NormalizeName(p.Name) {
		return fmt.Errorf("row %d holds %q: %w", p.Row, cur.Name, attendance.ErrConflict)
	}
	if !cur.Status.IsPending() {
		return fmt.Errorf("row %d is %s: %w", p.Row, cur.Status, attendance.ErrConflict)
	}

	a1 := fmt.Sprintf("%s%d", statusColumn, p.Row)
	if err := c.updateRange(ctx, a1, [][]interface{}{{status.Label()}}); err != nil {
		return fmt.Errorf("update status %s: %w", a1, err)
	}
	return nil
}

// ReplaceParticipants writes the header plus ps from A1 and then clears the
// rows left below them. It is a maintenance primitive for admin tooling; the
// workflow only appends and patches. A failed write leaves the old rows in place.
func (c *Client) ReplaceParticipants(ctx context.Context, ps []models.Participant) error {
	values := [][]interface{}{Header}
	for _, p := range ps {
		values = append(values, formatRow(p))
	}
	if err := c.updateRange(ctx, "A1", values); err != nil {
		return fmt.Errorf("write participants: %w", err)
	}

	rest := fmt.Sprintf("A%d:D", len(values)+1)
	if _, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, c.a1(rest), &sheetsv4.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rest, err)
	}
	return nil
}

// EnsureHeaders writes the header row when the sheet is empty.
func (c *Client) EnsureHeaders(ctx context.Context) error {
	values, err := c.readRange(ctx, "A1:D1")
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(values) > 0 && len(values[0]) > 0 {
		return nil
	}
	return c.updateRange(ctx, "A1:D1", [][]interface{}{Header})
}

// ---------- helpers ----------

func parseRow(row []interface{}, rowNum int) (models.Participant, bool) {
	name := get(row, colName)
	if strings.TrimSpace(name) == "" {
		return models.Participant{}, false
	}
	return models.Participant{
		Name:   name,
		Phone:  get(row, colPhone),
		Type:   models.ParticipantType(get(row, colType)),
		Status: models.ParseStatus(get(row, colStatus)),
		Row:    rowNum,
	}, true
}

func formatRow(p models.Participant) []interface{} {
	status := p.Status
	if status == "" {
		status = models.StatusPending
	}
	return []interface{}{p.Name, p.Phone, string(p.Type), status.Label()}
}

func get(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprint(row[idx])
}
