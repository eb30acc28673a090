package sheets

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const spreadsheetScope = "https://www.googleapis.com/auth/spreadsheets"

// GoogleOpener authenticates per-request service-account credentials and
// loads spreadsheet metadata. Stateless; safe for concurrent use.
type GoogleOpener struct{}

func NewGoogleOpener() *GoogleOpener {
	return &GoogleOpener{}
}

func (*GoogleOpener) Open(ctx context.Context, creds Credentials) (Spreadsheet, error) {
	conf := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(NormalizePrivateKey(creds.PrivateKey)),
		Scopes:     []string{spreadsheetScope},
		TokenURL:   google.JWTTokenURL,
	}
	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	meta, err := svc.Spreadsheets.Get(creds.SpreadsheetID).
		Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("load spreadsheet info: %w", err)
	}

	return &googleSpreadsheet{svc: svc, id: creds.SpreadsheetID, meta: meta}, nil
}

type googleSpreadsheet struct {
	svc  *sheetsapi.Service
	id   string
	meta *sheetsapi.Spreadsheet
}

func (s *googleSpreadsheet) Worksheet(ctx context.Context, name string) (Worksheet, error) {
	var props *sheetsapi.SheetProperties
	if name == "" {
		if len(s.meta.Sheets) == 0 {
			return nil, &NotFoundError{Sheet: "(first)"}
		}
		props = s.meta.Sheets[0].Properties
	} else {
		for _, sh := range s.meta.Sheets {
			if sh.Properties != nil && sh.Properties.Title == name {
				props = sh.Properties
				break
			}
		}
		if props == nil {
			return nil, &NotFoundError{Sheet: name}
		}
	}

	ws := &googleWorksheet{svc: s.svc, spreadsheetID: s.id, props: props}
	if err := ws.loadHeaders(ctx); err != nil {
		return nil, err
	}
	return ws, nil
}

type googleWorksheet struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	props         *sheetsapi.SheetProperties
	headers       []string
}

func (w *googleWorksheet) Title() string {
	return w.props.Title
}

func (w *googleWorksheet) Headers() []string {
	return w.headers
}

func (w *googleWorksheet) loadHeaders(ctx context.Context) error {
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, w.rangeRef("1:1")).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("load header row: %w", err)
	}
	w.headers = nil
	if len(resp.Values) > 0 {
		for _, cell := range resp.Values[0] {
			w.headers = append(w.headers, cellString(cell))
		}
	}
	return nil
}

func (w *googleWorksheet) Rows(ctx context.Context) ([][]string, error) {
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, w.rangeRef("")).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	if len(resp.Values) <= 1 {
		return nil, nil
	}

	rows := make([][]string, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		cells := make([]string, len(w.headers))
		for i := range w.headers {
			if i < len(raw) {
				cells[i] = cellString(raw[i])
			}
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func (w *googleWorksheet) Append(ctx context.Context, item map[string]string) error {
	if err := w.ensureColumns(ctx, item); err != nil {
		return err
	}

	values := make([]any, len(w.headers))
	for i, header := range w.headers {
		values[i] = item[header]
	}
	_, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, w.rangeRef(""), &sheetsapi.ValueRange{
		Values: [][]any{values},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// ensureColumns widens the header row with any item keys the sheet lacks,
// so identity mirroring works whichever id spelling the operator chose.
func (w *googleWorksheet) ensureColumns(ctx context.Context, item map[string]string) error {
	known := make(map[string]bool, len(w.headers))
	for _, h := range w.headers {
		known[h] = true
	}
	var extra []string
	for key := range item {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)

	headers := append(append([]string{}, w.headers...), extra...)
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	_, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, w.rangeRef("1:1"), &sheetsapi.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("extend header row: %w", err)
	}
	w.headers = headers
	return nil
}

func (w *googleWorksheet) UpdateRow(ctx context.Context, index int, row map[string]string) error {
	values := make([]any, len(w.headers))
	for i, header := range w.headers {
		values[i] = row[header]
	}
	// Data rows start at sheet row 2, below the header.
	ref := w.rangeRef(fmt.Sprintf("A%d:%s%d", index+2, columnLabel(len(w.headers)), index+2))
	_, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, ref, &sheetsapi.ValueRange{
		Values: [][]any{values},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row: %w", err)
	}
	return nil
}

func (w *googleWorksheet) DeleteRow(ctx context.Context, index int) error {
	_, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    w.props.SheetId,
					Dimension:  "ROWS",
					StartIndex: int64(index + 1),
					EndIndex:   int64(index + 2),
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	return nil
}

// rangeRef builds an A1 reference scoped to this tab. An empty suffix
// addresses the whole tab.
func (w *googleWorksheet) rangeRef(suffix string) string {
	quoted := "'" + strings.ReplaceAll(w.props.Title, "'", "''") + "'"
	if suffix == "" {
		return quoted
	}
	return quoted + "!" + suffix
}

// columnLabel converts a 1-based column count to its A1 letter ("AA" for 27).
func columnLabel(n int) string {
	label := ""
	for n > 0 {
		n--
		label = string(rune('A'+n%26)) + label
		n /= 26
	}
	return label
}

func cellString(cell any) string {
	if cell == nil {
		return ""
	}
	if s, ok := cell.(string); ok {
		return s
	}
	return fmt.Sprint(cell)
}
