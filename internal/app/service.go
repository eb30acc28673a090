package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"habitquest/api/internal/cache"
	"habitquest/api/internal/config"
	"habitquest/api/internal/game"
	"habitquest/api/internal/sheets"
	"habitquest/api/internal/tabular"
)

// Service implements the four sheet operations (read, create, update,
// delete) as plain HTTP-agnostic functions. Every transport shim — the local
// server, the Vercel functions and the Netlify functions — goes through it.
//
// The backing worksheet is a shared mutable table with no transactions:
// update and delete read-then-locate-then-write, so a concurrent writer can
// be overwritten silently. A row that disappeared entirely surfaces as
// ROW_NOT_FOUND; a row whose other fields changed does not.
type Service struct {
	cfg    config.Config
	opener sheets.Opener
	cache  cache.Cache
	game   game.Store
}

func New(cfg config.Config, opener sheets.Opener, c cache.Cache) *Service {
	if c == nil {
		c = cache.NewMemory(cfg.CacheTTL)
	}
	return &Service{cfg: cfg, opener: opener, cache: c}
}

// NewWithGame additionally wires the Postgres-backed game store. The sheet
// ops never touch it; only the /api/game routes do.
func NewWithGame(cfg config.Config, opener sheets.Opener, c cache.Cache, g game.Store) *Service {
	s := New(cfg, opener, c)
	s.game = g
	return s
}

type ReadResult struct {
	Data []tabular.Row `json:"data"`
}

type CreateResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type MutateResult struct {
	Success bool `json:"success"`
}

// ReadSheet loads the worksheet, projects rows to the header set and applies
// the filter spec. Results are served from the read cache when fresh.
func (s *Service) ReadSheet(ctx context.Context, creds sheets.Credentials, sheetName string, filters tabular.FilterSpec) (ReadResult, error) {
	if err := requireCredentials(creds); err != nil {
		return ReadResult{}, err
	}

	key := cache.Key(creds.SpreadsheetID, sheetName, filters)
	if rows, ok := s.cache.Get(ctx, key); ok {
		return ReadResult{Data: rows}, nil
	}

	ws, err := s.worksheet(ctx, creds, sheetName)
	if err != nil {
		return ReadResult{}, err
	}
	records, err := ws.Rows(ctx)
	if err != nil {
		return ReadResult{}, upstream(err)
	}

	headers := ws.Headers()
	data := tabular.Query(tabular.ProjectAll(headers, records), headers, filters)
	if data == nil {
		data = []tabular.Row{}
	}

	s.cache.Set(ctx, key, data)
	return ReadResult{Data: data}, nil
}

// CreateRow appends the item with a freshly generated identity value,
// mirrored into every recognized id spelling so the sheet's actual identity
// column is populated whichever one it is.
func (s *Service) CreateRow(ctx context.Context, creds sheets.Credentials, sheetName string, item map[string]string) (CreateResult, error) {
	if err := requireCredentials(creds); err != nil {
		return CreateResult{}, err
	}
	if item == nil {
		return CreateResult{}, domainError(http.StatusBadRequest, "CONFIG_MISSING", "missing required field: item")
	}

	ws, err := s.worksheet(ctx, creds, sheetName)
	if err != nil {
		return CreateResult{}, err
	}

	newID := uuid.NewString()
	row := make(map[string]string, len(item)+4)
	for k, v := range item {
		row[k] = v
	}
	for _, spelling := range []string{"id", "ID", "uuid", "UUID"} {
		row[spelling] = newID
	}

	if err := ws.Append(ctx, row); err != nil {
		return CreateResult{}, upstream(err)
	}

	s.cache.Invalidate(ctx, creds.SpreadsheetID, sheetName)
	return CreateResult{Success: true, ID: newID}, nil
}

// UpdateRow merges item into the row matching id. The discovered identity
// header and the literal id/uuid keys are excluded from the merge, so a
// caller cannot reassign a row's identity even under another spelling.
func (s *Service) UpdateRow(ctx context.Context, creds sheets.Credentials, sheetName, id string, item map[string]string) (MutateResult, error) {
	if err := requireCredentials(creds); err != nil {
		return MutateResult{}, err
	}
	if id == "" || item == nil {
		return MutateResult{}, domainError(http.StatusBadRequest, "CONFIG_MISSING", "missing required field: uuid or item")
	}

	ws, err := s.worksheet(ctx, creds, sheetName)
	if err != nil {
		return MutateResult{}, err
	}
	index, row, idHeader, err := locateRow(ctx, ws, id)
	if err != nil {
		return MutateResult{}, err
	}

	for k, v := range item {
		if k == idHeader || k == "id" || k == "uuid" {
			continue
		}
		row[k] = v
	}
	if err := ws.UpdateRow(ctx, index, row); err != nil {
		return MutateResult{}, upstream(err)
	}

	s.cache.Invalidate(ctx, creds.SpreadsheetID, sheetName)
	return MutateResult{Success: true}, nil
}

// DeleteRow removes the row matching id entirely. There is no soft delete.
func (s *Service) DeleteRow(ctx context.Context, creds sheets.Credentials, sheetName, id string) (MutateResult, error) {
	if err := requireCredentials(creds); err != nil {
		return MutateResult{}, err
	}
	if id == "" {
		return MutateResult{}, domainError(http.StatusBadRequest, "CONFIG_MISSING", "missing required field: uuid")
	}

	ws, err := s.worksheet(ctx, creds, sheetName)
	if err != nil {
		return MutateResult{}, err
	}
	index, _, _, err := locateRow(ctx, ws, id)
	if err != nil {
		return MutateResult{}, err
	}

	if err := ws.DeleteRow(ctx, index); err != nil {
		return MutateResult{}, upstream(err)
	}

	s.cache.Invalidate(ctx, creds.SpreadsheetID, sheetName)
	return MutateResult{Success: true}, nil
}

func (s *Service) worksheet(ctx context.Context, creds sheets.Credentials, sheetName string) (sheets.Worksheet, error) {
	doc, err := s.opener.Open(ctx, creds)
	if err != nil {
		return nil, upstream(err)
	}
	ws, err := doc.Worksheet(ctx, sheetName)
	if err != nil {
		var nf *sheets.NotFoundError
		if errors.As(err, &nf) {
			return nil, domainError(http.StatusNotFound, "SHEET_NOT_FOUND", nf.Error())
		}
		return nil, upstream(err)
	}
	return ws, nil
}

// locateRow scans the worksheet for the data row whose identity-column value
// equals id, returning its index, its projected form and the identity header.
func locateRow(ctx context.Context, ws sheets.Worksheet, id string) (int, tabular.Row, string, error) {
	headers := ws.Headers()
	idHeader, ok := tabular.IdentityHeader(headers)
	if !ok {
		return 0, nil, "", domainError(http.StatusBadRequest, "MISSING_IDENTITY_COLUMN",
			"no id/ID/uuid/UUID/Uuid header on this sheet; add one to enable update and delete")
	}

	records, err := ws.Rows(ctx)
	if err != nil {
		return 0, nil, "", upstream(err)
	}
	for i, cells := range records {
		row := tabular.Project(headers, cells)
		if row[idHeader] == id {
			return i, row, idHeader, nil
		}
	}
	return 0, nil, "", domainError(http.StatusNotFound, "ROW_NOT_FOUND", "no row matches id "+id)
}

func requireCredentials(creds sheets.Credentials) error {
	if missing := creds.Missing(); len(missing) > 0 {
		return domainError(http.StatusBadRequest, "CONFIG_MISSING",
			"missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// upstream wraps any Sheets API failure. Nothing retries: quota and auth
// errors are terminal for the request.
func upstream(err error) error {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return domainError(http.StatusInternalServerError, "UPSTREAM_ERROR", err.Error())
}
