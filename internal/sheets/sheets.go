// Package sheets wraps the Google Sheets API behind a small worksheet
// abstraction: credential normalization, tab resolution and raw row access.
package sheets

import (
	"context"
	"fmt"
	"strings"
)

// Credentials identify one spreadsheet plus the service account allowed to
// touch it. They arrive on every request; nothing is stored server-side.
type Credentials struct {
	SpreadsheetID string `json:"sheetId"`
	ClientEmail   string `json:"clientEmail"`
	PrivateKey    string `json:"privateKey"`
}

// Missing returns the names of required credential fields that are empty.
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.SpreadsheetID) == "" {
		missing = append(missing, "sheetId")
	}
	if strings.TrimSpace(c.ClientEmail) == "" {
		missing = append(missing, "clientEmail")
	}
	if strings.TrimSpace(c.PrivateKey) == "" {
		missing = append(missing, "privateKey")
	}
	return missing
}

// NormalizePrivateKey undoes the mangling a PEM key picks up on its way
// through env files and JSON bodies: surrounding quotes and literal \n
// escape sequences. Without this the JWT signer fails opaquely.
func NormalizePrivateKey(key string) string {
	key = strings.ReplaceAll(key, `"`, "")
	return strings.ReplaceAll(key, `\n`, "\n")
}

// Opener authenticates credentials into a spreadsheet handle.
type Opener interface {
	Open(ctx context.Context, creds Credentials) (Spreadsheet, error)
}

// Spreadsheet resolves worksheets (tabs) by title.
type Spreadsheet interface {
	// Worksheet resolves the named tab, or the first tab by position when
	// name is empty. A named tab that does not exist is an error — falling
	// back to another tab would silently corrupt data.
	Worksheet(ctx context.Context, name string) (Worksheet, error)
}

// Worksheet is one tab treated as a table: a header row followed by data rows.
type Worksheet interface {
	Title() string
	Headers() []string
	// Rows returns the data rows (everything below the header), each padded
	// or truncated to the header width.
	Rows(ctx context.Context) ([][]string, error)
	// Append writes one row keyed by header name. Keys absent from the
	// current header row cause new columns to be created first.
	Append(ctx context.Context, item map[string]string) error
	// UpdateRow rewrites the data row at the given zero-based index.
	UpdateRow(ctx context.Context, index int, row map[string]string) error
	// DeleteRow removes the data row at the given zero-based index.
	DeleteRow(ctx context.Context, index int) error
}

// NotFoundError reports a named worksheet absent from the spreadsheet.
type NotFoundError struct {
	Sheet string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("worksheet %q not found", e.Sheet)
}
