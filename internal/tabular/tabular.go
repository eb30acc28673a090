// Package tabular implements the schemaless row model used on top of
// spreadsheet tabs: header-order projection, identity-column discovery and
// the filter/query engine.
package tabular

import (
	"sort"
	"strings"
	"time"
)

// Row maps a header name to the cell value in that column. Cells that are
// missing in the backing sheet are projected to "", never left absent.
type Row map[string]string

// Project builds a Row containing exactly the given headers. Extra cells
// beyond the header width are dropped.
func Project(headers []string, cells []string) Row {
	row := make(Row, len(headers))
	for i, header := range headers {
		if i < len(cells) {
			row[header] = cells[i]
		} else {
			row[header] = ""
		}
	}
	return row
}

// ProjectAll projects every raw cell slice against the same header list.
func ProjectAll(headers []string, records [][]string) []Row {
	rows := make([]Row, 0, len(records))
	for _, cells := range records {
		rows = append(rows, Project(headers, cells))
	}
	return rows
}

// identityCandidates is the priority order for identity-column discovery.
// Sheets created by different operators label the key column inconsistently;
// the first candidate present wins and any later match is ignored.
var identityCandidates = []string{"id", "ID", "uuid", "UUID", "Uuid"}

// IdentityHeader returns the header acting as the row's unique key, or
// ok=false when the sheet has no recognized identity column.
func IdentityHeader(headers []string) (string, bool) {
	for _, candidate := range identityCandidates {
		for _, header := range headers {
			if header == candidate {
				return candidate, true
			}
		}
	}
	return "", false
}

// IdentityCandidates returns the recognized identity-header spellings. Create
// mirrors a fresh identity value into every one of them so the sheet's actual
// spelling is populated whichever it is.
func IdentityCandidates() []string {
	out := make([]string, len(identityCandidates))
	copy(out, identityCandidates)
	return out
}

// FilterSpec maps field names to constraints. The value "all" (or "") means
// no constraint on that field; startDate/endDate are reserved and bound the
// conventional date column.
type FilterSpec map[string]string

// SentinelAll is the reserved filter value meaning "no constraint".
const SentinelAll = "all"

const (
	keyStartDate = "startDate"
	keyEndDate   = "endDate"
	dateHeader   = "date"
)

// MatchKind selects the comparison semantics for a filter field.
type MatchKind int

const (
	// MatchUnclassified fields match exactly when the field is a known
	// header, and are silently ignored otherwise.
	MatchUnclassified MatchKind = iota
	MatchSubstring
	MatchExact
	MatchAlias
)

type fieldRule struct {
	Kind MatchKind
	// Alias targets, tried in order; the first one present in the headers
	// receives the substring match.
	Targets []string
}

// fieldRules drives per-field filter dispatch. Filter specs are shared
// across differently-shaped sheets, so classification is by field name
// rather than per-sheet configuration.
var fieldRules = map[string]fieldRule{
	"account_name":    {Kind: MatchSubstring},
	"account_company": {Kind: MatchSubstring},
	"name":            {Kind: MatchSubstring},
	"account_type":    {Kind: MatchExact},
	"category":        {Kind: MatchExact},
	"searchName":      {Kind: MatchAlias, Targets: []string{"name", "account_name"}},
}

// ClassifyField reports the match semantics applied to a filter field.
func ClassifyField(name string) MatchKind {
	if rule, ok := fieldRules[name]; ok {
		return rule.Kind
	}
	return MatchUnclassified
}

// Query applies the filter spec to projected rows and returns the result in
// default order: descending by date when a date column exists, sheet order
// otherwise. The input slice is never mutated.
func Query(rows []Row, headers []string, spec FilterSpec) []Row {
	result := make([]Row, len(rows))
	copy(result, rows)

	hasDate := hasHeader(headers, dateHeader)

	if hasDate {
		if start := spec[keyStartDate]; start != "" {
			result = keep(result, func(r Row) bool { return r[dateHeader] >= start })
		}
		if end := spec[keyEndDate]; end != "" {
			result = keep(result, func(r Row) bool { return r[dateHeader] <= end })
		}
	}

	for key, value := range spec {
		if key == keyStartDate || key == keyEndDate {
			continue
		}
		if value == "" || value == SentinelAll {
			continue
		}
		result = applyField(result, headers, key, value)
	}

	if hasDate {
		sortByDateDesc(result)
	}
	return result
}

func applyField(rows []Row, headers []string, key, value string) []Row {
	rule := fieldRules[key]
	switch rule.Kind {
	case MatchSubstring:
		return keep(rows, substringMatch(key, value))
	case MatchExact:
		return keep(rows, func(r Row) bool { return r[key] == value })
	case MatchAlias:
		for _, target := range rule.Targets {
			if hasHeader(headers, target) {
				return keep(rows, substringMatch(target, value))
			}
		}
		return rows
	default:
		if hasHeader(headers, key) {
			return keep(rows, func(r Row) bool { return r[key] == value })
		}
		// Unknown filter keys are ignored on purpose: filter specs are
		// shared across sheets that don't all carry the same columns.
		return rows
	}
}

func substringMatch(field, value string) func(Row) bool {
	term := strings.ToLower(value)
	return func(r Row) bool {
		cell := r[field]
		return cell != "" && strings.Contains(strings.ToLower(cell), term)
	}
}

func keep(rows []Row, pred func(Row) bool) []Row {
	out := rows[:0:0]
	for _, row := range rows {
		if pred(row) {
			out = append(out, row)
		}
	}
	return out
}

func hasHeader(headers []string, name string) bool {
	for _, header := range headers {
		if header == name {
			return true
		}
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

func parseDate(value string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	// Unparsable dates sort last (zero time).
	return time.Time{}
}

func sortByDateDesc(rows []Row) {
	type keyed struct {
		row   Row
		stamp time.Time
	}
	pairs := make([]keyed, len(rows))
	for i, row := range rows {
		pairs[i] = keyed{row: row, stamp: parseDate(row[dateHeader])}
	}
	// Stable sort keeps sheet order for equal dates.
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].stamp.After(pairs[j].stamp)
	})
	for i := range pairs {
		rows[i] = pairs[i].row
	}
}
