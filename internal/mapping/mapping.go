// Package mapping resolves foreign-key-like references between sheets: a
// code or id stored in one tab is looked up in a reference tab and replaced
// with a display value. The backing store cannot enforce referential
// integrity, so lookups fall back to the raw value instead of erroring.
package mapping

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"habitquest/api/internal/tabular"
)

// Rule declares one lookup: values of TargetColumn in the main dataset are
// matched against RefKey in RefSheet and shown as DisplayColumn. Filters
// restricts which reference rows are eligible (exact match only).
type Rule struct {
	TargetColumn  string            `yaml:"targetColumn" json:"targetColumn"`
	RefSheet      string            `yaml:"refSheet" json:"refSheet"`
	RefKey        string            `yaml:"refKey" json:"refKey"`
	DisplayColumn string            `yaml:"displayColumn" json:"displayColumn"`
	Filters       map[string]string `yaml:"filters,omitempty" json:"filters,omitempty"`
}

// RuleSet groups rules by view id, the identifier of the screen that needs
// them.
type RuleSet map[string][]Rule

// DefaultRules mirrors the shipped configuration: account-type codes mapped
// through the CODES tab, investment categories joined to the accounts
// master.
func DefaultRules() RuleSet {
	return RuleSet{
		"ACCOUNTS_MANAGER": {
			{
				TargetColumn:  "account_type",
				RefSheet:      "CODES",
				RefKey:        "code_id",
				DisplayColumn: "code_name",
				Filters: map[string]string{
					"group_code": "ACCOUNT_TYPE",
					"use_yn":     "Y",
				},
			},
		},
		"INVESTMENT_LIST": {
			{
				TargetColumn:  "category",
				RefSheet:      "accounts_master",
				RefKey:        "account_id",
				DisplayColumn: "account_name",
			},
		},
	}
}

// LoadRules reads a rule set from a YAML file, keyed by view id.
func LoadRules(path string) (RuleSet, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping rules: %w", err)
	}
	var rules RuleSet
	if err := yaml.Unmarshal(contents, &rules); err != nil {
		return nil, fmt.Errorf("parse mapping rules: %w", err)
	}
	return rules, nil
}

// Reader provides reference-sheet rows. Satisfied by the CRUD service
// directly on the server, or by the HTTP client package remotely.
type Reader interface {
	ReadSheet(ctx context.Context, sheetName string, filters tabular.FilterSpec) ([]tabular.Row, error)
}

// Resolver caches reference data per target column. Invalidation is manual:
// callers re-invoke Load after writing to a reference sheet.
type Resolver struct {
	reader Reader
	rules  RuleSet

	mu      sync.RWMutex
	display map[string]map[string]string
	options map[string][]tabular.Row
}

func NewResolver(reader Reader, rules RuleSet) *Resolver {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Resolver{
		reader:  reader,
		rules:   rules,
		display: make(map[string]map[string]string),
		options: make(map[string][]tabular.Row),
	}
}

// Load fetches every reference sheet declared for the view and rebuilds the
// lookup maps. A rule whose reference sheet fails to load is skipped so one
// broken tab does not blank every dropdown on the screen.
func (r *Resolver) Load(ctx context.Context, viewID string) error {
	for _, rule := range r.rules[viewID] {
		rows, err := r.reader.ReadSheet(ctx, rule.RefSheet, nil)
		if err != nil {
			log.Printf("mapping: load ref sheet %s for %s failed: %v", rule.RefSheet, rule.TargetColumn, err)
			continue
		}

		eligible := rows[:0:0]
		for _, row := range rows {
			if matchesFilters(row, rule.Filters) {
				eligible = append(eligible, row)
			}
		}
		sortByOrder(eligible)

		lookup := make(map[string]string, len(eligible))
		for _, row := range eligible {
			if key := row[rule.RefKey]; key != "" {
				lookup[key] = row[rule.DisplayColumn]
			}
		}

		r.mu.Lock()
		r.display[rule.TargetColumn] = lookup
		r.options[rule.TargetColumn] = eligible
		r.mu.Unlock()
	}
	return nil
}

// DisplayValue translates a stored value into its display form. Unmapped
// values (stale references, deleted lookup rows) come back unchanged.
func (r *Resolver) DisplayValue(targetColumn, raw string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lookup, ok := r.display[targetColumn]
	if !ok {
		return raw
	}
	if display, ok := lookup[raw]; ok && display != "" {
		return display
	}
	return raw
}

// Options returns the eligible reference rows for a target column, in
// order, for populating selection dropdowns.
func (r *Resolver) Options(targetColumn string) []tabular.Row {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.options[targetColumn]
}

// Lookup returns a copy of the key-to-display table for a target column.
func (r *Resolver) Lookup(targetColumn string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.display[targetColumn]))
	for k, v := range r.display[targetColumn] {
		out[k] = v
	}
	return out
}

// Rules returns the declared rules for a view.
func (r *Resolver) Rules(viewID string) []Rule {
	return r.rules[viewID]
}

func matchesFilters(row tabular.Row, filters map[string]string) bool {
	for key, want := range filters {
		if row[key] != want {
			return false
		}
	}
	return true
}

// defaultOrder ranks rows without a parseable order column after every
// ranked row.
var defaultOrder = decimal.NewFromInt(999)

func sortByOrder(rows []tabular.Row) {
	keys := make([]decimal.Decimal, len(rows))
	for i, row := range rows {
		keys[i] = defaultOrder
		if raw := row["order"]; raw != "" {
			if parsed, err := decimal.NewFromString(raw); err == nil {
				keys[i] = parsed
			}
		}
	}
	indices := make([]int, len(rows))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return keys[indices[a]].LessThan(keys[indices[b]])
	})
	sorted := make([]tabular.Row, len(rows))
	for i, idx := range indices {
		sorted[i] = rows[idx]
	}
	copy(rows, sorted)
}
