package mapping

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"habitquest/api/internal/tabular"
)

type fakeReader struct {
	sheets map[string][]tabular.Row
	err    map[string]error
	calls  int
}

func (f *fakeReader) ReadSheet(_ context.Context, sheetName string, _ tabular.FilterSpec) ([]tabular.Row, error) {
	f.calls++
	if err := f.err[sheetName]; err != nil {
		return nil, err
	}
	return f.sheets[sheetName], nil
}

func codesReader() *fakeReader {
	return &fakeReader{
		sheets: map[string][]tabular.Row{
			"CODES": {
				{"code_id": "ACCOUNT_TYPE_02", "code_name": "Pension", "group_code": "ACCOUNT_TYPE", "use_yn": "Y", "order": "2"},
				{"code_id": "ACCOUNT_TYPE_01", "code_name": "ISA", "group_code": "ACCOUNT_TYPE", "use_yn": "Y", "order": "1"},
				{"code_id": "ACCOUNT_TYPE_03", "code_name": "Retired", "group_code": "ACCOUNT_TYPE", "use_yn": "N", "order": "3"},
				{"code_id": "CURRENCY_01", "code_name": "KRW", "group_code": "CURRENCY", "use_yn": "Y", "order": "1"},
			},
		},
	}
}

func TestLoadAppliesStaticFiltersAndOrder(t *testing.T) {
	r := NewResolver(codesReader(), nil)
	if err := r.Load(context.Background(), "ACCOUNTS_MANAGER"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	options := r.Options("account_type")
	if len(options) != 2 {
		t.Fatalf("got %d options, want 2 (use_yn=N and other groups excluded)", len(options))
	}
	if options[0]["code_id"] != "ACCOUNT_TYPE_01" || options[1]["code_id"] != "ACCOUNT_TYPE_02" {
		t.Errorf("options not ordered by order column: %v", options)
	}
}

func TestDisplayValue(t *testing.T) {
	r := NewResolver(codesReader(), nil)
	if err := r.Load(context.Background(), "ACCOUNTS_MANAGER"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := r.DisplayValue("account_type", "ACCOUNT_TYPE_01"); got != "ISA" {
		t.Errorf("DisplayValue = %q, want ISA", got)
	}
	// Missing entries fall back to the raw value, never error or blank.
	if got := r.DisplayValue("account_type", "UNKNOWN_CODE"); got != "UNKNOWN_CODE" {
		t.Errorf("fallback DisplayValue = %q, want UNKNOWN_CODE", got)
	}
	// Columns without a rule pass values through.
	if got := r.DisplayValue("note", "hello"); got != "hello" {
		t.Errorf("unmapped column DisplayValue = %q, want hello", got)
	}
}

func TestLoadSkipsBrokenRefSheet(t *testing.T) {
	reader := codesReader()
	reader.err = map[string]error{"accounts_master": errors.New("quota exceeded")}

	rules := RuleSet{
		"VIEW": {
			{TargetColumn: "account_type", RefSheet: "CODES", RefKey: "code_id", DisplayColumn: "code_name"},
			{TargetColumn: "category", RefSheet: "accounts_master", RefKey: "account_id", DisplayColumn: "account_name"},
		},
	}
	r := NewResolver(reader, rules)
	if err := r.Load(context.Background(), "VIEW"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(r.Options("account_type")) == 0 {
		t.Error("healthy rule was not loaded")
	}
	if got := r.DisplayValue("category", "acc-1"); got != "acc-1" {
		t.Errorf("broken rule should fall back to raw value, got %q", got)
	}
}

func TestReloadRefreshesData(t *testing.T) {
	reader := codesReader()
	r := NewResolver(reader, nil)
	ctx := context.Background()

	if err := r.Load(ctx, "ACCOUNTS_MANAGER"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	reader.sheets["CODES"] = append(reader.sheets["CODES"], tabular.Row{
		"code_id": "ACCOUNT_TYPE_09", "code_name": "Crypto", "group_code": "ACCOUNT_TYPE", "use_yn": "Y", "order": "9",
	})

	// Cache invalidation is manual: the new code appears only after reload.
	if got := r.DisplayValue("account_type", "ACCOUNT_TYPE_09"); got != "ACCOUNT_TYPE_09" {
		t.Errorf("resolver refreshed without reload, got %q", got)
	}
	if err := r.Load(ctx, "ACCOUNTS_MANAGER"); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := r.DisplayValue("account_type", "ACCOUNT_TYPE_09"); got != "Crypto" {
		t.Errorf("after reload DisplayValue = %q, want Crypto", got)
	}
}

func TestLoadRulesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	contents := `
ACCOUNTS_MANAGER:
  - targetColumn: account_type
    refSheet: CODES
    refKey: code_id
    displayColumn: code_name
    filters:
      group_code: ACCOUNT_TYPE
      use_yn: "Y"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	got := rules["ACCOUNTS_MANAGER"]
	if len(got) != 1 {
		t.Fatalf("got %d rules, want 1", len(got))
	}
	if got[0].RefSheet != "CODES" || got[0].Filters["use_yn"] != "Y" {
		t.Errorf("rule parsed wrong: %+v", got[0])
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing rules file")
	}
}

func TestRowsWithoutOrderColumnSortLast(t *testing.T) {
	reader := &fakeReader{
		sheets: map[string][]tabular.Row{
			"accounts_master": {
				{"account_id": "a2", "account_name": "Savings"},
				{"account_id": "a1", "account_name": "Brokerage", "order": "1"},
			},
		},
	}
	r := NewResolver(reader, nil)
	if err := r.Load(context.Background(), "INVESTMENT_LIST"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	options := r.Options("category")
	if len(options) != 2 || options[0]["account_id"] != "a1" {
		t.Errorf("ordered rows should precede unordered ones: %v", options)
	}
}
