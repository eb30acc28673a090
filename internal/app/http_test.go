package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(tabs ...*fakeSheet) *HTTPServer {
	svc, _ := newTestService(tabs...)
	return NewHTTPServer(svc, "*")
}

func postJSON(t *testing.T, server *HTTPServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

const credsJSON = `"sheetId":"sheet-1","clientEmail":"svc@test","privateKey":"key"`

func TestHealthEndpoint(t *testing.T) {
	rr := postJSON(t, newTestServer(), http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rr.Code)
	}
}

func TestPreflightReturnsEmptyOKWithCORS(t *testing.T) {
	rr := postJSON(t, newTestServer(), http.MethodOptions, "/api/sheets/data", "")

	if rr.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("preflight body = %q, want empty", rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestSheetsDataRoute(t *testing.T) {
	server := newTestServer(investmentSheet())

	for _, path := range []string{"/api/sheets/data", "/api/sheets-data"} {
		rr := postJSON(t, server, http.MethodPost, path,
			`{`+credsJSON+`,"sheetName":"INVESTMENT","filters":{"searchName":"app"}}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body %s", path, rr.Code, rr.Body.String())
		}

		var response struct {
			Data []map[string]string `json:"data"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(response.Data) != 1 || response.Data[0]["name"] != "Apple Inc" {
			t.Errorf("%s data = %v", path, response.Data)
		}
	}
}

func TestSheetsDataMissingCredentials(t *testing.T) {
	rr := postJSON(t, newTestServer(investmentSheet()), http.MethodPost, "/api/sheets/data",
		`{"sheetName":"INVESTMENT"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "CONFIG_MISSING") {
		t.Errorf("body = %s, want CONFIG_MISSING", rr.Body.String())
	}
}

func TestSheetsDataUnknownSheetIs404(t *testing.T) {
	rr := postJSON(t, newTestServer(investmentSheet()), http.MethodPost, "/api/sheets/data",
		`{`+credsJSON+`,"sheetName":"NOPE"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestSheetsAddReturnsGeneratedID(t *testing.T) {
	server := newTestServer(investmentSheet())
	rr := postJSON(t, server, http.MethodPost, "/api/sheets/add",
		`{`+credsJSON+`,"sheetName":"INVESTMENT","item":{"name":"Cherry Ltd","quantity":2,"price":10.5}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var response struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !response.Success || response.ID == "" {
		t.Errorf("add response = %+v", response)
	}

	// Numeric JSON values were coerced to plain cell strings.
	read := postJSON(t, server, http.MethodPost, "/api/sheets/data",
		`{`+credsJSON+`,"sheetName":"INVESTMENT","filters":{"id":"`+response.ID+`"}}`)
	if !strings.Contains(read.Body.String(), `"quantity":"2"`) {
		t.Errorf("numeric quantity not coerced: %s", read.Body.String())
	}
	if !strings.Contains(read.Body.String(), `"price":"10.5"`) {
		t.Errorf("numeric price not coerced: %s", read.Body.String())
	}
}

func TestSheetsUpdateAcceptsPut(t *testing.T) {
	server := newTestServer(investmentSheet())
	rr := postJSON(t, server, http.MethodPut, "/api/sheets/update",
		`{`+credsJSON+`,"sheetName":"INVESTMENT","uuid":"r1","item":{"name":"Apple Corp"}}`)
	if rr.Code != http.StatusOK {
		t.Errorf("PUT update status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestSheetsDeleteAcceptsDeleteMethod(t *testing.T) {
	server := newTestServer(investmentSheet())
	rr := postJSON(t, server, http.MethodDelete, "/api/sheets/delete",
		`{`+credsJSON+`,"sheetName":"INVESTMENT","uuid":"r2"}`)
	if rr.Code != http.StatusOK {
		t.Errorf("DELETE status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestSheetsDataRejectsWrongMethod(t *testing.T) {
	rr := postJSON(t, newTestServer(investmentSheet()), http.MethodGet, "/api/sheets/data", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestInvalidJSONBodyIs400(t *testing.T) {
	rr := postJSON(t, newTestServer(investmentSheet()), http.MethodPost, "/api/sheets/data", "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestGameRoutesDisabledWithoutStore(t *testing.T) {
	rr := postJSON(t, newTestServer(), http.MethodGet, "/api/game/habits", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestLoadMappingsEndpoint(t *testing.T) {
	codes := &fakeSheet{
		title:   "CODES",
		headers: []string{"code_id", "code_name", "group_code", "use_yn", "order"},
		rows: [][]string{
			{"ACCOUNT_TYPE_01", "ISA", "ACCOUNT_TYPE", "Y", "1"},
			{"ACCOUNT_TYPE_02", "Pension", "ACCOUNT_TYPE", "N", "2"},
		},
	}
	server := newTestServer(codes)

	rr := postJSON(t, server, http.MethodPost, "/api/mappings/load",
		`{`+credsJSON+`,"viewId":"ACCOUNTS_MANAGER"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var response MappingsResult
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	display := response.Display["account_type"]
	if display["ACCOUNT_TYPE_01"] != "ISA" {
		t.Errorf("display map = %v", display)
	}
	if _, ok := display["ACCOUNT_TYPE_02"]; ok {
		t.Errorf("use_yn=N row leaked into display map: %v", display)
	}
}

func TestInvestmentSummaryEndpoint(t *testing.T) {
	investments := &fakeSheet{
		title:   "INVESTMENT",
		headers: []string{"id", "date", "category", "name", "quantity", "price"},
		rows: [][]string{
			{"r1", "2024-01-05", "a1", "Apple Inc", "3", "100"},
		},
	}
	accounts := &fakeSheet{
		title:   "ACCOUNTS",
		headers: []string{"account_id", "account_name", "account_type"},
		rows:    [][]string{{"a1", "Brokerage", "ACCOUNT_TYPE_01"}},
	}
	server := newTestServer(investments, accounts)

	rr := postJSON(t, server, http.MethodPost, "/api/investment/summary", `{`+credsJSON+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"totalInvested":"300"`) {
		t.Errorf("summary body = %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Brokerage") {
		t.Errorf("account join missing: %s", rr.Body.String())
	}
}
