package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		// Preflight: CORS headers are already set by the middleware.
		w.WriteHeader(http.StatusOK)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	// Sheet ops are served under both the local shape (/api/sheets/data)
	// and the hosted shape (/api/sheets-data) so a frontend built for
	// either deployment target works against this server unchanged.
	if op, ok := sheetOpFromPath(r.URL.Path); ok {
		if !MethodAllowed(op, r.Method) {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method Not Allowed")
			return
		}
		body, err := readBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		status, payload := s.service.HandleSheetOp(r.Context(), op, body)
		writeJSON(w, status, payload)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/mappings/load" {
		s.handleLoadMappings(w, r)
		return
	}

	if r.URL.Path == "/api/investment/summary" && (r.Method == http.MethodPost || r.Method == http.MethodGet) {
		s.handleInvestmentSummary(w, r)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/api/game/") {
		s.handleGame(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not Found")
}

func (s *HTTPServer) handleLoadMappings(w http.ResponseWriter, r *http.Request) {
	var body mappingsRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	result, err := s.service.LoadMappings(r.Context(), body.Credentials, body.ViewID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleInvestmentSummary(w http.ResponseWriter, r *http.Request) {
	var body summaryRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	result, err := s.service.InvestmentSummary(r.Context(), body.Credentials, body.InvestmentSheet, body.AccountsSheet)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleGame(w http.ResponseWriter, r *http.Request) {
	if s.service.game == nil {
		writeError(w, http.StatusServiceUnavailable, "GAME_STORE_DISABLED", "game store is not configured")
		return
	}

	ctx := r.Context()
	path := strings.TrimPrefix(r.URL.Path, "/api/game")

	switch {
	case r.Method == http.MethodGet && path == "/habits":
		habits, err := s.service.game.ListHabits(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"habits": habits})

	case r.Method == http.MethodPost && path == "/habits":
		var body struct {
			Name     string `json:"name"`
			Icon     string `json:"icon"`
			XPReward int    `json:"xpReward"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusBadRequest, "CONFIG_MISSING", "missing required field: name")
			return
		}
		habit, err := s.service.game.CreateHabit(ctx, body.Name, body.Icon, body.XPReward)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, habit)

	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/habits/"):
		id := strings.TrimPrefix(path, "/habits/")
		if err := s.service.deleteHabit(ctx, id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/habits/") && strings.HasSuffix(path, "/log"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/habits/"), "/log")
		var body struct {
			DoneOn string `json:"doneOn"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		if body.DoneOn == "" {
			body.DoneOn = time.Now().Format("2006-01-02")
		}
		entry, err := s.service.game.LogHabit(ctx, id, body.DoneOn)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case r.Method == http.MethodGet && path == "/shop":
		items, err := s.service.game.ListShopItems(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case r.Method == http.MethodGet && path == "/inventory":
		items, err := s.service.game.ListInventory(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case r.Method == http.MethodPost && path == "/inventory":
		var body struct {
			ItemID   string `json:"itemId"`
			Quantity int    `json:"quantity"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		if body.ItemID == "" {
			writeError(w, http.StatusBadRequest, "CONFIG_MISSING", "missing required field: itemId")
			return
		}
		if body.Quantity == 0 {
			body.Quantity = 1
		}
		item, err := s.service.game.AddInventory(ctx, body.ItemID, body.Quantity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, item)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not Found")
	}
}

func sheetOpFromPath(path string) (SheetOp, bool) {
	switch path {
	case "/api/sheets/data", "/api/sheets-data":
		return OpData, true
	case "/api/sheets/add", "/api/sheets-add":
		return OpAdd, true
	case "/api/sheets/update", "/api/sheets-update":
		return OpUpdate, true
	case "/api/sheets/delete", "/api/sheets-delete":
		return OpDelete, true
	}
	return "", false
}

// MethodAllowed mirrors the hosted functions: every op accepts POST, update
// additionally PUT and delete additionally DELETE.
func MethodAllowed(op SheetOp, method string) bool {
	if method == http.MethodPost {
		return true
	}
	switch op {
	case OpUpdate:
		return method == http.MethodPut
	case OpDelete:
		return method == http.MethodDelete
	}
	return false
}

type requestIDKey struct{}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		SetCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// SetCORSHeaders applies the response headers shared by every transport
// shim, serverless ones included.
func SetCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorPayload(code, message))
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, payload := errorResponse(err)
	writeJSON(w, status, payload)
}

func errorPayload(code, message string) map[string]any {
	return map[string]any{
		"code":  code,
		"error": message,
	}
}

// errorResponse converts any service error into the HTTP envelope. Unknown
// errors are reported as upstream failures with the message passed through.
func errorResponse(err error) (int, map[string]any) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Status, errorPayload(de.Code, de.Message)
	}
	return http.StatusInternalServerError, errorPayload("UPSTREAM_ERROR", err.Error())
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body")
	}
	return body, nil
}
