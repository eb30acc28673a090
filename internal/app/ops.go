package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"habitquest/api/internal/sheets"
	"habitquest/api/internal/tabular"
)

// SheetOp names one of the four sheet operations. The hosted function shims
// and the local server all dispatch through HandleSheetOp, so the request
// and response shapes stay identical across deployment targets.
type SheetOp string

const (
	OpData   SheetOp = "data"
	OpAdd    SheetOp = "add"
	OpUpdate SheetOp = "update"
	OpDelete SheetOp = "delete"
)

// sheetRequest is the uniform body every shim receives. Values inside item
// and filters may arrive as JSON numbers or booleans from loosely-typed
// frontends; they are coerced to strings since a cell holds nothing else.
type sheetRequest struct {
	sheets.Credentials
	SheetName string         `json:"sheetName"`
	Filters   map[string]any `json:"filters"`
	Item      map[string]any `json:"item"`
	UUID      string         `json:"uuid"`
}

// HandleSheetOp parses the request body, runs the operation and returns the
// HTTP status plus the JSON payload to serialize. It never panics on bad
// input; malformed bodies come back as 400s.
func (s *Service) HandleSheetOp(ctx context.Context, op SheetOp, body []byte) (int, any) {
	var req sheetRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return http.StatusBadRequest, errorPayload("INVALID_BODY", "invalid JSON body")
		}
	}

	switch op {
	case OpData:
		result, err := s.ReadSheet(ctx, req.Credentials, req.SheetName, toFilterSpec(req.Filters))
		if err != nil {
			return errorResponse(err)
		}
		return http.StatusOK, result
	case OpAdd:
		result, err := s.CreateRow(ctx, req.Credentials, req.SheetName, toItem(req.Item))
		if err != nil {
			return errorResponse(err)
		}
		return http.StatusOK, result
	case OpUpdate:
		result, err := s.UpdateRow(ctx, req.Credentials, req.SheetName, req.UUID, toItem(req.Item))
		if err != nil {
			return errorResponse(err)
		}
		return http.StatusOK, result
	case OpDelete:
		result, err := s.DeleteRow(ctx, req.Credentials, req.SheetName, req.UUID)
		if err != nil {
			return errorResponse(err)
		}
		return http.StatusOK, result
	}
	return http.StatusNotFound, errorPayload("NOT_FOUND", "unknown operation")
}

func toFilterSpec(raw map[string]any) tabular.FilterSpec {
	if raw == nil {
		return nil
	}
	spec := make(tabular.FilterSpec, len(raw))
	for k, v := range raw {
		spec[k] = stringify(v)
	}
	return spec
}

func toItem(raw map[string]any) map[string]string {
	if raw == nil {
		return nil
	}
	item := make(map[string]string, len(raw))
	for k, v := range raw {
		item[k] = stringify(v)
	}
	return item
}

func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		// JSON numbers decode as float64; format without a trailing .0
		// for integral values so "3" stays "3".
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
