// Package fn adapts the sheet operations to single-function hosting: one
// http.HandlerFunc per op for Vercel, one Lambda handler per op for Netlify.
// Both delegate to the same service the local server uses.
package fn

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"

	"habitquest/api/internal/app"
	"habitquest/api/internal/cache"
	"habitquest/api/internal/config"
	"habitquest/api/internal/sheets"
)

var (
	defaultOnce    sync.Once
	defaultService *app.Service
)

// service builds the shared Service once per cold start. The memory cache is
// per-instance only; serverless replicas do not share it.
func service() *app.Service {
	defaultOnce.Do(func() {
		cfg := config.Load()
		defaultService = app.New(cfg, sheets.NewGoogleOpener(), cache.NewMemory(cfg.CacheTTL))
	})
	return defaultService
}

// HTTP returns the handler for one sheet op in the plain net/http shape
// Vercel functions use.
func HTTP(op app.SheetOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.SetCORSHeaders(w.Header(), "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if !app.MethodAllowed(op, r.Method) {
			writeStatus(w, http.StatusMethodNotAllowed, map[string]any{
				"code": "METHOD_NOT_ALLOWED", "error": "Method Not Allowed",
			})
			return
		}

		body, err := readAll(r)
		if err != nil {
			writeStatus(w, http.StatusBadRequest, map[string]any{
				"code": "INVALID_BODY", "error": "read request body",
			})
			return
		}

		status, payload := service().HandleSheetOp(r.Context(), op, body)
		writeStatus(w, status, payload)
	}
}

// Lambda returns the handler for one sheet op in the API-Gateway event
// shape Netlify functions use.
func Lambda(op app.SheetOp) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if request.HTTPMethod == http.MethodOptions {
			return lambdaResponse(http.StatusOK, nil), nil
		}
		if !app.MethodAllowed(op, request.HTTPMethod) {
			return lambdaResponse(http.StatusMethodNotAllowed, map[string]any{
				"code": "METHOD_NOT_ALLOWED", "error": "Method Not Allowed",
			}), nil
		}

		status, payload := service().HandleSheetOp(ctx, op, []byte(request.Body))
		return lambdaResponse(status, payload), nil
	}
}

func lambdaResponse(status int, payload any) events.APIGatewayProxyResponse {
	response := events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type",
			"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
			"Content-Type":                 "application/json",
		},
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err == nil {
			response.Body = string(body)
		}
	}
	return response
}

func writeStatus(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readAll(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
