package handler

import (
	"net/http"

	"habitquest/api/internal/app"
	"habitquest/api/internal/fn"
)

var serve = fn.HTTP(app.OpData)

// Handler reads sheet rows with optional filters.
func Handler(w http.ResponseWriter, r *http.Request) {
	serve(w, r)
}
