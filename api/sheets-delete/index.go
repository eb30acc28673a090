package handler

import (
	"net/http"

	"habitquest/api/internal/app"
	"habitquest/api/internal/fn"
)

var serve = fn.HTTP(app.OpDelete)

// Handler removes the row matching the given uuid.
func Handler(w http.ResponseWriter, r *http.Request) {
	serve(w, r)
}
