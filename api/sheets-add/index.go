package handler

import (
	"net/http"

	"habitquest/api/internal/app"
	"habitquest/api/internal/fn"
)

var serve = fn.HTTP(app.OpAdd)

// Handler appends one row and returns its generated id.
func Handler(w http.ResponseWriter, r *http.Request) {
	serve(w, r)
}
