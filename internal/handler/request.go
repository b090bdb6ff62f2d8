package handler

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"pigmap/internal/httputil"
	"pigmap/internal/model"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// writeValidation writes the problems of a *model.ValidationError as a 400.
func writeValidation(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		httputil.WriteBadRequest(w, verr.Error())
		return
	}
	httputil.WriteBadRequest(w, "Invalid input")
}
