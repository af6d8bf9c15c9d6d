package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/hirepipe/internal/api/middleware"
	"github.com/kiranshivaraju/hirepipe/internal/api/response"
)

const maxBodyBytes = 1 << 20

// uuidParam reads a UUID path parameter, writing a 400 when it is malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.BadRequest(w, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		response.BadRequest(w, "Invalid JSON body")
		return false
	}
	return true
}

func actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := mw.GetActorID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing actor", nil)
		return uuid.Nil, false
	}
	return id, true
}
