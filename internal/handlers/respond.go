// Package handlers holds the JSON plumbing shared by every HTTP handler.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/services"
	"github.com/mandadito/backend/internal/store"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as {"error":{"kind","message"}}. Errors outside the
// taxonomy are logged and hidden behind a generic message.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	if errors.Is(err, store.ErrNotFound) && apperr.KindOf(err) == apperr.KindInternal {
		err = apperr.Wrap(apperr.KindNotFound, err, "not found")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		if log == nil {
			log = slog.Default()
		}
		log.Error("request failed", "error", err)
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{Kind: apperr.KindInternal, Message: "internal error"}})
		return
	}
	WriteJSON(w, appErr.StatusCode(), errorBody{Error: errorDetail{Kind: appErr.Kind, Message: appErr.Message}})
}

// Decode reads the body, checks it against schema (skipped when v is nil or
// schema is empty) and unmarshals it into dst.
func Decode(r *http.Request, v *services.Validator, schema string, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperr.Validation("cannot read request body")
	}
	if v != nil && schema != "" {
		if err := v.Validate(schema, body); err != nil {
			if errors.Is(err, services.ErrValidation) {
				return apperr.Wrap(apperr.KindValidation, err, err.Error())
			}
			return err
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Validation("invalid JSON")
	}
	return nil
}

// PathID parses a positive integer path parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

// QueryInt returns the integer query parameter name, or def when absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("invalid %s", name)
	}
	return n, nil
}
