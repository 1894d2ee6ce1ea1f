package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fxnewsbot/backend/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps service errors onto HTTP statuses. Validation failures are
// the caller's fault; everything else is a backend problem.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case "E100":
			status = http.StatusBadRequest
		case "E300":
			status = http.StatusBadGateway
		}

		userMessage, retryable := s.errHandler.Handle(r.Context(), appErr)
		writeJSON(w, status, errorBody{
			Error:     userMessage,
			Code:      appErr.Code,
			Retryable: retryable,
		})
		return
	}

	s.log.Error("unhandled API error",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func writeNotFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: what + " not found"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.NewValidationError("request body is required")
		}
		return apperr.NewValidationError(fmt.Sprintf("malformed request body: %v", err))
	}

	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.NewValidationError(fmt.Sprintf("invalid %s: %q", name, raw))
	}
	return id, nil
}

// pagination reads skip and limit query parameters with sane bounds.
func pagination(r *http.Request) (skip, limit int, err error) {
	skip, err = intQuery(r, "skip", 0)
	if err != nil {
		return 0, 0, err
	}
	if skip < 0 {
		return 0, 0, apperr.NewValidationError("skip must not be negative")
	}

	limit, err = intQuery(r, "limit", 100)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > 1000 {
		return 0, 0, apperr.NewValidationError("limit must be between 1 and 1000")
	}

	return skip, limit, nil
}

func intQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.NewValidationError(fmt.Sprintf("invalid %s: %q", name, raw))
	}

	return v, nil
}

func stringQuery(r *http.Request, name string) *string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	return &raw
}

func dateQuery(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, apperr.NewValidationError(fmt.Sprintf("invalid %s: %q, expected YYYY-MM-DD or RFC 3339", name, raw))
		}
	}

	return &t, nil
}
