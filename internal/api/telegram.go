package api

import (
	"net/http"

	"github.com/fxnewsbot/backend/internal/apperr"
)

func (s *Server) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	var in struct {
		URL string `json:"url"`
	}
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.URL == "" {
		s.writeError(w, r, apperr.NewValidationError("webhook url is required"))
		return
	}

	if err := s.tg.SetWebhook(r.Context(), in.URL); err != nil {
		s.writeError(w, r, apperr.NewExternalAPIError("telegram", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"registered": true})
}

func (s *Server) handleWebhookInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.tg.WebhookInfo(r.Context())
	if err != nil {
		s.writeError(w, r, apperr.NewExternalAPIError("telegram", err))
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TelegramID int64  `json:"telegram_id"`
		Text       string `json:"text"`
	}
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.TelegramID == 0 || in.Text == "" {
		s.writeError(w, r, apperr.NewValidationError("telegram_id and text are required"))
		return
	}

	if err := s.tg.SendMessage(r.Context(), in.TelegramID, in.Text); err != nil {
		s.writeError(w, r, apperr.NewExternalAPIError("telegram", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}
