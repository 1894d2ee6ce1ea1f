package api

import (
	"net/http"
	"time"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
)

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var in domain.NotificationCreate
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.notifications.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCreateEventReminder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID        int64     `json:"user_id"`
		EventID       int64     `json:"event_id"`
		EventTime     time.Time `json:"event_time"`
		MinutesBefore int       `json:"minutes_before"`
	}
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.notifications.CreateEventReminder(r.Context(), in.UserID, in.EventID, in.EventTime, in.MinutesBefore)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCreateDigest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID     int64     `json:"user_id"`
		DigestTime time.Time `json:"digest_time"`
	}
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.notifications.CreateDigest(r.Context(), in.UserID, in.DigestTime)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		records, err := s.notifications.ByStatus(r.Context(), status, skip, limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	records, err := s.notifications.List(r.Context(), skip, limit, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePendingNotifications(w http.ResponseWriter, r *http.Request) {
	records, err := s.notifications.Pending(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDueNotifications(w http.ResponseWriter, r *http.Request) {
	records, err := s.notifications.Due(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleNotificationStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.notifications.Statistics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleNotificationsByUser(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathID(r, "telegramID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	skip, limit, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.GetByTelegramID(r.Context(), telegramID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if u == nil {
		writeNotFound(w, "user")
		return
	}

	records, err := s.notifications.ByUser(r.Context(), u.ID, skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleDeliverDue pushes every due notification through Telegram. Reminders
// already claimed by another replica are counted as skipped; recipients that
// no longer exist flip the record to failed.
func (s *Server) handleDeliverDue(w http.ResponseWriter, r *http.Request) {
	due, err := s.notifications.Due(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var sent, skipped, failed int
	for i := range due {
		n := &due[i]

		recipient, err := s.users.GetByID(r.Context(), n.UserID)
		if err != nil {
			failed++
			continue
		}
		if recipient == nil {
			if _, err := s.notifications.MarkFailed(r.Context(), n.ID, "recipient no longer exists"); err != nil {
				s.log.Warn("failed to mark notification failed", "notification_id", n.ID, "error", err)
			}
			failed++
			continue
		}

		delivered, err := s.tg.Deliver(r.Context(), n, recipient.TelegramID)
		if err != nil {
			if _, markErr := s.notifications.MarkFailed(r.Context(), n.ID, err.Error()); markErr != nil {
				s.log.Warn("failed to mark notification failed", "notification_id", n.ID, "error", markErr)
			}
			failed++
			continue
		}
		if !delivered {
			skipped++
			continue
		}

		if _, err := s.notifications.MarkSent(r.Context(), n.ID); err != nil {
			s.log.Warn("failed to mark notification sent", "notification_id", n.ID, "error", err)
		}
		sent++
	}

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent, "skipped": skipped, "failed": failed})
}

func (s *Server) handleGetNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	record, err := s.notifications.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if record == nil {
		writeNotFound(w, "notification")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleMarkSent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	found, err := s.notifications.MarkSent(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusSent)})
}

func (s *Server) handleMarkFailed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var in struct {
		Error string `json:"error"`
	}
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Error == "" {
		s.writeError(w, r, apperr.NewValidationError("error message is required"))
		return
	}

	found, err := s.notifications.MarkFailed(r.Context(), id, in.Error)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusFailed)})
}

func (s *Server) handleCancelNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	found, err := s.notifications.Cancel(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	found, err := s.notifications.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
