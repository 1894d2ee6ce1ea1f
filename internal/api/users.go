package api

import (
	"net/http"

	"github.com/fxnewsbot/backend/internal/domain"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in domain.UserCreate
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.users.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	users, err := s.users.ListPage(r.Context(), skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleActiveUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	users, err := s.users.ActiveUsers(r.Context(), skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUsersByCurrency(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ByCurrency(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUsersByImpact(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ByImpactLevel(r.Context(), r.PathValue("level"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathID(r, "telegramID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Cache sits in front of the store; a hit skips the round trip.
	if cached, err := s.cache.GetUser(r.Context(), telegramID); err == nil && cached != nil {
		writeJSON(w, http.StatusOK, cached)
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

	if err := s.cache.SetUser(r.Context(), u); err != nil {
		s.log.Warn("failed to cache user snapshot", "error", err)
	}

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathID(r, "telegramID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var upd domain.UserUpdate
	if err := decodeBody(w, r, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.users.Update(r.Context(), telegramID, upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		writeNotFound(w, "user")
		return
	}

	s.invalidateUser(r, telegramID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathID(r, "telegramID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var prefs domain.Preferences
	if err := decodeBody(w, r, &prefs); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.users.UpdatePreferences(r.Context(), telegramID, prefs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		writeNotFound(w, "user")
		return
	}

	s.invalidateUser(r, telegramID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathID(r, "telegramID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	found, err := s.users.Deactivate(r.Context(), telegramID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "user")
		return
	}

	s.invalidateUser(r, telegramID)
	writeJSON(w, http.StatusOK, map[string]bool{"deactivated": true})
}

func (s *Server) handleTouchUser(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathID(r, "telegramID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	found, err := s.users.UpdateLastActive(r.Context(), telegramID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"touched": true})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathID(r, "telegramID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	found, err := s.users.Delete(r.Context(), telegramID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "user")
		return
	}

	s.invalidateUser(r, telegramID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) invalidateUser(r *http.Request, telegramID int64) {
	if err := s.cache.InvalidateUser(r.Context(), telegramID); err != nil {
		s.log.Warn("failed to invalidate user cache", "error", err)
	}
}
