package api

import (
	"net/http"
	"time"
)

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	hours, err := intQuery(r, "hours", 2)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	center := time.Now().UTC()
	if at, err := dateQuery(r, "at"); err != nil {
		s.writeError(w, r, err)
		return
	} else if at != nil {
		center = *at
	}

	series, err := s.charts.Window(r.Context(), r.PathValue("code"), center, hours)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleChartCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"currencies": s.charts.Currencies()})
}

func (s *Server) handleEventChart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.news.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entry == nil {
		writeNotFound(w, "news entry")
		return
	}

	hours, err := intQuery(r, "hours", 2)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	series, err := s.charts.EventWindow(r.Context(), entry, hours)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, series)
}
