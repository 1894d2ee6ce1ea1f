package api

import (
	"net/http"
	"time"

	"github.com/fxnewsbot/backend/internal/apperr"
	"github.com/fxnewsbot/backend/internal/domain"
	"github.com/fxnewsbot/backend/internal/scraper"
)

func (s *Server) handleCreateNews(w http.ResponseWriter, r *http.Request) {
	var in domain.ForexNewsCreate
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.news.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.invalidateNews(r)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleImportNews(w http.ResponseWriter, r *http.Request) {
	var items []domain.ForexNewsCreate
	if err := decodeBody(w, r, &items); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(items) == 0 {
		s.writeError(w, r, apperr.NewValidationError("import payload must not be empty"))
		return
	}

	from, to := items[0].Date, items[0].Date
	for _, item := range items[1:] {
		if item.Date.Before(from) {
			from = item.Date
		}
		if item.Date.After(to) {
			to = item.Date
		}
	}

	importer := scraper.NewImporter(scraper.NewStaticSource("api", items), s.news, s.cache, s.log)
	created, updated, err := importer.Run(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"created": created, "updated": updated})
}

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	filters := map[string]any{}
	if currency := stringQuery(r, "currency"); currency != nil {
		filters["currency"] = *currency
	}
	if impact := stringQuery(r, "impact"); impact != nil {
		filters["impact_level"] = *impact
	}

	entries, err := s.news.List(r.Context(), skip, limit, filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleTodayNews(w http.ResponseWriter, r *http.Request) {
	currency := stringQuery(r, "currency")
	impact := stringQuery(r, "impact")
	day := time.Now().UTC()

	if cached, err := s.cache.GetDayNews(r.Context(), day, currency, impact); err == nil && cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	entries, err := s.news.Today(r.Context(), currency, impact)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.cache.SetDayNews(r.Context(), day, currency, impact, entries); err != nil {
		s.log.Warn("failed to cache day bucket", "error", err)
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleNewsForDate(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		s.writeError(w, r, apperr.NewValidationError("invalid date, expected YYYY-MM-DD"))
		return
	}

	currency := stringQuery(r, "currency")
	impact := stringQuery(r, "impact")

	if cached, err := s.cache.GetDayNews(r.Context(), day, currency, impact); err == nil && cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	entries, err := s.news.ForDate(r.Context(), day, currency, impact)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.cache.SetDayNews(r.Context(), day, currency, impact, entries); err != nil {
		s.log.Warn("failed to cache day bucket", "error", err)
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleNewsByCurrency(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.news.ByCurrency(r.Context(), r.PathValue("code"), skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleNewsByImpact(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.news.ByImpactLevel(r.Context(), r.PathValue("level"), skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleUpcomingNews(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	hours, err := intQuery(r, "hours", 24)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.news.Upcoming(r.Context(), hours, skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleNewsRange(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	from, err := dateQuery(r, "from")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := dateQuery(r, "to")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if from == nil || to == nil {
		s.writeError(w, r, apperr.NewValidationError("from and to query parameters are required"))
		return
	}

	entries, err := s.news.Range(r.Context(), *from, *to, stringQuery(r, "currency"), stringQuery(r, "impact"), skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSearchNews(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.news.Search(r.Context(), r.URL.Query().Get("q"), stringQuery(r, "currency"), stringQuery(r, "impact"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleNewsStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.news.Statistics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleUpdateNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var upd domain.ForexNewsUpdate
	if err := decodeBody(w, r, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.news.Update(r.Context(), id, upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		writeNotFound(w, "news entry")
		return
	}

	s.invalidateNews(r)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	found, err := s.news.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "news entry")
		return
	}

	s.invalidateNews(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) invalidateNews(r *http.Request) {
	if err := s.cache.InvalidateNews(r.Context()); err != nil {
		s.log.Warn("failed to invalidate news cache", "error", err)
	}
}
