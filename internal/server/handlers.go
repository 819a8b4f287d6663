package server

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// handleRoot answers the API banner
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Welcome to the Game Stats API"})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.running.Load(),
	})
}

// handleStats runs a harvest and answers with its Results Set.
// Only one harvest runs at a time; the run outlives a disconnected client so
// its results are still persisted.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	noCache(w)
	if !s.running.CompareAndSwap(false, true) {
		s.errResponse(w, ErrRunInProgress)
		return
	}
	defer s.running.Store(false)

	s.log.Info("starting harvest via API")
	result, err := s.runner.Run(context.WithoutCancel(r.Context()), s.source)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.log.Info("harvest via API complete", "run", result.RunID.String(), "accounts", len(result.Reports))
	s.dataResponse(w, result.Reports)
}

// handleResults returns the latest persisted Results Set
func (s *Server) handleResults(w http.ResponseWriter, _ *http.Request) {
	reports, err := s.results.ReadResults()
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.dataResponse(w, reports)
}

// handleUserStreaks returns the streak block of one account from the latest results
func (s *Server) handleUserStreaks(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		s.errResponse(w, &ErrValidation{Field: "email", Message: "Email is required"})
		return
	}

	_, streaks, err := s.results.FindStreaks(email)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.dataResponse(w, streaks)
}

// handleListReports lists stored daily reports, newest first
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if !s.requireReports(w) {
		return
	}
	limit := 30
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.errResponse(w, &ErrValidation{Field: "limit", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	list, err := s.reports.ListDailyReports(r.Context(), limit)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.dataResponse(w, list)
}

// handleGetReport returns the stored daily report for a date
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if !s.requireReports(w) {
		return
	}
	day, ok := s.parseDay(w, r.PathValue("date"))
	if !ok {
		return
	}

	report, err := s.reports.GetDailyReport(r.Context(), day)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if report == nil {
		s.errorResponse(w, http.StatusNotFound, "No report for "+day.Format(time.DateOnly))
		return
	}
	s.dataResponse(w, report)
}

// handleGetStreaksReport returns the stored daily streaks report for a date
func (s *Server) handleGetStreaksReport(w http.ResponseWriter, r *http.Request) {
	if !s.requireReports(w) {
		return
	}
	day, ok := s.parseDay(w, r.PathValue("date"))
	if !ok {
		return
	}

	report, err := s.reports.GetDailyStreaksReport(r.Context(), day)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if report == nil {
		s.errorResponse(w, http.StatusNotFound, "No streaks report for "+day.Format(time.DateOnly))
		return
	}
	s.dataResponse(w, report)
}

func (s *Server) requireReports(w http.ResponseWriter) bool {
	if s.reports == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Daily reports require a database")
		return false
	}
	return true
}

// parseDay accepts YYYY-MM-DD or "today"
func (s *Server) parseDay(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "today" {
		return s.now(), true
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		s.errResponse(w, &ErrValidation{Field: "date", Message: "date must be YYYY-MM-DD or today"})
		return time.Time{}, false
	}
	return day, true
}
