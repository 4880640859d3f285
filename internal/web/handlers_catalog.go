package web

import (
	"net/http"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// handleRefreshCatalog reconciles the catalog against the uploaded CSV feed
// and returns the run report.
func (s *Server) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Upload.MaxFileSize
	file, header, err := formFile(w, r, "file", limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	if header.Size > limit {
		s.respondError(w, r, &http.MaxBytesError{Limit: limit})
		return
	}

	report, err := s.service.RefreshCatalog(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// handleListRuns returns recent refresh runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultRunHistoryLimit)

	runs, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []core.RefreshRun{}
	}
	writeJSON(w, runs)
}

// handleListCatalog lists catalog entries matching the query filters.
func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	isActive, err := parseBoolParam(r, "isactive")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	entries, err := s.service.ListCatalog(r.Context(), core.CatalogFilter{
		MarketOffering: q.Get("marketoffering"),
		LearningPillar: q.Get("learningpillar"),
		IsActive:       isActive,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.CourseCatalogEntry{}
	}
	writeJSON(w, entries)
}
