package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

func (s *Server) handleCreateMarketOffering(w http.ResponseWriter, r *http.Request) {
	var in core.MarketOfferingInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}

	mo, err := s.service.RegisterMarketOffering(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, mo)
}

func (s *Server) handleListMarketOfferings(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListMarketOfferings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []core.MarketOffering{}
	}
	writeJSON(w, list)
}

func (s *Server) handleCreateLearningPillar(w http.ResponseWriter, r *http.Request) {
	var in core.LearningPillarInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}

	lp, err := s.service.RegisterLearningPillar(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, lp)
}

// handleListLearningPillars lists pillars, optionally only those under the
// market offering given by ?marketofferingid=.
func (s *Server) handleListLearningPillars(w http.ResponseWriter, r *http.Request) {
	var moID int64
	if v := r.URL.Query().Get("marketofferingid"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			s.respondError(w, r, &core.RequestValidationError{Message: "marketofferingid must be a positive integer"})
			return
		}
		moID = id
	}

	list, err := s.service.ListLearningPillars(r.Context(), moID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []core.LearningPillar{}
	}
	writeJSON(w, list)
}
