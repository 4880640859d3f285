package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// handleCreateSubmission accepts a multipart form with a "certificate" file
// and a "submissionData" JSON document.
func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Submission.MaxFileSize

	file, header, err := formFile(w, r, "certificate", limit)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = core.CertificateTooLarge(limit)
		}
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	var in core.SubmissionInput
	raw := strings.TrimSpace(r.FormValue("submissionData"))
	if raw == "" {
		s.respondError(w, r, &core.RequestValidationError{Message: "submissionData is required"})
		return
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		s.respondError(w, r, &core.RequestValidationError{Message: fmt.Sprintf("submissionData must be valid JSON: %v", err)})
		return
	}

	data, err := readAtMost(file, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sub, err := s.service.CreateSubmission(r.Context(), in, core.Certificate{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, sub)
}

// handleFindSubmissions lists submissions matching the query filters.
func (s *Server) handleFindSubmissions(w http.ResponseWriter, r *http.Request) {
	year, err := parseYearParam(r, "completionyear")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	subs, err := s.service.FindSubmissions(r.Context(), core.SubmissionFilter{
		PractitionerEmail: strings.TrimSpace(q.Get("practitioneremail")),
		CourseCode:        strings.TrimSpace(q.Get("coursecode")),
		MarketOffering:    q.Get("marketoffering"),
		LearningPillar:    q.Get("learningpillar"),
		CompletionYear:    year,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if subs == nil {
		subs = []core.Submission{}
	}
	writeJSON(w, subs)
}
