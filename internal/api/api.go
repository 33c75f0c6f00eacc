/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/audit"
	"github.com/friendsincode/recruitd/internal/availability"
	"github.com/friendsincode/recruitd/internal/booking"
	"github.com/friendsincode/recruitd/internal/directory"
	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/pipeline"
	"github.com/friendsincode/recruitd/internal/workflow"
)

// API exposes HTTP handlers.
type API struct {
	dir          *directory.Service
	ledger       *booking.Ledger
	availability *availability.Service
	pipeline     *pipeline.Orchestrator
	catalogue    *workflow.Catalogue
	auditSvc     *audit.Service
	logger       zerolog.Logger
}

// New creates the API router wrapper.
func New(dir *directory.Service, ledger *booking.Ledger, avail *availability.Service, orch *pipeline.Orchestrator, catalogue *workflow.Catalogue, auditSvc *audit.Service, logger zerolog.Logger) *API {
	return &API{
		dir:          dir,
		ledger:       ledger,
		availability: avail,
		pipeline:     orch,
		catalogue:    catalogue,
		auditSvc:     auditSvc,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts API routes on provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/scheduling", func(r chi.Router) {
			r.Route("/interviewers", func(r chi.Router) {
				r.Get("/", a.handleInterviewersList)
				r.Post("/", a.handleInterviewersCreate)
				r.Get("/{interviewerID}", a.handleInterviewersGet)
			})

			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", a.handleRoomsList)
				r.Post("/", a.handleRoomsCreate)
				r.Get("/{roomID}", a.handleRoomsGet)
			})

			r.Route("/interviews", func(r chi.Router) {
				r.Get("/", a.handleInterviewsList)
				r.Post("/", a.handleInterviewsCreate)
				r.Route("/{interviewID}", func(r chi.Router) {
					r.Get("/", a.handleInterviewsGet)
					r.Delete("/", a.handleInterviewsCancel)
					r.Put("/status", a.handleInterviewsStatus)
					r.Post("/reschedule", a.handleInterviewsReschedule)
				})
			})

			r.Post("/conflicts/check", a.handleConflictCheck)

			r.Route("/availability", func(r chi.Router) {
				r.Get("/interviewers/{interviewerID}", a.handleAvailabilityInterviewer)
				r.Get("/rooms/{roomID}", a.handleAvailabilityRoom)
				r.Get("/summary", a.handleAvailabilitySummary)
			})
		})

		r.Route("/candidates", func(r chi.Router) {
			r.Post("/", a.handleCandidatesCreate)
			r.Route("/{candidateID}", func(r chi.Router) {
				r.Get("/", a.handleCandidatesGet)
				r.Get("/history", a.handleCandidatesHistory)
				r.Get("/actions", a.handleCandidateActions)
				r.Post("/actions/{action}", a.handleCandidateAction)
				r.Post("/interviews", a.handleCandidateScheduleInterview)
				r.Post("/interviews/{interviewID}/complete", a.handleCandidateCompleteInterview)
				r.Post("/reject", a.handleCandidateReject)
			})
		})

		r.Get("/workflow/stages", a.handleWorkflowStages)
		r.Get("/audit", a.handleAuditList)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleWorkflowStages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.catalogue.Stages())
}

// decodeJSON reads the request body into dst. An empty body is accepted
// when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return errs.Invalid("body", "invalid JSON: %v", err)
	}
	return nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errs.Invalid(key, "must be a boolean, got %q", v)
	}
	return b, nil
}

type errorResponse struct {
	Error                string `json:"error"`
	Detail               string `json:"detail"`
	Field                string `json:"field,omitempty"`
	ConflictingBookingID string `json:"conflicting_booking_id,omitempty"`
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a storage failure.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		conflict   *errs.ConflictError
		validation *errs.ValidationError
	)
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:                "scheduling_conflict",
			Detail:               err.Error(),
			ConflictingBookingID: conflict.BookingID,
		})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Detail: err.Error(), Field: validation.Field})
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, errs.ErrIllegalTransition):
		writeError(w, http.StatusUnprocessableEntity, "illegal_transition", err.Error())
	case errors.Is(err, errs.ErrMissingInput):
		writeError(w, http.StatusUnprocessableEntity, "missing_input", err.Error())
	default:
		a.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "db_error", "storage unavailable, retry later")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{Error: code, Detail: detail})
}
