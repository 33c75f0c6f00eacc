/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/recruitd/internal/booking"
	"github.com/friendsincode/recruitd/internal/directory"
	"github.com/friendsincode/recruitd/internal/pipeline"
)

func (a *API) handleCandidatesCreate(w http.ResponseWriter, r *http.Request) {
	var req directory.CreateCandidateInput
	if err := decodeJSON(r, &req, false); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	c, err := a.dir.CreateCandidate(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) handleCandidatesGet(w http.ResponseWriter, r *http.Request) {
	c, err := a.dir.GetCandidate(r.Context(), chi.URLParam(r, "candidateID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleCandidatesHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "candidateID")
	if _, err := a.dir.GetCandidate(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	history, err := a.dir.StageHistory(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (a *API) handleCandidateActions(w http.ResponseWriter, r *http.Request) {
	actions, err := a.pipeline.AvailableActions(r.Context(), chi.URLParam(r, "candidateID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (a *API) handleCandidateAction(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ActionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	res, err := a.pipeline.PerformAction(r.Context(), chi.URLParam(r, "candidateID"), chi.URLParam(r, "action"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleCandidateScheduleInterview(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	res, err := a.pipeline.ScheduleInterview(r.Context(), chi.URLParam(r, "candidateID"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleCandidateCompleteInterview(w http.ResponseWriter, r *http.Request) {
	var req pipeline.CompleteRequest
	if err := decodeJSON(r, &req, true); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	res, err := a.pipeline.CompleteInterview(r.Context(), chi.URLParam(r, "candidateID"), chi.URLParam(r, "interviewID"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type rejectRequest struct {
	Reason      string `json:"reason"`
	PerformedBy string `json:"performed_by"`
}

func (a *API) handleCandidateReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeJSON(r, &req, true); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	res, err := a.pipeline.RejectAtStage(r.Context(), chi.URLParam(r, "candidateID"), req.Reason, req.PerformedBy)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
