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
	"github.com/friendsincode/recruitd/internal/models"
)

func (a *API) handleInterviewersList(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active_only")
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	list, err := a.dir.ListInterviewers(r.Context(), directory.InterviewerFilter{ActiveOnly: activeOnly})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleInterviewersCreate(w http.ResponseWriter, r *http.Request) {
	var req directory.CreateInterviewerInput
	if err := decodeJSON(r, &req, false); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	iv, err := a.dir.CreateInterviewer(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, iv)
}

func (a *API) handleInterviewersGet(w http.ResponseWriter, r *http.Request) {
	iv, err := a.dir.GetInterviewer(r.Context(), chi.URLParam(r, "interviewerID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (a *API) handleRoomsList(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active_only")
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	list, err := a.dir.ListRooms(r.Context(), directory.RoomFilter{
		ActiveOnly: activeOnly,
		Type:       models.RoomType(q.Get("room_type")),
		EventID:    q.Get("event_id"),
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleRoomsCreate(w http.ResponseWriter, r *http.Request) {
	var req directory.CreateRoomInput
	if err := decodeJSON(r, &req, false); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	room, err := a.dir.CreateRoom(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (a *API) handleRoomsGet(w http.ResponseWriter, r *http.Request) {
	room, err := a.dir.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *API) handleInterviewsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := a.ledger.List(r.Context(), booking.Filter{
		CandidateID:   q.Get("candidate_id"),
		InterviewerID: q.Get("interviewer_id"),
		RoomID:        q.Get("room_id"),
		Date:          q.Get("scheduled_date"),
		DateFrom:      q.Get("start_date"),
		DateTo:        q.Get("end_date"),
		Status:        models.InterviewStatus(q.Get("status")),
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleInterviewsCreate(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	b, err := a.ledger.Create(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) handleInterviewsGet(w http.ResponseWriter, r *http.Request) {
	b, err := a.ledger.Get(r.Context(), chi.URLParam(r, "interviewID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) handleInterviewsCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interviewID")
	if _, err := a.ledger.Cancel(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Interview cancelled", "id": id})
}

type statusRequest struct {
	Status models.InterviewStatus `json:"status"`
	Notes  *string                `json:"notes"`
}

func (a *API) handleInterviewsStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	b, err := a.ledger.UpdateStatus(r.Context(), chi.URLParam(r, "interviewID"), req.Status, req.Notes)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) handleInterviewsReschedule(w http.ResponseWriter, r *http.Request) {
	var req booking.RescheduleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	b, err := a.ledger.Reschedule(r.Context(), chi.URLParam(r, "interviewID"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) handleConflictCheck(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if err := a.ledger.Check(r.Context(), req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"conflict": false})
}

func (a *API) handleAvailabilityInterviewer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := a.availability.ForInterviewer(r.Context(), chi.URLParam(r, "interviewerID"), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (a *API) handleAvailabilityRoom(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := a.availability.ForRoom(r.Context(), chi.URLParam(r, "roomID"), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (a *API) handleAvailabilitySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sum, err := a.availability.Summary(r.Context(), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
