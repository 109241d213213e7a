// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/auth"
	"github.com/Shivanand-hulikatti/event-signup/internal/calendar"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/reservation"
	"github.com/Shivanand-hulikatti/event-signup/internal/service"
	"github.com/Shivanand-hulikatti/event-signup/internal/upload"
	"github.com/go-chi/chi/v5"
)

// EventHandler holds the HTTP handlers for the event catalog and signups.
type EventHandler struct {
	svc *service.EventService
	now func() time.Time
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc, now: time.Now}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// validationMessage strips the sentinel prefix from a validation error.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

// ListEvents handles GET /events
// Query: page, category, date, only_free.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	onlyFree, _ := strconv.ParseBool(q.Get("only_free"))

	events, err := h.svc.ListEvents(r.Context(), model.EventFilter{
		Page:     page,
		Category: q.Get("category"),
		Date:     q.Get("date"),
		OnlyFree: onlyFree,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		log.Printf("list events: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("get event: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CreateEvent handles POST /events
// Accepts a JSON body or a multipart form with an optional "image" file.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	var (
		req   model.CreateEventRequest
		image io.Reader
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, upload.MaxImageSize+(1<<20))
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		slots, err := strconv.Atoi(strings.TrimSpace(r.FormValue("slots")))
		if err != nil {
			writeError(w, http.StatusBadRequest, "slots must be a positive integer")
			return
		}
		req = model.CreateEventRequest{
			Title:       r.FormValue("title"),
			Category:    r.FormValue("category"),
			Date:        r.FormValue("date"),
			Time:        r.FormValue("time"),
			Slots:       slots,
			Description: r.FormValue("description"),
		}

		file, _, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			image = file
		case errors.Is(err, http.ErrMissingFile):
		default:
			writeError(w, http.StatusBadRequest, "invalid image: "+err.Error())
			return
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), caller, req, image)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "admin role required")
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, upload.ErrUnsupportedType), errors.Is(err, upload.ErrTooLarge):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("create event: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to create event")
		}
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ─── Signups ──────────────────────────────────────────────────────────────────

// Signup handles POST /events/{id}/signup
// POST with ?action=delete is treated as a withdrawal for clients that
// cannot send DELETE.
func (h *EventHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.URL.Query().Get("action"), "delete") {
		h.Withdraw(w, r)
		return
	}
	caller, _ := auth.IdentityFromContext(r.Context())

	err := h.svc.Enroll(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrAlreadyEnrolled):
			writeError(w, http.StatusConflict, "already signed up for this event")
		case errors.Is(err, reservation.ErrNoCapacity):
			writeError(w, http.StatusBadRequest, "no slots available")
		case errors.Is(err, reservation.ErrNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, validationMessage(err))
		default:
			writeError(w, http.StatusInternalServerError, "signup failed, try again later")
		}
		return
	}
	writeMessage(w, "signed up successfully")
}

// Withdraw handles DELETE /events/{id}/signup
func (h *EventHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	if err := h.svc.Withdraw(r.Context(), caller.UserID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		writeError(w, http.StatusInternalServerError, "withdrawal failed, try again later")
		return
	}
	writeMessage(w, "signup cancelled")
}

// MyEvents handles GET /users/me/events
func (h *EventHandler) MyEvents(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	events, err := h.svc.ListUserEvents(r.Context(), caller.UserID)
	if err != nil {
		log.Printf("list user events: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// MyCalendar handles GET /users/me/events.ics
func (h *EventHandler) MyCalendar(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	events, err := h.svc.ListUserEvents(r.Context(), caller.UserID)
	if err != nil {
		log.Printf("list user events: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	var buf bytes.Buffer
	if err := calendar.Write(&buf, events, h.now()); err != nil {
		if errors.Is(err, calendar.ErrNoEvents) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		log.Printf("write calendar: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	_, _ = buf.WriteTo(w)
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
