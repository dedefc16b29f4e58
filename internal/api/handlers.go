package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/starford/acadworld/internal/explorer"
)

const maxBody = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc Explorer
}

// NewHandler creates a new Handler.
func NewHandler(svc Explorer) *Handler {
	return &Handler{svc: svc}
}

// facultyName extracts the {name} path segment verbatim. chi matches on
// RawPath when the request carries one, and then the segment is still escaped.
func facultyName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

// parseLimit reads ?limit=, falling back to def when absent.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if err := validate.Struct(limitQuery{Limit: n}); err != nil {
		return 0, errors.New("limit must be between 1 and 100")
	}
	return n, nil
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

// ListFaculty handles GET /api/faculty.
func (h *Handler) ListFaculty(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.FacultyNames(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FacultyListResponse{Faculty: names})
}

// FacultyView handles GET /api/faculty/{name}. Store failures do not fail
// the request; they are listed in the view's failures.
func (h *Handler) FacultyView(w http.ResponseWriter, r *http.Request) {
	name := facultyName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("faculty name is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.View(r.Context(), name))
}

// TopCoauthors handles GET /api/faculty/{name}/coauthors?limit=N.
func (h *Handler) TopCoauthors(w http.ResponseWriter, r *http.Request) {
	name := facultyName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("faculty name is required"))
		return
	}
	limit, err := parseLimit(r, explorer.DefaultCoauthorLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rows, err := h.svc.TopCoauthors(r.Context(), name, limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CoauthorsResponse{Faculty: name, Coauthors: rows})
}

// TopInstitutes handles GET /api/institutes/top?limit=N.
func (h *Handler) TopInstitutes(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, explorer.DefaultInstituteLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rows, err := h.svc.TopInstitutes(r.Context(), limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InstitutesResponse{Institutes: rows})
}

// AddNote handles POST /api/faculty/{name}/notes.
// Responds 201 when a note was stored and 200 for blank text.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	name := facultyName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("faculty name is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(validationMessage(err)))
		return
	}

	out, err := h.svc.AddNote(r.Context(), name, req.Text)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	status := http.StatusOK
	if out.Status == "written" {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

// MarkReviewed handles POST /api/faculty/{name}/reviews.
func (h *Handler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	name := facultyName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("faculty name is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req MarkReviewedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(validationMessage(err)))
		return
	}

	out, err := h.svc.MarkReviewed(r.Context(), name, req.PaperID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready: 200 only when every store answers.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	stores := h.svc.Health(r.Context())
	resp := HealthResponse{Status: "ok", Stores: stores}
	status := http.StatusOK
	for _, s := range stores {
		if !s.OK {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
