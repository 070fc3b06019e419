package handlers

import (
	"net/http"

	"agencyops/backend/middleware"
	"agencyops/backend/models"
	"agencyops/backend/services"

	"github.com/gorilla/mux"
)

// ProjectHandler serves project writes, staffing and per-project finances
type ProjectHandler struct {
	projects *services.Projects
	staffing *services.Staffing
	finance  *services.Finance
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects *services.Projects, staffing *services.Staffing, finance *services.Finance) *ProjectHandler {
	return &ProjectHandler{projects: projects, staffing: staffing, finance: finance}
}

// rosterRequest is the body of a staffing sync
type rosterRequest struct {
	Employees []models.RosterEntry `json:"employees"`
}

func (h *ProjectHandler) respondProject(w http.ResponseWriter, r *http.Request, id string, status int) {
	p, err := h.projects.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, status, p)
}

// List handles GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.ProjectFilter{
		Status:       q.Get("status"),
		Priority:     q.Get("priority"),
		ClientID:     q.Get("client"),
		DepartmentID: q.Get("department"),
		Search:       q.Get("search"),
	}

	includeInactive, err := queryBool(r, "includeInactive")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	f.IncludeInactive = includeInactive != nil && *includeInactive

	if f.Page, f.Limit, err = pagination(r); err != nil {
		badRequest(w, err.Error())
		return
	}

	page, err := h.projects.List(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Get handles GET /projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondProject(w, r, mux.Vars(r)["id"], http.StatusOK)
}

// Create handles POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ProjectInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}

	id, err := h.projects.Create(r.Context(), in, middleware.GetUserIDFromContext(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondProject(w, r, id, http.StatusCreated)
}

// Update handles PUT /projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var u models.ProjectUpdate
	if err := decodeJSON(r, &u); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.projects.Update(r.Context(), id, u); err != nil {
		respondError(w, r, err)
		return
	}
	h.respondProject(w, r, id, http.StatusOK)
}

// Delete handles DELETE /projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.SoftDelete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleActive handles PATCH /projects/{id}/toggle-active
func (h *ProjectHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	active, err := h.projects.ToggleActive(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "isActive": active})
}

// SyncMembers handles PUT /projects/{id}/members. The body is the complete
// desired roster.
func (h *ProjectHandler) SyncMembers(w http.ResponseWriter, r *http.Request) {
	var req rosterRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	result, err := h.staffing.SyncMembers(r.Context(), mux.Vars(r)["id"], req.Employees)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Financials handles GET /projects/{id}/financials
func (h *ProjectHandler) Financials(w http.ResponseWriter, r *http.Request) {
	report, err := h.finance.ProjectFinancials(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// EmployeeBreakdown handles GET /projects/{id}/employee-breakdown
func (h *ProjectHandler) EmployeeBreakdown(w http.ResponseWriter, r *http.Request) {
	report, err := h.finance.EmployeeBreakdown(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// PaymentHistory handles GET /projects/{id}/payments
func (h *ProjectHandler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	report, err := h.finance.ClientPaymentHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
