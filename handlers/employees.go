package handlers

import (
	"net/http"

	"agencyops/backend/models"
	"agencyops/backend/services"

	"github.com/gorilla/mux"
)

// EmployeeHandler serves employee provisioning and the directory
type EmployeeHandler struct {
	employees *services.Employees
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(employees *services.Employees) *EmployeeHandler {
	return &EmployeeHandler{employees: employees}
}

func (h *EmployeeHandler) respondEmployee(w http.ResponseWriter, r *http.Request, id string, status int) {
	e, err := h.employees.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, status, e)
}

// List handles GET /employees
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.EmployeeFilter{
		DepartmentID:   q.Get("department"),
		PositionID:     q.Get("position"),
		SkillID:        q.Get("skill"),
		EmploymentType: q.Get("employmentType"),
		Name:           q.Get("name"),
	}

	var err error
	if f.IsActive, err = queryBool(r, "isActive"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if f.Page, f.Limit, err = pagination(r); err != nil {
		badRequest(w, err.Error())
		return
	}

	page, err := h.employees.List(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Get handles GET /employees/{id}
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondEmployee(w, r, mux.Vars(r)["id"], http.StatusOK)
}

// Create handles POST /employees. The new employee receives their
// temporary credentials by email.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.EmployeeInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}

	id, err := h.employees.Create(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondEmployee(w, r, id, http.StatusCreated)
}

// Update handles PUT /employees/{id}
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var u models.EmployeeUpdate
	if err := decodeJSON(r, &u); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.employees.Update(r.Context(), id, u); err != nil {
		respondError(w, r, err)
		return
	}
	h.respondEmployee(w, r, id, http.StatusOK)
}

// ToggleActive handles PATCH /employees/{id}/toggle-active
func (h *EmployeeHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	active, err := h.employees.ToggleActive(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "isActive": active})
}

// Delete handles DELETE /employees/{id}
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.employees.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
