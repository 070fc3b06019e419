package handlers

import (
	"net/http"

	"agencyops/backend/middleware"
	"agencyops/backend/services"

	"github.com/gorilla/mux"
)

// UserHandler serves the caller's profile and role administration
type UserHandler struct {
	users *services.Users
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.Users) *UserHandler {
	return &UserHandler{users: users}
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), middleware.GetUserIDFromContext(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// SetCurrency handles PUT /users/me/currency
func (h *UserHandler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Currency string `json:"currency"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	c, err := h.users.SetPreferredCurrency(r.Context(), middleware.GetUserIDFromContext(r), req.Currency)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"currency": string(c)})
}

// SetRole handles PUT /users/{id}/role
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.users.SetRole(r.Context(), middleware.GetUserIDFromContext(r), id, req.Role); err != nil {
		respondError(w, r, err)
		return
	}

	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// Delete handles DELETE /users/{id}. The account is anonymized, not removed.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == middleware.GetUserIDFromContext(r) {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Status: "fail", Message: "You cannot delete your own account"})
		return
	}

	if err := h.users.SoftDelete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
