package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agencyops/backend/services"
)

// errorResponse is the body of every failed request. Status is "fail" for
// caller mistakes and "error" for server side failures.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// statusFor maps a service error kind to an HTTP status
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindValidation, services.KindInvalidReference, services.KindInactive:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	case services.KindInvalidStateTransition:
		return http.StatusUnprocessableEntity
	case services.KindRateFetchFailure, services.KindMissingRate:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Operational failures are logged and their
// details kept out of the response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)

	if kind.IsClientError() {
		var e *services.Error
		errors.As(err, &e)
		respondJSON(w, status, errorResponse{Status: "fail", Message: e.Message})
		return
	}

	log.Printf("ERROR: %s %s: %v", r.Method, r.URL.Path, err)
	message := "Internal server error"
	if status == http.StatusBadGateway {
		message = "Exchange rates are currently unavailable"
	}
	respondJSON(w, status, errorResponse{Status: "error", Message: message})
}

func badRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Status: "fail", Message: message})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("Invalid request body: %v", err)
	}
	return nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n, nil
}

// queryBool parses an optional boolean query parameter
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", name)
	}
	return &b, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// queryDate parses an optional date query parameter given either as a plain
// date or as an RFC 3339 timestamp
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s must be a date (YYYY-MM-DD)", name)
}

// pagination reads the page and limit query parameters
func pagination(r *http.Request) (page, limit int, err error) {
	if page, err = queryInt(r, "page"); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
