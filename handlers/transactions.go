package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"agencyops/backend/middleware"
	"agencyops/backend/models"
	"agencyops/backend/services"

	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TransactionHandler serves the ledger endpoints
type TransactionHandler struct {
	ledger *services.Ledger
	now    func() time.Time
}

// NewTransactionHandler creates a new ledger handler
func NewTransactionHandler(ledger *services.Ledger) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, now: time.Now}
}

func transactionFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	f := models.TransactionFilter{
		Type:          q.Get("type"),
		Category:      q.Get("category"),
		Status:        q.Get("status"),
		PaymentMethod: q.Get("paymentMethod"),
		ProjectID:     q.Get("project"),
		ClientID:      q.Get("client"),
		EmployeeID:    q.Get("employee"),
	}

	var err error
	if f.StartDate, err = queryDate(r, "startDate"); err != nil {
		return f, err
	}
	if f.EndDate, err = queryDate(r, "endDate"); err != nil {
		return f, err
	}
	if f.Page, f.Limit, err = pagination(r); err != nil {
		return f, err
	}
	return f, nil
}

// respondCreated loads the new transaction and writes it with 201
func (h *TransactionHandler) respondCreated(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// List handles GET /transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	page, err := h.ledger.List(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Get handles GET /transactions/{id}
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.ledger.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Create handles POST /transactions
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}

	id, err := h.ledger.Create(r.Context(), in, middleware.GetUserIDFromContext(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCreated(w, r, id)
}

// RecordClientPayment handles POST /transactions/client-payment
func (h *TransactionHandler) RecordClientPayment(w http.ResponseWriter, r *http.Request) {
	var in models.ClientPaymentInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}

	id, err := h.ledger.RecordClientPayment(r.Context(), in, middleware.GetUserIDFromContext(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCreated(w, r, id)
}

// RecordEmployeePayment handles POST /transactions/employee-payment
func (h *TransactionHandler) RecordEmployeePayment(w http.ResponseWriter, r *http.Request) {
	var in models.EmployeePaymentInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}

	id, err := h.ledger.RecordEmployeePayment(r.Context(), in, middleware.GetUserIDFromContext(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCreated(w, r, id)
}

// RecordExpense handles POST /transactions/expense
func (h *TransactionHandler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	var in models.ExpenseInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}

	id, err := h.ledger.RecordExpense(r.Context(), in, middleware.GetUserIDFromContext(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCreated(w, r, id)
}

// Update handles PUT /transactions/{id}
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var u models.TransactionUpdate
	if err := decodeJSON(r, &u); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.ledger.Update(r.Context(), id, u); err != nil {
		respondError(w, r, err)
		return
	}

	view, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /transactions/{id}
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /transactions/export. It accepts the list filters and
// returns every matching row as an XLSX workbook.
func (h *TransactionHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if _, err := h.ledger.Export(r.Context(), f, &buf); err != nil {
		respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", h.now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
