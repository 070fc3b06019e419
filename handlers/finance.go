package handlers

import (
	"net/http"

	"agencyops/backend/middleware"
	"agencyops/backend/models"
	"agencyops/backend/services"
)

// FinanceHandler serves company wide reports and the dashboard
type FinanceHandler struct {
	finance   *services.Finance
	analytics *services.Analytics
}

// NewFinanceHandler creates a new finance handler
func NewFinanceHandler(finance *services.Finance, analytics *services.Analytics) *FinanceHandler {
	return &FinanceHandler{finance: finance, analytics: analytics}
}

// CompanyFinancials handles GET /finance/company. Without startDate and
// endDate the report covers the whole ledger.
func (h *FinanceHandler) CompanyFinancials(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "startDate")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := queryDate(r, "endDate")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	period := models.Period{From: from, To: to, Lifetime: from == nil && to == nil}
	report, err := h.finance.CompanyFinancials(r.Context(), period, middleware.GetCurrencyFromContext(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Overview handles GET /analytics/overview
func (h *FinanceHandler) Overview(w http.ResponseWriter, r *http.Request) {
	q := services.OverviewQuery{Currency: middleware.GetCurrencyFromContext(r)}

	var err error
	if q.From, err = queryDate(r, "from"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if q.To, err = queryDate(r, "to"); err != nil {
		badRequest(w, err.Error())
		return
	}
	lifetime, err := queryBool(r, "lifetime")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	q.Lifetime = lifetime != nil && *lifetime

	overview, err := h.analytics.Overview(r.Context(), q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

// Stats handles GET /analytics/stats
func (h *FinanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Stats(r.Context(), middleware.GetCurrencyFromContext(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
