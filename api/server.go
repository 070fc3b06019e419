package api

import (
	"database/sql"
	"net/http"

	"agencyops/backend/config"
	"agencyops/backend/handlers"
	"agencyops/backend/middleware"
	"agencyops/backend/models"
	"agencyops/backend/services"

	"github.com/gorilla/mux"
)

// Services are the collaborators the HTTP layer is wired to
type Services struct {
	Ledger    *services.Ledger
	Staffing  *services.Staffing
	Projects  *services.Projects
	Finance   *services.Finance
	Analytics *services.Analytics
	Employees *services.Employees
	Users     *services.Users
}

// NewServices builds every service on top of db
func NewServices(db *sql.DB, rates services.RateProvider, mailer services.Mailer) *Services {
	conv := services.NewConverter(rates)
	staffing := services.NewStaffing(db, conv)
	return &Services{
		Ledger:    services.NewLedger(db, conv),
		Staffing:  staffing,
		Projects:  services.NewProjects(db, conv, staffing),
		Finance:   services.NewFinance(db),
		Analytics: services.NewAnalytics(db),
		Employees: services.NewEmployees(db, mailer),
		Users:     services.NewUsers(db),
	}
}

// Server represents the API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	svc     *Services

	transactions *handlers.TransactionHandler
	projects     *handlers.ProjectHandler
	finance      *handlers.FinanceHandler
	employees    *handlers.EmployeeHandler
	users        *handlers.UserHandler
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, svc *Services) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		svc:          svc,
		transactions: handlers.NewTransactionHandler(svc.Ledger),
		projects:     handlers.NewProjectHandler(svc.Projects, svc.Staffing, svc.Finance),
		finance:      handlers.NewFinanceHandler(svc.Finance, svc.Analytics),
		employees:    handlers.NewEmployeeHandler(svc.Employees),
		users:        handlers.NewUserHandler(svc.Users),
	}
	s.RegisterRoutes()

	// preflight requests match no route, so CORS sits outside the router
	s.handler = middleware.EnableCORS(cfg)(s.router)
	return s
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Public routes (no auth required)
	api.HandleFunc("/health", handlers.HealthCheck).Methods("GET", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(s.svc.Users))
	protected.Use(middleware.ResolveCurrency(s.svc.Users))

	adminOnly := middleware.RequireAdmin()
	managers := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	guard := func(mw func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
		return mw(h)
	}

	// Ledger
	protected.Handle("/transactions", guard(managers, s.transactions.List)).Methods("GET")
	protected.Handle("/transactions", guard(managers, s.transactions.Create)).Methods("POST")
	protected.Handle("/transactions/export", guard(managers, s.transactions.Export)).Methods("GET")
	protected.Handle("/transactions/client-payment", guard(managers, s.transactions.RecordClientPayment)).Methods("POST")
	protected.Handle("/transactions/employee-payment", guard(managers, s.transactions.RecordEmployeePayment)).Methods("POST")
	protected.Handle("/transactions/expense", guard(managers, s.transactions.RecordExpense)).Methods("POST")
	protected.Handle("/transactions/{id}", guard(managers, s.transactions.Get)).Methods("GET")
	protected.Handle("/transactions/{id}", guard(managers, s.transactions.Update)).Methods("PUT")
	protected.Handle("/transactions/{id}", guard(adminOnly, s.transactions.Delete)).Methods("DELETE")

	// Projects and staffing
	protected.HandleFunc("/projects", s.projects.List).Methods("GET")
	protected.Handle("/projects", guard(managers, s.projects.Create)).Methods("POST")
	protected.HandleFunc("/projects/{id}", s.projects.Get).Methods("GET")
	protected.Handle("/projects/{id}", guard(managers, s.projects.Update)).Methods("PUT")
	protected.Handle("/projects/{id}", guard(managers, s.projects.Delete)).Methods("DELETE")
	protected.Handle("/projects/{id}/toggle-active", guard(managers, s.projects.ToggleActive)).Methods("PATCH")
	protected.Handle("/projects/{id}/members", guard(managers, s.projects.SyncMembers)).Methods("PUT")
	protected.Handle("/projects/{id}/financials", guard(managers, s.projects.Financials)).Methods("GET")
	protected.Handle("/projects/{id}/employee-breakdown", guard(managers, s.projects.EmployeeBreakdown)).Methods("GET")
	protected.Handle("/projects/{id}/payments", guard(managers, s.projects.PaymentHistory)).Methods("GET")

	// Company finance and dashboard
	protected.Handle("/finance/company", guard(managers, s.finance.CompanyFinancials)).Methods("GET")
	protected.Handle("/analytics/overview", guard(managers, s.finance.Overview)).Methods("GET")
	protected.Handle("/analytics/stats", guard(managers, s.finance.Stats)).Methods("GET")

	// Employees
	protected.Handle("/employees", guard(adminOnly, s.employees.List)).Methods("GET")
	protected.Handle("/employees", guard(adminOnly, s.employees.Create)).Methods("POST")
	protected.Handle("/employees/{id}", guard(adminOnly, s.employees.Get)).Methods("GET")
	protected.Handle("/employees/{id}", guard(adminOnly, s.employees.Update)).Methods("PUT")
	protected.Handle("/employees/{id}", guard(adminOnly, s.employees.Delete)).Methods("DELETE")
	protected.Handle("/employees/{id}/toggle-active", guard(adminOnly, s.employees.ToggleActive)).Methods("PATCH")

	// Users
	protected.HandleFunc("/users/me", s.users.Me).Methods("GET")
	protected.HandleFunc("/users/me/currency", s.users.SetCurrency).Methods("PUT")
	protected.Handle("/users/{id}/role", guard(managers, s.users.SetRole)).Methods("PUT")
	protected.Handle("/users/{id}", guard(adminOnly, s.users.Delete)).Methods("DELETE")
}

// Handler returns the HTTP handler for the API server
func (s *Server) Handler() http.Handler {
	return s.handler
}
