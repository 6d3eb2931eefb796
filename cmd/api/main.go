package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/auth"
	"github.com/Gowtham029/loan-app-backend/pkg/ledger"
	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/Gowtham029/loan-app-backend/pkg/registry"
	"github.com/Gowtham029/loan-app-backend/pkg/store"
	"github.com/gorilla/mux"
)

type contextKey string

const identityKey contextKey = "identity"

// Server wires the ledger, registries and token manager behind the HTTP API.
type Server struct {
	ledger   *ledger.Ledger
	registry *registry.Registry
	tokens   *auth.TokenManager
}

func NewServer(s store.Storage, reg store.RegistryStorage, tokens *auth.TokenManager) *Server {
	return &Server{
		ledger:   ledger.NewLedger(s, ledger.Config{}),
		registry: registry.NewRegistry(reg),
		tokens:   tokens,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		verr *models.ValidationError
		nerr *models.NotFoundError
		cerr *models.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &nerr):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &cerr):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("Internal error: %v\n", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// authMiddleware verifies the bearer token and stashes the caller identity
// in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		identity, err := s.tokens.Verify(token)
		if err != nil {
			http.Error(w, "invalid or revoked token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func callerIdentity(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(identityKey).(auth.Identity)
	return id
}

func identityOf(user *models.User) auth.Identity {
	return auth.Identity{
		UserID:    user.UserID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      string(user.Role),
	}
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := s.registry.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, registry.ErrBadCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		writeError(w, err)
		return
	}

	token, err := s.tokens.Issue(identityOf(user))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	if err := s.tokens.Revoke(token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req ledger.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The denormalized customer copy comes from the registry when the
	// customer is registered; unregistered references pass through as-is.
	if req.Customer.CustomerID != "" {
		customer, err := s.registry.GetCustomer(req.Customer.CustomerID)
		if err == nil {
			req.Customer = customer.Denormalized()
		} else {
			var nerr *models.NotFoundError
			if !errors.As(err, &nerr) {
				writeError(w, err)
				return
			}
		}
	}

	// Provenance comes from the authenticated caller, not the body.
	id := callerIdentity(r)
	req.LoanProvider = models.LoanProvider{
		UserID:    id.UserID,
		Username:  id.Username,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Email:     id.Email,
	}

	loan, err := s.ledger.CreateLoan(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loan, err := s.ledger.GetLoan(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	loans, total, err := s.ledger.ListLoans(store.LoanFilter{
		CustomerID: q.Get("customerId"),
		Status:     models.LoanStatus(q.Get("status")),
		Substatus:  models.LoanSubstatus(q.Get("substatus")),
		Search:     q.Get("search"),
		SortBy:     q.Get("sortBy"),
		SortOrder:  q.Get("sortOrder"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loans": loans,
		"total": total,
	})
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteLoan(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) restructureLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req ledger.RestructureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := callerIdentity(r)
	loan, err := s.ledger.Restructure(mux.Vars(r)["id"], req, models.LoanProvider{
		UserID:    id.UserID,
		Username:  id.Username,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Email:     id.Email,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req ledger.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ProcessedBy == "" {
		req.ProcessedBy = callerIdentity(r).UserID
	}

	payment, err := s.ledger.RecordPayment(mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) getPaymentHandler(w http.ResponseWriter, r *http.Request) {
	payment, err := s.ledger.GetPayment(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	payments, total, err := s.ledger.ListPayments(store.PaymentFilter{
		LoanID:      q.Get("loanId"),
		CustomerID:  q.Get("customerId"),
		Status:      models.PaymentStatus(q.Get("status")),
		PaymentType: models.PaymentType(q.Get("paymentType")),
		SortBy:      q.Get("sortBy"),
		SortOrder:   q.Get("sortOrder"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"total":    total,
	})
}

func (s *Server) cancelPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payment, err := s.ledger.CancelPayment(mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req registry.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	customer, err := s.registry.CreateCustomer(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	customer, err := s.registry.GetCustomer(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *Server) updateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req registry.UpdateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	customer, err := s.registry.UpdateCustomer(mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *Server) deleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteCustomer(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	customers, total, err := s.registry.ListCustomers(store.CustomerFilter{
		Search:        q.Get("search"),
		KYCStatus:     models.KYCStatus(q.Get("kycStatus")),
		AccountStatus: models.CustomerAccountStatus(q.Get("accountStatus")),
		SortBy:        q.Get("sortBy"),
		SortOrder:     q.Get("sortOrder"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customers": customers,
		"total":     total,
	})
}

func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var req registry.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := s.registry.CreateUser(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.registry.GetUser(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req registry.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := s.registry.UpdateUser(mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteUser(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	users, total, err := s.registry.ListUsers(store.UserFilter{
		Search: q.Get("search"),
		Role:   models.UserRole(q.Get("role")),
		Status: models.UserStatus(q.Get("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

func (s *Server) overdueSweepHandler(w http.ResponseWriter, r *http.Request) {
	s.ledger.RunOverdueSweep(time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"message": "sweep complete"})
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/auth/login", s.loginHandler).Methods("POST")

	api := router.PathPrefix("/").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/auth/logout", s.logoutHandler).Methods("POST")

	api.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	api.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	api.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	api.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	api.HandleFunc("/loans/{id}/restructure", s.restructureLoanHandler).Methods("POST")
	api.HandleFunc("/loans/{id}/payments", s.recordPaymentHandler).Methods("POST")

	api.HandleFunc("/payments", s.listPaymentsHandler).Methods("GET")
	api.HandleFunc("/payments/{id}", s.getPaymentHandler).Methods("GET")
	api.HandleFunc("/payments/{id}/cancel", s.cancelPaymentHandler).Methods("POST")

	api.HandleFunc("/customers", s.listCustomersHandler).Methods("GET")
	api.HandleFunc("/customers", s.createCustomerHandler).Methods("POST")
	api.HandleFunc("/customers/{id}", s.getCustomerHandler).Methods("GET")
	api.HandleFunc("/customers/{id}", s.updateCustomerHandler).Methods("PUT")
	api.HandleFunc("/customers/{id}", s.deleteCustomerHandler).Methods("DELETE")

	api.HandleFunc("/users", s.listUsersHandler).Methods("GET")
	api.HandleFunc("/users", s.createUserHandler).Methods("POST")
	api.HandleFunc("/users/{id}", s.getUserHandler).Methods("GET")
	api.HandleFunc("/users/{id}", s.updateUserHandler).Methods("PUT")
	api.HandleFunc("/users/{id}", s.deleteUserHandler).Methods("DELETE")

	api.HandleFunc("/admin/overdue-sweep", s.overdueSweepHandler).Methods("POST")
	return router
}

// seedAdminUser creates the bootstrap admin account on first start so a
// fresh deployment can log in and create the real users.
func seedAdminUser(reg *registry.Registry) error {
	_, err := reg.GetUserByUsername(envOr("ADMIN_USERNAME", "admin"))
	if err == nil {
		return nil
	}
	var nerr *models.NotFoundError
	if !errors.As(err, &nerr) {
		return err
	}

	_, err = reg.CreateUser(registry.CreateUserRequest{
		Username:  envOr("ADMIN_USERNAME", "admin"),
		Email:     envOr("ADMIN_EMAIL", "admin@example.com"),
		FirstName: "Admin",
		LastName:  "User",
		Password:  envOr("ADMIN_PASSWORD", "password123"),
		Role:      models.RoleAdmin,
	})
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	dbFile := envOr("DB_FILE", "loanapp.db")
	sqliteStore, err := store.NewSQLiteStore(dbFile)
	if err != nil {
		log.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	revocation, err := auth.NewSQLiteRevocationStore(dbFile)
	if err != nil {
		log.Fatalf("Failed to initialize revocation store: %v", err)
	}
	defer revocation.Close()

	tokens := auth.NewTokenManager(envOr("JWT_SECRET", "dev-secret-change-me"), 24*time.Hour, revocation)

	server := NewServer(sqliteStore, sqliteStore, tokens)
	if err := seedAdminUser(server.registry); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}
	router := server.routes()

	// Periodic overdue detection; deployments can also trigger the sweep
	// through the admin endpoint.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			log.Println("Running overdue sweep...")
			server.ledger.RunOverdueSweep(time.Now())
			log.Println("Overdue sweep complete.")
		}
	}()

	addr := ":" + envOr("PORT", "8080")
	log.Printf("Server starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, router))
}
