package store

import (
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/models"
)

// LoanFilter narrows and orders a loan listing. Zero values mean "no filter";
// Page is 1-based.
type LoanFilter struct {
	CustomerID string
	Status     models.LoanStatus
	Substatus  models.LoanSubstatus
	Search     string // matches loan ID, customer ID, name or email
	SortBy     string
	SortOrder  string // "asc" or "desc"
	Page       int
	Limit      int
}

// PaymentFilter narrows and orders a payment listing.
type PaymentFilter struct {
	LoanID      string
	CustomerID  string
	Status      models.PaymentStatus
	PaymentType models.PaymentType
	SortBy      string
	SortOrder   string
	Page        int
	Limit       int
}

// CustomerFilter narrows and orders a customer listing.
type CustomerFilter struct {
	Search        string // matches name, email or phone number
	KYCStatus     models.KYCStatus
	AccountStatus models.CustomerAccountStatus
	SortBy        string
	SortOrder     string
	Page          int
	Limit         int
}

// UserFilter narrows and orders a user listing.
type UserFilter struct {
	Search string // matches username, name or email
	Role   models.UserRole
	Status models.UserStatus
	Page   int
	Limit  int
}

// Storage defines the persistence contract for loans and payments.
// Implementations return *models.ConflictError for duplicate identifiers and
// *models.NotFoundError for absent records. Soft-deleted loans are excluded
// from every read and listing.
type Storage interface {
	CreateLoan(loan *models.Loan) error
	GetLoan(loanID string) (*models.Loan, error)
	UpdateLoan(loan *models.Loan) error
	SoftDeleteLoan(loanID string, deletedAt time.Time) error
	ListLoans(f LoanFilter) ([]*models.Loan, int, error)
	GetActiveLoans() ([]*models.Loan, error)

	CreatePayment(payment *models.Payment) error
	GetPayment(paymentID string) (*models.Payment, error)
	UpdatePayment(payment *models.Payment) error
	ListPayments(f PaymentFilter) ([]*models.Payment, int, error)

	Close() error
}

// RegistryStorage defines the persistence contract for the customer and user
// registries. The same error conventions as Storage apply; soft-deleted
// records are excluded from every read and listing.
type RegistryStorage interface {
	CreateCustomer(customer *models.CustomerRecord) error
	GetCustomer(customerID string) (*models.CustomerRecord, error)
	GetCustomerByEmail(email string) (*models.CustomerRecord, error)
	UpdateCustomer(customer *models.CustomerRecord) error
	SoftDeleteCustomer(customerID string, deletedAt time.Time) error
	ListCustomers(f CustomerFilter) ([]*models.CustomerRecord, int, error)

	CreateUser(user *models.User) error
	GetUser(userID string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	UpdateUser(user *models.User) error
	SoftDeleteUser(userID string, deletedAt time.Time) error
	ListUsers(f UserFilter) ([]*models.User, int, error)
}
