// Package registry manages the customer and user registries behind the loan
// book: customer onboarding and KYC state, and the back-office user accounts
// that authenticate against the API.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/auth"
	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/Gowtham029/loan-app-backend/pkg/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxIDRetries = 5

// Registry handles the business logic for customers and users.
type Registry struct {
	storage store.RegistryStorage
	now     func() time.Time
}

// NewRegistry creates a new Registry with a given RegistryStorage
// implementation.
func NewRegistry(s store.RegistryStorage) *Registry {
	return &Registry{
		storage: s,
		now:     time.Now,
	}
}

func newCustomerID() string { return "CUS-" + uuid.NewString() }
func newUserID() string     { return "USR-" + uuid.NewString() }

// CreateCustomerRequest is the raw input for registering a customer.
type CreateCustomerRequest struct {
	FirstName            string          `json:"firstName"`
	MiddleName           string          `json:"middleName"`
	LastName             string          `json:"lastName"`
	DateOfBirth          *time.Time      `json:"dateOfBirth,omitempty"`
	Email                string          `json:"email"`
	PhoneNumber          string          `json:"phoneNumber"`
	AlternatePhoneNumber string          `json:"alternatePhoneNumber"`
	CurrentAddress       models.Address  `json:"currentAddress"`
	MonthlyIncome        decimal.Decimal `json:"monthlyIncome"`
	CreditScore          int             `json:"creditScore"`
	Notes                string          `json:"notes"`
}

// CreateCustomer validates and registers a new customer. New customers start
// with KYC pending and an active account. A duplicate email is rejected.
func (r *Registry) CreateCustomer(req CreateCustomerRequest) (*models.CustomerRecord, error) {
	if req.FirstName == "" {
		return nil, models.Invalid("firstName", "first name is required")
	}
	if req.LastName == "" {
		return nil, models.Invalid("lastName", "last name is required")
	}
	if req.PhoneNumber == "" {
		return nil, models.Invalid("phoneNumber", "phone number is required")
	}
	if req.MonthlyIncome.IsNegative() {
		return nil, models.Invalid("monthlyIncome", "must not be negative")
	}

	if req.Email != "" {
		if _, err := r.storage.GetCustomerByEmail(req.Email); err == nil {
			return nil, &models.ConflictError{Kind: "customer email", ID: req.Email}
		} else {
			var nerr *models.NotFoundError
			if !errors.As(err, &nerr) {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
		}
	}

	now := r.now()
	customer := &models.CustomerRecord{
		FirstName:            req.FirstName,
		MiddleName:           req.MiddleName,
		LastName:             req.LastName,
		DateOfBirth:          req.DateOfBirth,
		Email:                req.Email,
		PhoneNumber:          req.PhoneNumber,
		AlternatePhoneNumber: req.AlternatePhoneNumber,
		CurrentAddress:       req.CurrentAddress,
		MonthlyIncome:        req.MonthlyIncome,
		CreditScore:          req.CreditScore,
		Notes:                req.Notes,
		KYCStatus:            models.KYCPending,
		AccountStatus:        models.CustomerActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	var conflict *models.ConflictError
	var err error
	for attempt := 0; attempt < maxIDRetries; attempt++ {
		customer.CustomerID = newCustomerID()
		err = r.storage.CreateCustomer(customer)
		if err == nil {
			return customer, nil
		}
		if !errors.As(err, &conflict) || conflict.Kind != "customer" {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to store customer after %d id collisions: %w", maxIDRetries, err)
}

// GetCustomer retrieves a customer by ID.
func (r *Registry) GetCustomer(customerID string) (*models.CustomerRecord, error) {
	if customerID == "" {
		return nil, models.Invalid("customerId", "customer ID is required")
	}
	return r.storage.GetCustomer(customerID)
}

// UpdateCustomerRequest carries partial customer updates. Nil fields are
// left untouched.
type UpdateCustomerRequest struct {
	Email          *string                       `json:"email,omitempty"`
	PhoneNumber    *string                       `json:"phoneNumber,omitempty"`
	CurrentAddress *models.Address               `json:"currentAddress,omitempty"`
	MonthlyIncome  *decimal.Decimal              `json:"monthlyIncome,omitempty"`
	CreditScore    *int                          `json:"creditScore,omitempty"`
	KYCStatus      *models.KYCStatus             `json:"kycStatus,omitempty"`
	AccountStatus  *models.CustomerAccountStatus `json:"accountStatus,omitempty"`
	Notes          *string                       `json:"notes,omitempty"`
}

// UpdateCustomer applies a partial update to a customer record.
func (r *Registry) UpdateCustomer(customerID string, req UpdateCustomerRequest) (*models.CustomerRecord, error) {
	customer, err := r.GetCustomer(customerID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		if *req.PhoneNumber == "" {
			return nil, models.Invalid("phoneNumber", "phone number is required")
		}
		customer.PhoneNumber = *req.PhoneNumber
	}
	if req.CurrentAddress != nil {
		customer.CurrentAddress = *req.CurrentAddress
	}
	if req.MonthlyIncome != nil {
		if req.MonthlyIncome.IsNegative() {
			return nil, models.Invalid("monthlyIncome", "must not be negative")
		}
		customer.MonthlyIncome = *req.MonthlyIncome
	}
	if req.CreditScore != nil {
		customer.CreditScore = *req.CreditScore
	}
	if req.KYCStatus != nil {
		switch *req.KYCStatus {
		case models.KYCPending, models.KYCVerified, models.KYCRejected:
		default:
			return nil, models.Invalid("kycStatus", "unknown KYC status")
		}
		customer.KYCStatus = *req.KYCStatus
	}
	if req.AccountStatus != nil {
		switch *req.AccountStatus {
		case models.CustomerActive, models.CustomerInactive, models.CustomerSuspended:
		default:
			return nil, models.Invalid("accountStatus", "unknown account status")
		}
		customer.AccountStatus = *req.AccountStatus
	}
	if req.Notes != nil {
		customer.Notes = *req.Notes
	}
	customer.UpdatedAt = r.now()

	if err := r.storage.UpdateCustomer(customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return customer, nil
}

// DeleteCustomer soft-deletes a customer. Loans carrying the denormalized
// copy keep it.
func (r *Registry) DeleteCustomer(customerID string) error {
	if customerID == "" {
		return models.Invalid("customerId", "customer ID is required")
	}
	return r.storage.SoftDeleteCustomer(customerID, r.now())
}

// ListCustomers returns a page of customers plus the total match count.
func (r *Registry) ListCustomers(f store.CustomerFilter) ([]*models.CustomerRecord, int, error) {
	return r.storage.ListCustomers(f)
}

// CreateUserRequest is the raw input for creating a back-office user.
type CreateUserRequest struct {
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Password    string          `json:"password"`
	Role        models.UserRole `json:"role"`
	Department  string          `json:"department"`
	PhoneNumber string          `json:"phoneNumber"`
}

// CreateUser validates and creates a new active user with a bcrypt-hashed
// password. Usernames are unique.
func (r *Registry) CreateUser(req CreateUserRequest) (*models.User, error) {
	if req.Username == "" {
		return nil, models.Invalid("username", "username is required")
	}
	if req.Email == "" {
		return nil, models.Invalid("email", "email is required")
	}
	if req.FirstName == "" || req.LastName == "" {
		return nil, models.Invalid("name", "first and last name are required")
	}
	if len(req.Password) < 8 {
		return nil, models.Invalid("password", "must be at least 8 characters")
	}
	switch req.Role {
	case models.RoleAdmin, models.RoleManager, models.RoleViewer:
	default:
		return nil, models.Invalid("role", "must be ADMIN, MANAGER or VIEWER")
	}

	if _, err := r.storage.GetUserByUsername(req.Username); err == nil {
		return nil, &models.ConflictError{Kind: "username", ID: req.Username}
	} else {
		var nerr *models.NotFoundError
		if !errors.As(err, &nerr) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := r.now()
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         req.Role,
		Status:       models.UserActive,
		Department:   req.Department,
		PhoneNumber:  req.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	user.UserID = newUserID()
	if err := r.storage.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (r *Registry) GetUser(userID string) (*models.User, error) {
	if userID == "" {
		return nil, models.Invalid("userId", "user ID is required")
	}
	return r.storage.GetUser(userID)
}

// GetUserByUsername retrieves a user by username.
func (r *Registry) GetUserByUsername(username string) (*models.User, error) {
	if username == "" {
		return nil, models.Invalid("username", "username is required")
	}
	return r.storage.GetUserByUsername(username)
}

// ErrBadCredentials is returned for any authentication failure: unknown
// username, wrong password or a non-active account. Callers must not leak
// which one it was.
var ErrBadCredentials = errors.New("invalid credentials")

// Authenticate checks a username/password pair and stamps the login time.
func (r *Registry) Authenticate(username, password string) (*models.User, error) {
	user, err := r.storage.GetUserByUsername(username)
	if err != nil {
		var nerr *models.NotFoundError
		if errors.As(err, &nerr) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if user.Status != models.UserActive {
		return nil, ErrBadCredentials
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrBadCredentials
	}

	now := r.now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := r.storage.UpdateUser(user); err != nil {
		fmt.Printf("Error stamping login time for user %s: %v\n", user.UserID, err)
	}
	return user, nil
}

// UpdateUserRequest carries partial user updates. Nil fields are left
// untouched.
type UpdateUserRequest struct {
	Email       *string            `json:"email,omitempty"`
	Role        *models.UserRole   `json:"role,omitempty"`
	Status      *models.UserStatus `json:"status,omitempty"`
	Department  *string            `json:"department,omitempty"`
	PhoneNumber *string            `json:"phoneNumber,omitempty"`
	Password    *string            `json:"password,omitempty"`
}

// UpdateUser applies a partial update to a user, rehashing the password when
// one is supplied.
func (r *Registry) UpdateUser(userID string, req UpdateUserRequest) (*models.User, error) {
	user, err := r.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		switch *req.Role {
		case models.RoleAdmin, models.RoleManager, models.RoleViewer:
		default:
			return nil, models.Invalid("role", "must be ADMIN, MANAGER or VIEWER")
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		switch *req.Status {
		case models.UserActive, models.UserInactive, models.UserSuspended:
		default:
			return nil, models.Invalid("status", "unknown user status")
		}
		user.Status = *req.Status
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return nil, models.Invalid("password", "must be at least 8 characters")
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = r.now()

	if err := r.storage.UpdateUser(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeleteUser soft-deletes a user. Loans and payments keep their provenance
// fields.
func (r *Registry) DeleteUser(userID string) error {
	if userID == "" {
		return models.Invalid("userId", "user ID is required")
	}
	return r.storage.SoftDeleteUser(userID, r.now())
}

// ListUsers returns a page of users plus the total match count.
func (r *Registry) ListUsers(f store.UserFilter) ([]*models.User, int, error) {
	return r.storage.ListUsers(f)
}
