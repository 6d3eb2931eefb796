package registry

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/Gowtham029/loan-app-backend/pkg/store"
	"github.com/shopspring/decimal"
)

// MockRegistryStore is a simple in-memory implementation of the
// RegistryStorage interface for testing.
type MockRegistryStore struct {
	customers map[string]*models.CustomerRecord
	users     map[string]*models.User
}

func NewMockRegistryStore() *MockRegistryStore {
	return &MockRegistryStore{
		customers: make(map[string]*models.CustomerRecord),
		users:     make(map[string]*models.User),
	}
}

func (m *MockRegistryStore) CreateCustomer(c *models.CustomerRecord) error {
	if _, ok := m.customers[c.CustomerID]; ok {
		return &models.ConflictError{Kind: "customer", ID: c.CustomerID}
	}
	m.customers[c.CustomerID] = c
	return nil
}

func (m *MockRegistryStore) GetCustomer(customerID string) (*models.CustomerRecord, error) {
	c, ok := m.customers[customerID]
	if !ok || c.IsDeleted {
		return nil, &models.NotFoundError{Kind: "customer", ID: customerID}
	}
	return c, nil
}

func (m *MockRegistryStore) GetCustomerByEmail(email string) (*models.CustomerRecord, error) {
	for _, c := range m.customers {
		if !c.IsDeleted && c.Email == email {
			return c, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "customer", ID: email}
}

func (m *MockRegistryStore) UpdateCustomer(c *models.CustomerRecord) error {
	if _, ok := m.customers[c.CustomerID]; !ok {
		return &models.NotFoundError{Kind: "customer", ID: c.CustomerID}
	}
	m.customers[c.CustomerID] = c
	return nil
}

func (m *MockRegistryStore) SoftDeleteCustomer(customerID string, deletedAt time.Time) error {
	c, ok := m.customers[customerID]
	if !ok || c.IsDeleted {
		return &models.NotFoundError{Kind: "customer", ID: customerID}
	}
	c.IsDeleted = true
	c.UpdatedAt = deletedAt
	return nil
}

func (m *MockRegistryStore) ListCustomers(f store.CustomerFilter) ([]*models.CustomerRecord, int, error) {
	customers := []*models.CustomerRecord{}
	for _, c := range m.customers {
		if c.IsDeleted {
			continue
		}
		customers = append(customers, c)
	}
	return customers, len(customers), nil
}

func (m *MockRegistryStore) CreateUser(u *models.User) error {
	if _, ok := m.users[u.UserID]; ok {
		return &models.ConflictError{Kind: "user", ID: u.UserID}
	}
	for _, existing := range m.users {
		if !existing.IsDeleted && existing.Username == u.Username {
			return &models.ConflictError{Kind: "user", ID: u.Username}
		}
	}
	m.users[u.UserID] = u
	return nil
}

func (m *MockRegistryStore) GetUser(userID string) (*models.User, error) {
	u, ok := m.users[userID]
	if !ok || u.IsDeleted {
		return nil, &models.NotFoundError{Kind: "user", ID: userID}
	}
	return u, nil
}

func (m *MockRegistryStore) GetUserByUsername(username string) (*models.User, error) {
	for _, u := range m.users {
		if !u.IsDeleted && u.Username == username {
			return u, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "user", ID: username}
}

func (m *MockRegistryStore) UpdateUser(u *models.User) error {
	if _, ok := m.users[u.UserID]; !ok {
		return &models.NotFoundError{Kind: "user", ID: u.UserID}
	}
	m.users[u.UserID] = u
	return nil
}

func (m *MockRegistryStore) SoftDeleteUser(userID string, deletedAt time.Time) error {
	u, ok := m.users[userID]
	if !ok || u.IsDeleted {
		return &models.NotFoundError{Kind: "user", ID: userID}
	}
	u.IsDeleted = true
	u.UpdatedAt = deletedAt
	return nil
}

func (m *MockRegistryStore) ListUsers(f store.UserFilter) ([]*models.User, int, error) {
	users := []*models.User{}
	for _, u := range m.users {
		if u.IsDeleted {
			continue
		}
		users = append(users, u)
	}
	return users, len(users), nil
}

func testCustomerRequest() CreateCustomerRequest {
	return CreateCustomerRequest{
		FirstName:   "Ravi",
		LastName:    "Kumar",
		Email:       "ravi@example.com",
		PhoneNumber: "+919876543210",
		CurrentAddress: models.Address{
			Street: "12 MG Road",
			City:   "Bengaluru",
			State:  "Karnataka",
		},
		MonthlyIncome: decimal.NewFromInt(45000),
		CreditScore:   720,
	}
}

func testUserRequest() CreateUserRequest {
	return CreateUserRequest{
		Username:  "manager1",
		Email:     "manager1@example.com",
		FirstName: "Back",
		LastName:  "Office",
		Password:  "s3cret-pass",
		Role:      models.RoleManager,
	}
}

func TestCreateCustomer(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())

	customer, err := r.CreateCustomer(testCustomerRequest())
	if err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}

	if !strings.HasPrefix(customer.CustomerID, "CUS-") {
		t.Errorf("Expected CUS- prefixed customer ID, got %s", customer.CustomerID)
	}
	if customer.KYCStatus != models.KYCPending {
		t.Errorf("Expected KYC PENDING for new customer, got %s", customer.KYCStatus)
	}
	if customer.AccountStatus != models.CustomerActive {
		t.Errorf("Expected ACTIVE account, got %s", customer.AccountStatus)
	}

	got, err := r.GetCustomer(customer.CustomerID)
	if err != nil {
		t.Fatalf("Failed to get customer: %v", err)
	}
	if got.FirstName != "Ravi" {
		t.Errorf("Unexpected customer: %+v", got)
	}
}

func TestCreateCustomerValidation(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())
	var verr *models.ValidationError

	req := testCustomerRequest()
	req.FirstName = ""
	if _, err := r.CreateCustomer(req); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for missing first name, got %v", err)
	}

	req = testCustomerRequest()
	req.PhoneNumber = ""
	if _, err := r.CreateCustomer(req); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for missing phone, got %v", err)
	}

	req = testCustomerRequest()
	req.MonthlyIncome = decimal.NewFromInt(-1)
	if _, err := r.CreateCustomer(req); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for negative income, got %v", err)
	}
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())

	if _, err := r.CreateCustomer(testCustomerRequest()); err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}

	var conflict *models.ConflictError
	if _, err := r.CreateCustomer(testCustomerRequest()); !errors.As(err, &conflict) {
		t.Errorf("Expected ConflictError for duplicate email, got %v", err)
	}
}

func TestUpdateCustomerPartial(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())

	customer, _ := r.CreateCustomer(testCustomerRequest())

	verified := models.KYCVerified
	score := 780
	updated, err := r.UpdateCustomer(customer.CustomerID, UpdateCustomerRequest{
		KYCStatus:   &verified,
		CreditScore: &score,
	})
	if err != nil {
		t.Fatalf("Failed to update customer: %v", err)
	}

	if updated.KYCStatus != models.KYCVerified || updated.CreditScore != 780 {
		t.Errorf("Expected updated KYC/score, got %s/%d", updated.KYCStatus, updated.CreditScore)
	}
	// Untouched fields survive.
	if updated.PhoneNumber != "+919876543210" {
		t.Errorf("Expected phone untouched, got %s", updated.PhoneNumber)
	}

	bad := models.KYCStatus("MAYBE")
	var verr *models.ValidationError
	if _, err := r.UpdateCustomer(customer.CustomerID, UpdateCustomerRequest{KYCStatus: &bad}); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for unknown KYC status, got %v", err)
	}
}

func TestDeleteCustomer(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())

	customer, _ := r.CreateCustomer(testCustomerRequest())
	if err := r.DeleteCustomer(customer.CustomerID); err != nil {
		t.Fatalf("Failed to delete customer: %v", err)
	}

	var nerr *models.NotFoundError
	if _, err := r.GetCustomer(customer.CustomerID); !errors.As(err, &nerr) {
		t.Errorf("Expected NotFoundError for deleted customer, got %v", err)
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())

	user, err := r.CreateUser(testUserRequest())
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	if !strings.HasPrefix(user.UserID, "USR-") {
		t.Errorf("Expected USR- prefixed user ID, got %s", user.UserID)
	}
	if user.PasswordHash == "" || user.PasswordHash == "s3cret-pass" {
		t.Error("Expected a hashed password, never the plain text")
	}
	if user.Status != models.UserActive {
		t.Errorf("Expected ACTIVE user, got %s", user.Status)
	}
}

func TestCreateUserValidation(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())
	var verr *models.ValidationError

	req := testUserRequest()
	req.Password = "short"
	if _, err := r.CreateUser(req); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for short password, got %v", err)
	}

	req = testUserRequest()
	req.Role = "SUPERUSER"
	if _, err := r.CreateUser(req); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for unknown role, got %v", err)
	}

	// Usernames are unique.
	if _, err := r.CreateUser(testUserRequest()); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	var conflict *models.ConflictError
	if _, err := r.CreateUser(testUserRequest()); !errors.As(err, &conflict) {
		t.Errorf("Expected ConflictError for duplicate username, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())

	created, _ := r.CreateUser(testUserRequest())

	user, err := r.Authenticate("manager1", "s3cret-pass")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}
	if user.UserID != created.UserID {
		t.Errorf("Expected user %s, got %s", created.UserID, user.UserID)
	}
	if user.LastLoginAt == nil {
		t.Error("Expected login time stamped")
	}

	if _, err := r.Authenticate("manager1", "wrong-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for wrong password, got %v", err)
	}
	if _, err := r.Authenticate("nobody", "s3cret-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for unknown user, got %v", err)
	}

	// Suspended accounts cannot log in.
	suspended := models.UserSuspended
	if _, err := r.UpdateUser(created.UserID, UpdateUserRequest{Status: &suspended}); err != nil {
		t.Fatalf("Failed to suspend user: %v", err)
	}
	if _, err := r.Authenticate("manager1", "s3cret-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for suspended user, got %v", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())

	created, _ := r.CreateUser(testUserRequest())

	newPass := "brand-new-pass"
	if _, err := r.UpdateUser(created.UserID, UpdateUserRequest{Password: &newPass}); err != nil {
		t.Fatalf("Failed to change password: %v", err)
	}

	if _, err := r.Authenticate("manager1", "s3cret-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Error("Old password must stop working after a change")
	}
	if _, err := r.Authenticate("manager1", "brand-new-pass"); err != nil {
		t.Errorf("New password should authenticate: %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	r := NewRegistry(NewMockRegistryStore())

	created, _ := r.CreateUser(testUserRequest())
	if err := r.DeleteUser(created.UserID); err != nil {
		t.Fatalf("Failed to delete user: %v", err)
	}

	if _, err := r.Authenticate("manager1", "s3cret-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Error("Deleted users must not authenticate")
	}
}
