package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/models"
)

// CreateCustomer inserts a new customer record. A duplicate customer ID
// yields a ConflictError.
func (s *SQLiteStore) CreateCustomer(c *models.CustomerRecord) error {
	address, err := marshalJSON(c.CurrentAddress)
	if err != nil {
		return fmt.Errorf("failed to encode address: %w", err)
	}

	var dob sql.NullTime
	if c.DateOfBirth != nil {
		dob = sql.NullTime{Time: *c.DateOfBirth, Valid: true}
	}

	_, err = s.db.Exec(
		`INSERT INTO customers (customer_id, first_name, middle_name, last_name, date_of_birth,
			email, phone_number, alternate_phone, current_address, monthly_income, credit_score,
			kyc_status, account_status, notes, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CustomerID, c.FirstName, c.MiddleName, c.LastName, dob,
		c.Email, c.PhoneNumber, c.AlternatePhoneNumber, address, c.MonthlyIncome, c.CreditScore,
		string(c.KYCStatus), string(c.AccountStatus), c.Notes, boolToInt(c.IsDeleted),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.ConflictError{Kind: "customer", ID: c.CustomerID}
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

const customerColumns = `customer_id, first_name, middle_name, last_name, date_of_birth, email,
	phone_number, alternate_phone, current_address, monthly_income, credit_score, kyc_status,
	account_status, notes, is_deleted, created_at, updated_at`

func scanCustomer(row rowScanner) (*models.CustomerRecord, error) {
	var c models.CustomerRecord
	var dob sql.NullTime
	var address, kyc, account string
	var isDeleted int

	err := row.Scan(&c.CustomerID, &c.FirstName, &c.MiddleName, &c.LastName, &dob, &c.Email,
		&c.PhoneNumber, &c.AlternatePhoneNumber, &address, &c.MonthlyIncome, &c.CreditScore, &kyc,
		&account, &c.Notes, &isDeleted, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(address), &c.CurrentAddress); err != nil {
		return nil, fmt.Errorf("failed to decode address: %w", err)
	}
	if dob.Valid {
		c.DateOfBirth = &dob.Time
	}
	c.KYCStatus = models.KYCStatus(kyc)
	c.AccountStatus = models.CustomerAccountStatus(account)
	c.IsDeleted = isDeleted != 0
	return &c, nil
}

// GetCustomer retrieves a customer by ID. Soft-deleted customers are not
// returned.
func (s *SQLiteStore) GetCustomer(customerID string) (*models.CustomerRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+customerColumns+` FROM customers WHERE customer_id = ? AND is_deleted = 0`, customerID)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Kind: "customer", ID: customerID}
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// GetCustomerByEmail retrieves a customer by email, for duplicate checks.
func (s *SQLiteStore) GetCustomerByEmail(email string) (*models.CustomerRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+customerColumns+` FROM customers WHERE email = ? AND is_deleted = 0`, email)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Kind: "customer", ID: email}
		}
		return nil, fmt.Errorf("failed to get customer by email: %w", err)
	}
	return customer, nil
}

// UpdateCustomer updates an existing customer record.
func (s *SQLiteStore) UpdateCustomer(c *models.CustomerRecord) error {
	address, err := marshalJSON(c.CurrentAddress)
	if err != nil {
		return fmt.Errorf("failed to encode address: %w", err)
	}

	var dob sql.NullTime
	if c.DateOfBirth != nil {
		dob = sql.NullTime{Time: *c.DateOfBirth, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE customers SET first_name = ?, middle_name = ?, last_name = ?, date_of_birth = ?,
			email = ?, phone_number = ?, alternate_phone = ?, current_address = ?, monthly_income = ?,
			credit_score = ?, kyc_status = ?, account_status = ?, notes = ?, updated_at = ?
		WHERE customer_id = ? AND is_deleted = 0`,
		c.FirstName, c.MiddleName, c.LastName, dob,
		c.Email, c.PhoneNumber, c.AlternatePhoneNumber, address, c.MonthlyIncome,
		c.CreditScore, string(c.KYCStatus), string(c.AccountStatus), c.Notes, c.UpdatedAt,
		c.CustomerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Kind: "customer", ID: c.CustomerID}
	}
	return nil
}

// SoftDeleteCustomer flags a customer as deleted. Loans already carrying the
// denormalized copy are unaffected.
func (s *SQLiteStore) SoftDeleteCustomer(customerID string, deletedAt time.Time) error {
	result, err := s.db.Exec(
		`UPDATE customers SET is_deleted = 1, updated_at = ? WHERE customer_id = ? AND is_deleted = 0`,
		deletedAt, customerID)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Kind: "customer", ID: customerID}
	}
	return nil
}

// customerSortColumns whitelists sortable columns for customer listings.
var customerSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"firstName":   "first_name",
	"lastName":    "last_name",
	"creditScore": "credit_score",
}

// ListCustomers returns a page of customers matching the filter plus the
// total match count, newest first unless sorted explicitly.
func (s *SQLiteStore) ListCustomers(f CustomerFilter) ([]*models.CustomerRecord, int, error) {
	where := "is_deleted = 0"
	var args []interface{}

	if f.KYCStatus != "" {
		where += " AND kyc_status = ?"
		args = append(args, string(f.KYCStatus))
	}
	if f.AccountStatus != "" {
		where += " AND account_status = ?"
		args = append(args, string(f.AccountStatus))
	}
	if f.Search != "" {
		where += " AND (first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR phone_number LIKE ?)"
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM customers WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	orderBy := "created_at DESC"
	if col, ok := customerSortColumns[f.SortBy]; ok {
		dir := "ASC"
		if f.SortOrder == "desc" {
			dir = "DESC"
		}
		orderBy = col + " " + dir
	}

	page, limit := normalizePage(f.Page, f.Limit)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.Query(
		`SELECT `+customerColumns+` FROM customers WHERE `+where+` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.CustomerRecord
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer row: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration: %w", err)
	}
	return customers, total, nil
}

// CreateUser inserts a new user. A duplicate user ID or username yields a
// ConflictError.
func (s *SQLiteStore) CreateUser(u *models.User) error {
	var lastLogin sql.NullTime
	if u.LastLoginAt != nil {
		lastLogin = sql.NullTime{Time: *u.LastLoginAt, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO users (user_id, username, email, first_name, last_name, password_hash,
			role, status, department, phone_number, last_login_at, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UserID, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash,
		string(u.Role), string(u.Status), u.Department, u.PhoneNumber, lastLogin,
		boolToInt(u.IsDeleted), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.ConflictError{Kind: "user", ID: u.Username}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

const userColumns = `user_id, username, email, first_name, last_name, password_hash, role, status,
	department, phone_number, last_login_at, is_deleted, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role, status string
	var lastLogin sql.NullTime
	var isDeleted int

	err := row.Scan(&u.UserID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&role, &status, &u.Department, &u.PhoneNumber, &lastLogin, &isDeleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	u.Role = models.UserRole(role)
	u.Status = models.UserStatus(status)
	u.IsDeleted = isDeleted != 0
	return &u, nil
}

// GetUser retrieves a user by ID. Soft-deleted users are not returned.
func (s *SQLiteStore) GetUser(userID string) (*models.User, error) {
	row := s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE user_id = ? AND is_deleted = 0`, userID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Kind: "user", ID: userID}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username, for login.
func (s *SQLiteStore) GetUserByUsername(username string) (*models.User, error) {
	row := s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE username = ? AND is_deleted = 0`, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Kind: "user", ID: username}
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// UpdateUser updates an existing user.
func (s *SQLiteStore) UpdateUser(u *models.User) error {
	var lastLogin sql.NullTime
	if u.LastLoginAt != nil {
		lastLogin = sql.NullTime{Time: *u.LastLoginAt, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE users SET email = ?, first_name = ?, last_name = ?, password_hash = ?, role = ?,
			status = ?, department = ?, phone_number = ?, last_login_at = ?, updated_at = ?
		WHERE user_id = ? AND is_deleted = 0`,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, string(u.Role),
		string(u.Status), u.Department, u.PhoneNumber, lastLogin, u.UpdatedAt,
		u.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Kind: "user", ID: u.UserID}
	}
	return nil
}

// SoftDeleteUser flags a user as deleted.
func (s *SQLiteStore) SoftDeleteUser(userID string, deletedAt time.Time) error {
	result, err := s.db.Exec(
		`UPDATE users SET is_deleted = 1, updated_at = ? WHERE user_id = ? AND is_deleted = 0`,
		deletedAt, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Kind: "user", ID: userID}
	}
	return nil
}

// ListUsers returns a page of users matching the filter plus the total match
// count, newest first.
func (s *SQLiteStore) ListUsers(f UserFilter) ([]*models.User, int, error) {
	where := "is_deleted = 0"
	var args []interface{}

	if f.Role != "" {
		where += " AND role = ?"
		args = append(args, string(f.Role))
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		where += " AND (username LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR email LIKE ?)"
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	page, limit := normalizePage(f.Page, f.Limit)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users WHERE `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration: %w", err)
	}
	return users, total, nil
}
