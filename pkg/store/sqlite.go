package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/models"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
// Decimal amounts are stored as TEXT so no precision is lost; nested
// aggregates (customer, outstanding snapshot, breakdowns) are stored as
// JSON-encoded TEXT columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Println("Database connection established and schema initialized.")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS loans (
		loan_id TEXT PRIMARY KEY,
		customer TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		original_principal TEXT NOT NULL,
		current_principal TEXT NOT NULL,
		interest_rate TEXT,
		paisa_rate TEXT,
		term_months INTEGER NOT NULL,
		remaining_terms INTEGER NOT NULL,
		repayment_frequency TEXT NOT NULL,
		loan_type TEXT NOT NULL,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		expected_monthly_payment TEXT NOT NULL DEFAULT '0',
		missed_payments TEXT NOT NULL,
		current_outstanding TEXT NOT NULL,
		status TEXT NOT NULL,
		substatus TEXT NOT NULL,
		loan_provider TEXT NOT NULL,
		updated_by TEXT,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS payments (
		payment_id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		payment_details TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		is_partial INTEGER NOT NULL DEFAULT 0,
		days_past_due INTEGER NOT NULL DEFAULT 0,
		outstanding_after TEXT,
		processed_by TEXT NOT NULL,
		processed_at DATETIME,
		failure_reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY(loan_id) REFERENCES loans(loan_id)
	);
	CREATE TABLE IF NOT EXISTS customers (
		customer_id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		middle_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL,
		date_of_birth DATETIME,
		email TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL,
		alternate_phone TEXT NOT NULL DEFAULT '',
		current_address TEXT NOT NULL,
		monthly_income TEXT NOT NULL DEFAULT '0',
		credit_score INTEGER NOT NULL DEFAULT 0,
		kyc_status TEXT NOT NULL,
		account_status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		is_deleted INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		last_login_at DATETIME,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_loans_customer ON loans(customer_id);
	CREATE INDEX IF NOT EXISTS idx_payments_loan ON payments(loan_id);
	CREATE INDEX IF NOT EXISTS idx_customers_email ON customers(email);
	`
	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation reports whether err is a primary-key or unique
// constraint failure.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}

func marshalJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func marshalNullableJSON(v interface{}, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	str, err := marshalJSON(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: str, Valid: true}, nil
}

// CreateLoan inserts a new loan. A duplicate loan ID yields a ConflictError.
func (s *SQLiteStore) CreateLoan(loan *models.Loan) error {
	customer, err := marshalJSON(loan.Customer)
	if err != nil {
		return fmt.Errorf("failed to encode customer: %w", err)
	}
	rate, err := marshalNullableJSON(loan.InterestRate, loan.InterestRate == nil)
	if err != nil {
		return fmt.Errorf("failed to encode interest rate: %w", err)
	}
	paisa, err := marshalNullableJSON(loan.PaisaRate, loan.PaisaRate == nil)
	if err != nil {
		return fmt.Errorf("failed to encode paisa rate: %w", err)
	}
	missed, err := marshalJSON(loan.MissedPayments)
	if err != nil {
		return fmt.Errorf("failed to encode missed payments: %w", err)
	}
	outstanding, err := marshalJSON(loan.CurrentOutstanding)
	if err != nil {
		return fmt.Errorf("failed to encode outstanding: %w", err)
	}
	provider, err := marshalJSON(loan.LoanProvider)
	if err != nil {
		return fmt.Errorf("failed to encode loan provider: %w", err)
	}
	updatedBy, err := marshalNullableJSON(loan.UpdatedBy, loan.UpdatedBy == nil)
	if err != nil {
		return fmt.Errorf("failed to encode updated by: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO loans (loan_id, customer, customer_id, original_principal, current_principal,
			interest_rate, paisa_rate, term_months, remaining_terms, repayment_frequency, loan_type,
			start_date, end_date, expected_monthly_payment, missed_payments, current_outstanding,
			status, substatus, loan_provider, updated_by, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.LoanID, customer, loan.Customer.CustomerID, loan.OriginalPrincipal, loan.CurrentPrincipal,
		rate, paisa, loan.TermMonths, loan.RemainingTerms, string(loan.RepaymentFrequency), string(loan.Type),
		loan.StartDate, loan.EndDate, loan.ExpectedMonthlyPayment, missed, outstanding,
		string(loan.Status), string(loan.Substatus), provider, updatedBy, boolToInt(loan.IsDeleted),
		loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.ConflictError{Kind: "loan", ID: loan.LoanID}
		}
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

const loanColumns = `loan_id, customer, original_principal, current_principal, interest_rate,
	paisa_rate, term_months, remaining_terms, repayment_frequency, loan_type, start_date, end_date,
	expected_monthly_payment, missed_payments, current_outstanding, status, substatus, loan_provider,
	updated_by, is_deleted, created_at, updated_at`

// GetLoan retrieves a loan by its ID. Soft-deleted loans are not returned.
func (s *SQLiteStore) GetLoan(loanID string) (*models.Loan, error) {
	row := s.db.QueryRow(
		`SELECT `+loanColumns+` FROM loans WHERE loan_id = ? AND is_deleted = 0`, loanID)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Kind: "loan", ID: loanID}
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	var loan models.Loan
	var customer, missed, outstanding, provider string
	var rate, paisa, updatedBy sql.NullString
	var frequency, loanType, status, substatus string
	var isDeleted int

	err := row.Scan(&loan.LoanID, &customer, &loan.OriginalPrincipal, &loan.CurrentPrincipal,
		&rate, &paisa, &loan.TermMonths, &loan.RemainingTerms, &frequency, &loanType,
		&loan.StartDate, &loan.EndDate, &loan.ExpectedMonthlyPayment, &missed, &outstanding,
		&status, &substatus, &provider, &updatedBy, &isDeleted, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(customer), &loan.Customer); err != nil {
		return nil, fmt.Errorf("failed to decode customer: %w", err)
	}
	if rate.Valid {
		loan.InterestRate = &models.InterestRate{}
		if err := json.Unmarshal([]byte(rate.String), loan.InterestRate); err != nil {
			return nil, fmt.Errorf("failed to decode interest rate: %w", err)
		}
	}
	if paisa.Valid {
		loan.PaisaRate = &models.PaisaRate{}
		if err := json.Unmarshal([]byte(paisa.String), loan.PaisaRate); err != nil {
			return nil, fmt.Errorf("failed to decode paisa rate: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(missed), &loan.MissedPayments); err != nil {
		return nil, fmt.Errorf("failed to decode missed payments: %w", err)
	}
	if err := json.Unmarshal([]byte(outstanding), &loan.CurrentOutstanding); err != nil {
		return nil, fmt.Errorf("failed to decode outstanding: %w", err)
	}
	if err := json.Unmarshal([]byte(provider), &loan.LoanProvider); err != nil {
		return nil, fmt.Errorf("failed to decode loan provider: %w", err)
	}
	if updatedBy.Valid {
		loan.UpdatedBy = &models.LoanProvider{}
		if err := json.Unmarshal([]byte(updatedBy.String), loan.UpdatedBy); err != nil {
			return nil, fmt.Errorf("failed to decode updated by: %w", err)
		}
	}
	loan.RepaymentFrequency = models.RepaymentFrequency(frequency)
	loan.Type = models.LoanType(loanType)
	loan.Status = models.LoanStatus(status)
	loan.Substatus = models.LoanSubstatus(substatus)
	loan.IsDeleted = isDeleted != 0
	return &loan, nil
}

// UpdateLoan updates an existing loan in the database.
func (s *SQLiteStore) UpdateLoan(loan *models.Loan) error {
	missed, err := marshalJSON(loan.MissedPayments)
	if err != nil {
		return fmt.Errorf("failed to encode missed payments: %w", err)
	}
	outstanding, err := marshalJSON(loan.CurrentOutstanding)
	if err != nil {
		return fmt.Errorf("failed to encode outstanding: %w", err)
	}
	rate, err := marshalNullableJSON(loan.InterestRate, loan.InterestRate == nil)
	if err != nil {
		return fmt.Errorf("failed to encode interest rate: %w", err)
	}
	paisa, err := marshalNullableJSON(loan.PaisaRate, loan.PaisaRate == nil)
	if err != nil {
		return fmt.Errorf("failed to encode paisa rate: %w", err)
	}
	updatedBy, err := marshalNullableJSON(loan.UpdatedBy, loan.UpdatedBy == nil)
	if err != nil {
		return fmt.Errorf("failed to encode updated by: %w", err)
	}

	result, err := s.db.Exec(
		`UPDATE loans SET current_principal = ?, interest_rate = ?, paisa_rate = ?, term_months = ?,
			remaining_terms = ?, start_date = ?, end_date = ?, expected_monthly_payment = ?,
			missed_payments = ?, current_outstanding = ?, status = ?, substatus = ?, updated_by = ?,
			updated_at = ?
		WHERE loan_id = ? AND is_deleted = 0`,
		loan.CurrentPrincipal, rate, paisa, loan.TermMonths,
		loan.RemainingTerms, loan.StartDate, loan.EndDate, loan.ExpectedMonthlyPayment,
		missed, outstanding, string(loan.Status), string(loan.Substatus), updatedBy,
		loan.UpdatedAt,
		loan.LoanID,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Kind: "loan", ID: loan.LoanID}
	}
	return nil
}

// SoftDeleteLoan flags a loan as deleted. The record and its payment history
// are retained. The caller supplies the deletion timestamp.
func (s *SQLiteStore) SoftDeleteLoan(loanID string, deletedAt time.Time) error {
	result, err := s.db.Exec(
		`UPDATE loans SET is_deleted = 1, updated_at = ? WHERE loan_id = ? AND is_deleted = 0`,
		deletedAt, loanID)
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Kind: "loan", ID: loanID}
	}
	return nil
}

// loanSortColumns whitelists sortable columns for loan listings.
var loanSortColumns = map[string]string{
	"createdAt":         "created_at",
	"updatedAt":         "updated_at",
	"startDate":         "start_date",
	"endDate":           "end_date",
	"originalPrincipal": "CAST(original_principal AS REAL)",
	"status":            "status",
}

// ListLoans returns a page of loans matching the filter plus the total match
// count. Without an explicit sort, loans are ordered by status priority
// (ACTIVE first, then OVERDUE, DEFAULTED, PAID_OFF, RESTRUCTURED) and newest
// first within each status.
func (s *SQLiteStore) ListLoans(f LoanFilter) ([]*models.Loan, int, error) {
	where := "is_deleted = 0"
	var args []interface{}

	if f.CustomerID != "" {
		where += " AND customer_id = ?"
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Substatus != "" {
		where += " AND substatus = ?"
		args = append(args, string(f.Substatus))
	}
	if f.Search != "" {
		where += " AND (loan_id LIKE ? OR customer LIKE ?)"
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM loans WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count loans: %w", err)
	}

	orderBy := `CASE status
		WHEN 'ACTIVE' THEN 1 WHEN 'OVERDUE' THEN 2 WHEN 'DEFAULTED' THEN 3
		WHEN 'PAID_OFF' THEN 4 WHEN 'RESTRUCTURED' THEN 5 ELSE 6 END, created_at DESC`
	if col, ok := loanSortColumns[f.SortBy]; ok {
		dir := "ASC"
		if f.SortOrder == "desc" {
			dir = "DESC"
		}
		orderBy = col + " " + dir
	}

	page, limit := normalizePage(f.Page, f.Limit)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.Query(
		`SELECT `+loanColumns+` FROM loans WHERE `+where+` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, total, nil
}

// GetActiveLoans retrieves all loans still subject to lifecycle transitions
// (status ACTIVE or OVERDUE), for the overdue sweep.
func (s *SQLiteStore) GetActiveLoans() ([]*models.Loan, error) {
	rows, err := s.db.Query(
		`SELECT ` + loanColumns + ` FROM loans WHERE is_deleted = 0 AND status IN ('ACTIVE', 'OVERDUE')`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

// CreatePayment inserts a new payment record.
func (s *SQLiteStore) CreatePayment(payment *models.Payment) error {
	details, err := marshalJSON(payment.PaymentDetails)
	if err != nil {
		return fmt.Errorf("failed to encode payment details: %w", err)
	}
	method, err := marshalJSON(payment.PaymentMethod)
	if err != nil {
		return fmt.Errorf("failed to encode payment method: %w", err)
	}
	outstanding, err := marshalNullableJSON(payment.OutstandingAfterPayment, payment.OutstandingAfterPayment == nil)
	if err != nil {
		return fmt.Errorf("failed to encode outstanding snapshot: %w", err)
	}

	var processedAt sql.NullTime
	if payment.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *payment.ProcessedAt, Valid: true}
	}

	_, err = s.db.Exec(
		`INSERT INTO payments (payment_id, loan_id, customer_id, payment_details, payment_method,
			status, payment_type, is_partial, days_past_due, outstanding_after, processed_by,
			processed_at, failure_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.PaymentID, payment.LoanID, payment.CustomerID, details, method,
		string(payment.Status), string(payment.PaymentType), boolToInt(payment.IsPartialPayment),
		payment.DaysPastDue, outstanding, payment.ProcessedBy,
		processedAt, payment.FailureReason, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.ConflictError{Kind: "payment", ID: payment.PaymentID}
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

const paymentColumns = `payment_id, loan_id, customer_id, payment_details, payment_method, status,
	payment_type, is_partial, days_past_due, outstanding_after, processed_by, processed_at,
	failure_reason, created_at, updated_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var details, method, status, paymentType string
	var outstanding sql.NullString
	var processedAt sql.NullTime
	var isPartial int

	err := row.Scan(&p.PaymentID, &p.LoanID, &p.CustomerID, &details, &method, &status,
		&paymentType, &isPartial, &p.DaysPastDue, &outstanding, &p.ProcessedBy, &processedAt,
		&p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(details), &p.PaymentDetails); err != nil {
		return nil, fmt.Errorf("failed to decode payment details: %w", err)
	}
	if err := json.Unmarshal([]byte(method), &p.PaymentMethod); err != nil {
		return nil, fmt.Errorf("failed to decode payment method: %w", err)
	}
	if outstanding.Valid {
		p.OutstandingAfterPayment = &models.Outstanding{}
		if err := json.Unmarshal([]byte(outstanding.String), p.OutstandingAfterPayment); err != nil {
			return nil, fmt.Errorf("failed to decode outstanding snapshot: %w", err)
		}
	}
	if processedAt.Valid {
		p.ProcessedAt = &processedAt.Time
	}
	p.Status = models.PaymentStatus(status)
	p.PaymentType = models.PaymentType(paymentType)
	p.IsPartialPayment = isPartial != 0
	return &p, nil
}

// GetPayment retrieves a payment by its ID.
func (s *SQLiteStore) GetPayment(paymentID string) (*models.Payment, error) {
	row := s.db.QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE payment_id = ?`, paymentID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Kind: "payment", ID: paymentID}
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// UpdatePayment updates an existing payment record.
func (s *SQLiteStore) UpdatePayment(payment *models.Payment) error {
	details, err := marshalJSON(payment.PaymentDetails)
	if err != nil {
		return fmt.Errorf("failed to encode payment details: %w", err)
	}
	outstanding, err := marshalNullableJSON(payment.OutstandingAfterPayment, payment.OutstandingAfterPayment == nil)
	if err != nil {
		return fmt.Errorf("failed to encode outstanding snapshot: %w", err)
	}

	var processedAt sql.NullTime
	if payment.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *payment.ProcessedAt, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE payments SET payment_details = ?, status = ?, is_partial = ?, days_past_due = ?,
			outstanding_after = ?, processed_at = ?, failure_reason = ?, updated_at = ?
		WHERE payment_id = ?`,
		details, string(payment.Status), boolToInt(payment.IsPartialPayment), payment.DaysPastDue,
		outstanding, processedAt, payment.FailureReason, payment.UpdatedAt,
		payment.PaymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Kind: "payment", ID: payment.PaymentID}
	}
	return nil
}

// paymentSortColumns whitelists sortable columns for payment listings.
var paymentSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"daysPastDue": "days_past_due",
	"status":      "status",
}

// ListPayments returns a page of payments matching the filter plus the total
// match count, newest first unless sorted explicitly.
func (s *SQLiteStore) ListPayments(f PaymentFilter) ([]*models.Payment, int, error) {
	where := "1 = 1"
	var args []interface{}

	if f.LoanID != "" {
		where += " AND loan_id = ?"
		args = append(args, f.LoanID)
	}
	if f.CustomerID != "" {
		where += " AND customer_id = ?"
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.PaymentType != "" {
		where += " AND payment_type = ?"
		args = append(args, string(f.PaymentType))
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM payments WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	orderBy := "created_at DESC"
	if col, ok := paymentSortColumns[f.SortBy]; ok {
		dir := "ASC"
		if f.SortOrder == "desc" {
			dir = "DESC"
		}
		orderBy = col + " " + dir
	}

	page, limit := normalizePage(f.Page, f.Limit)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.Query(
		`SELECT `+paymentColumns+` FROM payments WHERE `+where+` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration: %w", err)
	}
	return payments, total, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
