package store

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/shopspring/decimal"
)

func testLoan(loanID string) *models.Loan {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	loan := &models.Loan{
		LoanID: loanID,
		Customer: models.Customer{
			CustomerID:  "CUS987654321",
			FirstName:   "John",
			LastName:    "Doe",
			Email:       "john.doe@example.com",
			PhoneNumber: "+1234567890",
		},
		OriginalPrincipal: decimal.NewFromInt(15000),
		CurrentPrincipal:  decimal.NewFromInt(15000),
		InterestRate: &models.InterestRate{
			AnnualPercentage:      decimal.NewFromInt(18),
			MonthlyPercentage:     decimal.NewFromFloat(1.5),
			TotalInterestRupees:   decimal.NewFromInt(2700),
			MonthlyInterestRupees: decimal.NewFromInt(225),
		},
		TermMonths:             12,
		RemainingTerms:         12,
		RepaymentFrequency:     models.FrequencyMonthly,
		Type:                   models.LoanTypeFixed,
		StartDate:              start,
		EndDate:                start.AddDate(1, 0, 0),
		ExpectedMonthlyPayment: decimal.NewFromInt(1475),
		CurrentOutstanding: models.Outstanding{
			RemainingPrincipal: decimal.NewFromInt(15000),
			TotalOutstanding:   decimal.NewFromInt(15000),
			LastCalculatedDate: now,
		},
		Status:    models.LoanStatusActive,
		Substatus: models.SubstatusCurrent,
		LoanProvider: models.LoanProvider{
			UserID:   "USR123",
			Username: "admin",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return loan
}

func TestSQLiteStore_CreateAndGetLoan(t *testing.T) {
	dbFile := "test_loans.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	loan := testLoan("LN-test-1")
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	fetched, err := s.GetLoan(loan.LoanID)
	if err != nil {
		t.Fatalf("Failed to get loan: %v", err)
	}

	if fetched.Customer.CustomerID != loan.Customer.CustomerID {
		t.Errorf("Expected customer %s, got %s", loan.Customer.CustomerID, fetched.Customer.CustomerID)
	}
	if !fetched.OriginalPrincipal.Equal(loan.OriginalPrincipal) {
		t.Errorf("Expected principal %s, got %s", loan.OriginalPrincipal, fetched.OriginalPrincipal)
	}
	if fetched.InterestRate == nil {
		t.Fatal("Expected interest rate to round-trip")
	}
	if !fetched.InterestRate.TotalInterestRupees.Equal(decimal.NewFromInt(2700)) {
		t.Errorf("Expected total interest 2700, got %s", fetched.InterestRate.TotalInterestRupees)
	}
	if fetched.PaisaRate != nil {
		t.Error("Expected no paisa rate on a percentage loan")
	}
	if fetched.Status != models.LoanStatusActive || fetched.Substatus != models.SubstatusCurrent {
		t.Errorf("Expected ACTIVE/CURRENT, got %s/%s", fetched.Status, fetched.Substatus)
	}
	if !fetched.CurrentOutstanding.TotalOutstanding.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("Expected outstanding 15000, got %s", fetched.CurrentOutstanding.TotalOutstanding)
	}
}

func TestSQLiteStore_DuplicateLoanID(t *testing.T) {
	dbFile := "test_conflict.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if err := s.CreateLoan(testLoan("LN-dup")); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	var conflict *models.ConflictError
	err = s.CreateLoan(testLoan("LN-dup"))
	if !errors.As(err, &conflict) {
		t.Errorf("Expected ConflictError for duplicate loan ID, got %v", err)
	}
}

func TestSQLiteStore_SoftDelete(t *testing.T) {
	dbFile := "test_softdelete.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	loan := testLoan("LN-del")
	s.CreateLoan(loan)

	if err := s.SoftDeleteLoan(loan.LoanID, time.Now()); err != nil {
		t.Fatalf("Failed to soft-delete loan: %v", err)
	}

	var nerr *models.NotFoundError
	if _, err := s.GetLoan(loan.LoanID); !errors.As(err, &nerr) {
		t.Errorf("Expected NotFoundError for deleted loan, got %v", err)
	}

	loans, total, err := s.ListLoans(LoanFilter{})
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if total != 0 || len(loans) != 0 {
		t.Errorf("Expected deleted loan excluded from listing, got %d", total)
	}

	// Deleting twice reports not found.
	if err := s.SoftDeleteLoan(loan.LoanID, time.Now()); !errors.As(err, &nerr) {
		t.Errorf("Expected NotFoundError on second delete, got %v", err)
	}
}

func TestSQLiteStore_ListLoansFilterAndPage(t *testing.T) {
	dbFile := "test_list.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	for i, id := range []string{"LN-a", "LN-b", "LN-c"} {
		loan := testLoan(id)
		if i == 2 {
			loan.Customer.CustomerID = "CUS-other"
			loan.Status = models.LoanStatusPaidOff
		}
		if err := s.CreateLoan(loan); err != nil {
			t.Fatalf("Failed to create loan %s: %v", id, err)
		}
	}

	loans, total, err := s.ListLoans(LoanFilter{Status: models.LoanStatusActive})
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if total != 2 || len(loans) != 2 {
		t.Errorf("Expected 2 active loans, got %d", total)
	}

	loans, total, err = s.ListLoans(LoanFilter{CustomerID: "CUS-other"})
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if total != 1 || len(loans) != 1 || loans[0].LoanID != "LN-c" {
		t.Errorf("Expected only LN-c for CUS-other, got %d", total)
	}

	// Page size 2: first page has 2, second has 1; total stays 3.
	loans, total, err = s.ListLoans(LoanFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if total != 3 || len(loans) != 2 {
		t.Errorf("Expected page of 2 with total 3, got %d/%d", len(loans), total)
	}
	loans, _, err = s.ListLoans(LoanFilter{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if len(loans) != 1 {
		t.Errorf("Expected second page of 1, got %d", len(loans))
	}

	// Status priority puts ACTIVE before PAID_OFF by default.
	loans, _, err = s.ListLoans(LoanFilter{})
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if loans[len(loans)-1].LoanID != "LN-c" {
		t.Errorf("Expected PAID_OFF loan last, got %s", loans[len(loans)-1].LoanID)
	}

	loans, total, err = s.ListLoans(LoanFilter{Search: "CUS-other"})
	if err != nil {
		t.Fatalf("Failed to search loans: %v", err)
	}
	if total != 1 || loans[0].LoanID != "LN-c" {
		t.Errorf("Expected search to match LN-c, got %d", total)
	}
}

func TestSQLiteStore_Payments(t *testing.T) {
	dbFile := "test_payments.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	loan := testLoan("LN-pay")
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	now := time.Now().UTC()
	paid := now
	payment := &models.Payment{
		PaymentID:  "PAY-test-1",
		LoanID:     loan.LoanID,
		CustomerID: loan.Customer.CustomerID,
		PaymentDetails: models.PaymentDetails{
			DueDate:        now,
			PaidDate:       &paid,
			ExpectedAmount: decimal.NewFromInt(1475),
			PaidAmount:     decimal.NewFromInt(1475),
			Breakdown: models.PaymentBreakdown{
				PrincipalPortion: decimal.NewFromInt(1475),
			},
		},
		PaymentMethod: models.PaymentMethod{Type: models.MethodUPI, Reference: "upi-123"},
		Status:        models.PaymentStatusPending,
		PaymentType:   models.PaymentTypeRegular,
		ProcessedBy:   "USR123",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.CreatePayment(payment); err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	fetched, err := s.GetPayment(payment.PaymentID)
	if err != nil {
		t.Fatalf("Failed to get payment: %v", err)
	}
	if !fetched.PaymentDetails.PaidAmount.Equal(decimal.NewFromInt(1475)) {
		t.Errorf("Expected paid amount 1475, got %s", fetched.PaymentDetails.PaidAmount)
	}
	if fetched.PaymentMethod.Reference != "upi-123" {
		t.Errorf("Expected method reference upi-123, got %s", fetched.PaymentMethod.Reference)
	}

	// Complete the payment with a post-payment snapshot.
	processedAt := time.Now().UTC()
	fetched.Status = models.PaymentStatusCompleted
	fetched.ProcessedAt = &processedAt
	fetched.OutstandingAfterPayment = &models.Outstanding{
		RemainingPrincipal: decimal.NewFromInt(13525),
		TotalOutstanding:   decimal.NewFromInt(13525),
		LastCalculatedDate: processedAt,
	}
	fetched.UpdatedAt = processedAt
	if err := s.UpdatePayment(fetched); err != nil {
		t.Fatalf("Failed to update payment: %v", err)
	}

	completed, err := s.GetPayment(payment.PaymentID)
	if err != nil {
		t.Fatalf("Failed to get payment: %v", err)
	}
	if completed.Status != models.PaymentStatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", completed.Status)
	}
	if completed.OutstandingAfterPayment == nil ||
		!completed.OutstandingAfterPayment.TotalOutstanding.Equal(decimal.NewFromInt(13525)) {
		t.Error("Expected outstanding snapshot to round-trip")
	}

	payments, total, err := s.ListPayments(PaymentFilter{LoanID: loan.LoanID})
	if err != nil {
		t.Fatalf("Failed to list payments: %v", err)
	}
	if total != 1 || len(payments) != 1 {
		t.Errorf("Expected 1 payment for loan, got %d", total)
	}
}
