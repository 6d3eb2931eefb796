package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/Gowtham029/loan-app-backend/pkg/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxIDRetries = 5

// Config carries the lifecycle tunables that are deployment policy rather
// than core rules.
type Config struct {
	// GraceDays is the window after a due date during which a loan sits in
	// GRACE_PERIOD before turning delinquent.
	GraceDays int
	// DefaultThreshold is the open missed-payment count at which a
	// delinquent loan is declared DEFAULTED.
	DefaultThreshold int
	// LateFeePerPeriod is the flat fee added for each missed period.
	LateFeePerPeriod decimal.Decimal
	// PenaltyPolicy computes per-period delinquency penalties.
	PenaltyPolicy PenaltyPolicy
}

// Ledger handles the business logic for loans and payments.
type Ledger struct {
	storage store.Storage
	cfg     Config
	now     func() time.Time
}

// NewLedger creates a new Ledger with a given Storage implementation.
// Zero-value config fields fall back to defaults: 3 grace days, default
// after 3 open missed payments, a 500 late fee and a 2.5% penalty rate.
func NewLedger(s store.Storage, cfg Config) *Ledger {
	if cfg.GraceDays <= 0 {
		cfg.GraceDays = 3
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = 3
	}
	if cfg.LateFeePerPeriod.IsZero() {
		cfg.LateFeePerPeriod = decimal.NewFromInt(500)
	}
	if cfg.PenaltyPolicy == nil {
		cfg.PenaltyPolicy = RatePenaltyPolicy{PenaltyRate: decimal.NewFromFloat(2.5)}
	}
	return &Ledger{
		storage: s,
		cfg:     cfg,
		now:     time.Now,
	}
}

func newLoanID() string    { return "LN-" + uuid.NewString() }
func newPaymentID() string { return "PAY-" + uuid.NewString() }

// CreateLoan validates and enriches a creation request and persists the
// resulting loan. The generated loan ID is regenerated on the rare
// collision, up to a bounded number of attempts.
func (l *Ledger) CreateLoan(req CreateLoanRequest) (*models.Loan, error) {
	loan, err := enrichLoan(req, l.now())
	if err != nil {
		return nil, err
	}
	loan.MissedPayments.LateFees.FeePerMonth = l.cfg.LateFeePerPeriod

	var conflict *models.ConflictError
	for attempt := 0; attempt < maxIDRetries; attempt++ {
		loan.LoanID = newLoanID()
		err = l.storage.CreateLoan(loan)
		if err == nil {
			return loan, nil
		}
		if !errors.As(err, &conflict) {
			return nil, fmt.Errorf("failed to store loan: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to store loan after %d id collisions: %w", maxIDRetries, err)
}

// GetLoan retrieves a loan by its ID.
func (l *Ledger) GetLoan(loanID string) (*models.Loan, error) {
	if loanID == "" {
		return nil, models.Invalid("loanId", "loan ID is required")
	}
	return l.storage.GetLoan(loanID)
}

// ListLoans returns a page of loans plus the total match count.
func (l *Ledger) ListLoans(f store.LoanFilter) ([]*models.Loan, int, error) {
	return l.storage.ListLoans(f)
}

// DeleteLoan soft-deletes a loan. The record and its payment history are
// kept but excluded from all reads.
func (l *Ledger) DeleteLoan(loanID string) error {
	if loanID == "" {
		return models.Invalid("loanId", "loan ID is required")
	}
	return l.storage.SoftDeleteLoan(loanID, l.now())
}

// RestructureRequest carries the administratively reset loan terms.
type RestructureRequest struct {
	NewPrincipal  decimal.Decimal `json:"newPrincipal"`
	NewTermMonths int             `json:"newTermMonths"`
	NewEndDate    time.Time       `json:"newEndDate"`
}

// Restructure applies an explicit administrative restructuring: principal
// and term are reset to the supplied values, the outstanding snapshot is
// rebuilt from the new principal, and the loan moves to RESTRUCTURED. Only
// flexible loans may be restructured.
func (l *Ledger) Restructure(loanID string, req RestructureRequest, by models.LoanProvider) (*models.Loan, error) {
	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Type != models.LoanTypeFlexible {
		return nil, models.Invalid("type", "fixed loans cannot be restructured")
	}
	if !req.NewPrincipal.IsPositive() {
		return nil, models.Invalid("newPrincipal", "must be positive")
	}
	if req.NewTermMonths < 1 {
		return nil, models.Invalid("newTermMonths", "must be at least 1")
	}
	if err := transition(loan, models.LoanStatusRestructured, loan.Substatus); err != nil {
		return nil, err
	}

	now := l.now()
	loan.CurrentPrincipal = req.NewPrincipal
	loan.TermMonths = req.NewTermMonths
	loan.RemainingTerms = req.NewTermMonths
	if !req.NewEndDate.IsZero() {
		if !req.NewEndDate.After(loan.StartDate) {
			return nil, models.Invalid("newEndDate", "must be after start date")
		}
		loan.EndDate = req.NewEndDate
	}
	loan.CurrentOutstanding = models.Outstanding{
		RemainingPrincipal: req.NewPrincipal,
		PendingInterest:    decimal.Zero,
		PenaltyAmount:      decimal.Zero,
		LateFees:           decimal.Zero,
		TotalOutstanding:   req.NewPrincipal,
		LastCalculatedDate: now,
	}
	loan.UpdatedBy = &by
	loan.UpdatedAt = now

	if err := l.storage.UpdateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}
	return loan, nil
}

// PaymentRequest is the input for recording a payment against a loan.
type PaymentRequest struct {
	Amount      decimal.Decimal      `json:"amount"`
	PaymentType models.PaymentType   `json:"paymentType"`
	Method      models.PaymentMethod `json:"paymentMethod"`
	DueDate     time.Time            `json:"dueDate"`
	PaidDate    time.Time            `json:"paidDate"`
	ProcessedBy string               `json:"processedBy"`
}

// RecordPayment allocates a payment across the loan's outstanding buckets
// and persists both records. The payment is written PENDING first, then the
// loan is updated, then the payment is completed with the post-payment
// snapshot. The two writes are not transactional: if the loan update fails
// the payment is marked FAILED, and a payment left PENDING after a crash
// must be reconciled out of band.
func (l *Ledger) RecordPayment(loanID string, req PaymentRequest) (*models.Payment, error) {
	if req.ProcessedBy == "" {
		return nil, models.Invalid("processedBy", "processor identity is required")
	}
	switch req.PaymentType {
	case models.PaymentTypeRegular, models.PaymentTypeFullSettlement,
		models.PaymentTypePartial, models.PaymentTypePenalty:
	default:
		return nil, models.Invalid("paymentType", "unknown payment type")
	}

	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != models.LoanStatusActive && loan.Status != models.LoanStatusOverdue {
		return nil, models.Invalid("status", fmt.Sprintf("loan is %s and cannot accept payments", loan.Status))
	}

	now := l.now()
	paidDate := req.PaidDate
	if paidDate.IsZero() {
		paidDate = now
	}
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = nextDueDate(loan)
	}

	alloc, err := AllocatePayment(loan.CurrentOutstanding, req.Amount, req.PaymentType, dueDate, paidDate)
	if err != nil {
		return nil, err
	}

	// A settlement that closes the loan is never partial, whatever its size.
	isPartial := req.PaymentType == models.PaymentTypePartial ||
		(req.PaymentType != models.PaymentTypeFullSettlement &&
			req.Amount.LessThan(loan.ExpectedMonthlyPayment))

	payment := &models.Payment{
		PaymentID:  newPaymentID(),
		LoanID:     loan.LoanID,
		CustomerID: loan.Customer.CustomerID,
		PaymentDetails: models.PaymentDetails{
			DueDate:        dueDate,
			PaidDate:       &paidDate,
			ExpectedAmount: loan.ExpectedMonthlyPayment,
			PaidAmount:     req.Amount,
			Breakdown:      alloc.Breakdown,
		},
		PaymentMethod:    req.Method,
		Status:           models.PaymentStatusPending,
		PaymentType:      req.PaymentType,
		IsPartialPayment: isPartial,
		DaysPastDue:      alloc.DaysPastDue,
		ProcessedBy:      req.ProcessedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := l.storage.CreatePayment(payment); err != nil {
		return nil, fmt.Errorf("failed to store payment: %w", err)
	}

	// A REGULAR payment covering the expected periodic amount settles one
	// scheduled period; partial payments leave the schedule untouched.
	coveredExpected := req.PaymentType == models.PaymentTypeRegular &&
		req.Amount.GreaterThanOrEqual(loan.ExpectedMonthlyPayment)
	if coveredExpected && loan.RemainingTerms > 0 {
		loan.RemainingTerms--
	}
	loan.CurrentOutstanding = alloc.NewOutstanding
	loan.CurrentPrincipal = alloc.NewOutstanding.RemainingPrincipal
	if err := applyPaymentTransition(loan, coveredExpected); err != nil {
		return nil, err
	}
	loan.UpdatedAt = now

	if err := l.storage.UpdateLoan(loan); err != nil {
		payment.Status = models.PaymentStatusFailed
		payment.FailureReason = fmt.Sprintf("loan update failed: %v", err)
		payment.UpdatedAt = l.now()
		if uerr := l.storage.UpdatePayment(payment); uerr != nil {
			fmt.Printf("Error marking payment %s failed: %v\n", payment.PaymentID, uerr)
		}
		return nil, fmt.Errorf("failed to update loan after payment: %w", err)
	}

	processedAt := l.now()
	payment.Status = models.PaymentStatusCompleted
	payment.OutstandingAfterPayment = &alloc.NewOutstanding
	payment.ProcessedAt = &processedAt
	payment.UpdatedAt = processedAt
	if err := l.storage.UpdatePayment(payment); err != nil {
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}
	return payment, nil
}

// GetPayment retrieves a payment by its ID.
func (l *Ledger) GetPayment(paymentID string) (*models.Payment, error) {
	if paymentID == "" {
		return nil, models.Invalid("paymentId", "payment ID is required")
	}
	return l.storage.GetPayment(paymentID)
}

// ListPayments returns a page of payments plus the total match count.
func (l *Ledger) ListPayments(f store.PaymentFilter) ([]*models.Payment, int, error) {
	return l.storage.ListPayments(f)
}

// CancelPayment marks a not-yet-settled payment CANCELLED. Payments are
// never deleted.
func (l *Ledger) CancelPayment(paymentID, reason string) (*models.Payment, error) {
	payment, err := l.storage.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusPendingVerification {
		return nil, models.Invalid("status", fmt.Sprintf("payment is %s and cannot be cancelled", payment.Status))
	}
	payment.Status = models.PaymentStatusCancelled
	payment.FailureReason = reason
	payment.UpdatedAt = l.now()
	if err := l.storage.UpdatePayment(payment); err != nil {
		return nil, fmt.Errorf("failed to cancel payment: %w", err)
	}
	return payment, nil
}

// RunOverdueSweep walks every active or overdue loan and applies the
// lifecycle transitions that follow from the calendar: into the grace
// window once a due date passes unpaid, to delinquent once the window is
// exceeded (charging one missed period each time), and to defaulted once
// open missed payments reach the configured threshold. The sweep is
// idempotent for a given clock reading.
func (l *Ledger) RunOverdueSweep(now time.Time) {
	loans, err := l.storage.GetActiveLoans()
	if err != nil {
		fmt.Printf("Error getting active loans for overdue sweep: %v\n", err)
		return
	}

	for _, loan := range loans {
		changed, err := l.sweepLoan(loan, now)
		if err != nil {
			fmt.Printf("Error sweeping loan %s: %v\n", loan.LoanID, err)
			continue
		}
		if !changed {
			continue
		}
		loan.UpdatedAt = now
		if err := l.storage.UpdateLoan(loan); err != nil {
			fmt.Printf("Error updating loan %s during overdue sweep: %v\n", loan.LoanID, err)
		}
	}
}

// sweepLoan applies calendar-driven transitions to one loan and reports
// whether the loan changed.
func (l *Ledger) sweepLoan(loan *models.Loan, now time.Time) (bool, error) {
	paidPeriods := loan.TermMonths - loan.RemainingTerms
	due := periodsDue(loan, now)
	unpaid := due - paidPeriods
	if unpaid <= 0 {
		return false, nil
	}

	// Periods whose grace window has fully lapsed.
	lapsed := 0
	for n := paidPeriods + 1; n <= due; n++ {
		graceEnd := dueDateOfPeriod(loan, n).AddDate(0, 0, l.cfg.GraceDays)
		if now.After(graceEnd) {
			lapsed++
		}
	}

	openMissed := loan.MissedPayments.Count - loan.MissedPayments.Closed
	changed := false

	if lapsed > openMissed {
		for i := openMissed; i < lapsed; i++ {
			if err := markDelinquent(loan, l.cfg.PenaltyPolicy, l.cfg.LateFeePerPeriod, now); err != nil {
				return changed, err
			}
			changed = true
		}
		defaulted, err := markDefaulted(loan, l.cfg.DefaultThreshold)
		if err != nil {
			return changed, err
		}
		if defaulted {
			fmt.Printf("Loan %s defaulted after %d missed payments\n", loan.LoanID, loan.MissedPayments.Count)
		}
		return changed, nil
	}

	if loan.Status == models.LoanStatusActive && loan.Substatus == models.SubstatusCurrent {
		if err := markGracePeriod(loan); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// periodsDue counts how many scheduled periods have fallen due by now,
// capped at the loan term.
func periodsDue(loan *models.Loan, now time.Time) int {
	due := 0
	for n := 1; n <= loan.TermMonths; n++ {
		if dueDateOfPeriod(loan, n).After(now) {
			break
		}
		due++
	}
	return due
}

// dueDateOfPeriod returns the due date of the n-th payment period (1-based).
func dueDateOfPeriod(loan *models.Loan, n int) time.Time {
	switch loan.RepaymentFrequency {
	case models.FrequencyDaily:
		return loan.StartDate.AddDate(0, 0, n)
	case models.FrequencyWeekly:
		return loan.StartDate.AddDate(0, 0, 7*n)
	case models.FrequencyQuarterly:
		return loan.StartDate.AddDate(0, 3*n, 0)
	default:
		return loan.StartDate.AddDate(0, n, 0)
	}
}

// nextDueDate is the due date of the first unpaid period.
func nextDueDate(loan *models.Loan) time.Time {
	paidPeriods := loan.TermMonths - loan.RemainingTerms
	return dueDateOfPeriod(loan, paidPeriods+1)
}
