package ledger

import (
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/shopspring/decimal"
)

// Allocation is the result of splitting an incoming payment across the
// outstanding buckets of a loan.
type Allocation struct {
	Breakdown      models.PaymentBreakdown
	NewOutstanding models.Outstanding
	DaysPastDue    int
}

// AllocatePayment splits paidAmount across the outstanding buckets in
// priority order: late fees, then penalty, then interest, then principal.
// The breakdown portions always sum exactly to paidAmount. Paying more than
// the full outstanding is rejected, except for a FULL_SETTLEMENT payment
// where the excess is recorded as savingsFromEarlyPayment.
//
// The outstanding snapshot must reconcile (total equals the sum of its
// buckets); a snapshot that does not is a ConsistencyError and the
// allocation refuses to proceed.
func AllocatePayment(outstanding models.Outstanding, paidAmount decimal.Decimal, paymentType models.PaymentType, dueDate, paidDate time.Time) (Allocation, error) {
	if !paidAmount.IsPositive() {
		return Allocation{}, models.Invalid("paidAmount", "must be positive")
	}
	if !outstanding.TotalOutstanding.Equal(outstanding.Total()) {
		return Allocation{}, &models.ConsistencyError{
			Detail: "totalOutstanding does not equal the sum of its buckets",
		}
	}

	total := outstanding.TotalOutstanding
	if paidAmount.GreaterThan(total) && paymentType != models.PaymentTypeFullSettlement {
		return Allocation{}, models.Invalid("paidAmount", "exceeds total outstanding")
	}

	remaining := paidAmount
	var b models.PaymentBreakdown

	b.LateFeesPortion, remaining = drawFrom(outstanding.LateFees, remaining)
	b.PenaltyPortion, remaining = drawFrom(outstanding.PenaltyAmount, remaining)
	b.InterestPortion, remaining = drawFrom(outstanding.PendingInterest, remaining)
	b.PrincipalPortion, remaining = drawFrom(outstanding.RemainingPrincipal, remaining)
	b.SavingsFromEarlyPayment = remaining

	newOutstanding := models.Outstanding{
		RemainingPrincipal: outstanding.RemainingPrincipal.Sub(b.PrincipalPortion),
		PendingInterest:    outstanding.PendingInterest.Sub(b.InterestPortion),
		PenaltyAmount:      outstanding.PenaltyAmount.Sub(b.PenaltyPortion),
		LateFees:           outstanding.LateFees.Sub(b.LateFeesPortion),
		LastCalculatedDate: paidDate,
	}
	newOutstanding.TotalOutstanding = newOutstanding.Total()

	return Allocation{
		Breakdown:      b,
		NewOutstanding: newOutstanding,
		DaysPastDue:    wholeDaysBetween(dueDate, paidDate),
	}, nil
}

// drawFrom takes up to bucket from remaining, returning the amount taken and
// what is left of remaining.
func drawFrom(bucket, remaining decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if remaining.LessThanOrEqual(decimal.Zero) || bucket.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, remaining
	}
	taken := decimal.Min(bucket, remaining)
	return taken, remaining.Sub(taken)
}

// wholeDaysBetween returns paid - due in whole calendar days, negative when
// the payment landed early.
func wholeDaysBetween(due, paid time.Time) int {
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	paidDay := time.Date(paid.Year(), paid.Month(), paid.Day(), 0, 0, 0, 0, time.UTC)
	return int(paidDay.Sub(dueDay) / (24 * time.Hour))
}
