package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/shopspring/decimal"
)

func sampleOutstanding() models.Outstanding {
	o := models.Outstanding{
		RemainingPrincipal: decimal.NewFromInt(12500),
		PendingInterest:    decimal.NewFromInt(225),
		PenaltyAmount:      decimal.NewFromInt(460),
		LateFees:           decimal.NewFromInt(500),
		LastCalculatedDate: time.Now(),
	}
	o.TotalOutstanding = o.Total()
	return o
}

func TestAllocatePaymentFullSettlement(t *testing.T) {
	due := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	paid := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	alloc, err := AllocatePayment(sampleOutstanding(), decimal.NewFromInt(13685), models.PaymentTypeFullSettlement, due, paid)
	if err != nil {
		t.Fatalf("AllocatePayment failed: %v", err)
	}

	b := alloc.Breakdown
	if !b.LateFeesPortion.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected late fees portion 500, got %s", b.LateFeesPortion)
	}
	if !b.PenaltyPortion.Equal(decimal.NewFromInt(460)) {
		t.Errorf("Expected penalty portion 460, got %s", b.PenaltyPortion)
	}
	if !b.InterestPortion.Equal(decimal.NewFromInt(225)) {
		t.Errorf("Expected interest portion 225, got %s", b.InterestPortion)
	}
	if !b.PrincipalPortion.Equal(decimal.NewFromInt(12500)) {
		t.Errorf("Expected principal portion 12500, got %s", b.PrincipalPortion)
	}
	if !b.SavingsFromEarlyPayment.IsZero() {
		t.Errorf("Expected zero savings, got %s", b.SavingsFromEarlyPayment)
	}
	if !alloc.NewOutstanding.TotalOutstanding.IsZero() {
		t.Errorf("Expected zero outstanding after full settlement, got %s", alloc.NewOutstanding.TotalOutstanding)
	}
}

func TestAllocatePaymentPriorityOrder(t *testing.T) {
	// 700 covers the 500 late fees and 200 of the 460 penalty, nothing else.
	alloc, err := AllocatePayment(sampleOutstanding(), decimal.NewFromInt(700), models.PaymentTypePartial, time.Now(), time.Now())
	if err != nil {
		t.Fatalf("AllocatePayment failed: %v", err)
	}

	b := alloc.Breakdown
	if !b.LateFeesPortion.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected late fees portion 500, got %s", b.LateFeesPortion)
	}
	if !b.PenaltyPortion.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected penalty portion 200, got %s", b.PenaltyPortion)
	}
	if !b.InterestPortion.IsZero() || !b.PrincipalPortion.IsZero() {
		t.Errorf("Expected interest and principal untouched, got %s / %s", b.InterestPortion, b.PrincipalPortion)
	}
	if !alloc.NewOutstanding.PenaltyAmount.Equal(decimal.NewFromInt(260)) {
		t.Errorf("Expected remaining penalty 260, got %s", alloc.NewOutstanding.PenaltyAmount)
	}
	if !alloc.NewOutstanding.TotalOutstanding.Equal(decimal.NewFromInt(12985)) {
		t.Errorf("Expected total outstanding 12985, got %s", alloc.NewOutstanding.TotalOutstanding)
	}
}

func TestAllocatePaymentBreakdownAlwaysSumsToPaid(t *testing.T) {
	amounts := []int64{1, 499, 500, 501, 1185, 5000, 13684, 13685}
	for _, amt := range amounts {
		paid := decimal.NewFromInt(amt)
		alloc, err := AllocatePayment(sampleOutstanding(), paid, models.PaymentTypeFullSettlement, time.Now(), time.Now())
		if err != nil {
			t.Fatalf("AllocatePayment(%d) failed: %v", amt, err)
		}
		if !alloc.Breakdown.Sum().Equal(paid) {
			t.Errorf("Breakdown for %d sums to %s", amt, alloc.Breakdown.Sum())
		}
	}
}

func TestAllocatePaymentOverpayment(t *testing.T) {
	var verr *models.ValidationError
	_, err := AllocatePayment(sampleOutstanding(), decimal.NewFromInt(20000), models.PaymentTypeRegular, time.Now(), time.Now())
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for regular overpayment, got %v", err)
	}

	// A full settlement may exceed the outstanding; the excess is savings.
	alloc, err := AllocatePayment(sampleOutstanding(), decimal.NewFromInt(14000), models.PaymentTypeFullSettlement, time.Now(), time.Now())
	if err != nil {
		t.Fatalf("AllocatePayment failed: %v", err)
	}
	if !alloc.Breakdown.SavingsFromEarlyPayment.Equal(decimal.NewFromInt(315)) {
		t.Errorf("Expected savings 315, got %s", alloc.Breakdown.SavingsFromEarlyPayment)
	}
	if !alloc.Breakdown.Sum().Equal(decimal.NewFromInt(14000)) {
		t.Errorf("Breakdown sums to %s, want 14000", alloc.Breakdown.Sum())
	}
}

func TestAllocatePaymentRejectsNonPositiveAmount(t *testing.T) {
	var verr *models.ValidationError
	_, err := AllocatePayment(sampleOutstanding(), decimal.Zero, models.PaymentTypeRegular, time.Now(), time.Now())
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for zero amount, got %v", err)
	}
}

func TestAllocatePaymentInconsistentSnapshot(t *testing.T) {
	out := sampleOutstanding()
	out.TotalOutstanding = out.TotalOutstanding.Add(decimal.NewFromInt(1))

	var cerr *models.ConsistencyError
	_, err := AllocatePayment(out, decimal.NewFromInt(100), models.PaymentTypeRegular, time.Now(), time.Now())
	if !errors.As(err, &cerr) {
		t.Errorf("Expected ConsistencyError for broken snapshot, got %v", err)
	}
}

func TestAllocatePaymentDaysPastDue(t *testing.T) {
	due := time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)

	late := time.Date(2025, 10, 12, 8, 0, 0, 0, time.UTC)
	alloc, err := AllocatePayment(sampleOutstanding(), decimal.NewFromInt(100), models.PaymentTypePartial, due, late)
	if err != nil {
		t.Fatalf("AllocatePayment failed: %v", err)
	}
	if alloc.DaysPastDue != 7 {
		t.Errorf("Expected 7 days past due, got %d", alloc.DaysPastDue)
	}

	early := time.Date(2025, 10, 2, 23, 0, 0, 0, time.UTC)
	alloc, err = AllocatePayment(sampleOutstanding(), decimal.NewFromInt(100), models.PaymentTypePartial, due, early)
	if err != nil {
		t.Fatalf("AllocatePayment failed: %v", err)
	}
	if alloc.DaysPastDue != -3 {
		t.Errorf("Expected -3 days past due, got %d", alloc.DaysPastDue)
	}
}
