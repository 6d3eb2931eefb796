// Package interest computes interest and expected payment figures for the
// two supported rate models: flat annual percentage and fixed-unit paisa.
package interest

import (
	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// roundRupee rounds half-up to the nearest whole currency unit. All derived
// amounts must pass through this or test fixtures diverge.
func roundRupee(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// Result holds the derived figures for a percentage-rate loan, in whole
// rupees (round-half-up).
type Result struct {
	TotalInterest          decimal.Decimal
	MonthlyInterest        decimal.Decimal
	ExpectedMonthlyPayment decimal.Decimal
}

// Compute derives total interest, monthly interest and the expected monthly
// payment from principal, annual percentage rate and term.
//
//	totalInterest   = round(principal * annualPercentage / 100)
//	monthlyInterest = round(totalInterest / 12)
//	expectedPayment = round((principal + totalInterest) / termMonths)
func Compute(principal, annualPercentage decimal.Decimal, termMonths int) (Result, error) {
	if !principal.IsPositive() {
		return Result{}, models.Invalid("principal", "must be positive")
	}
	if annualPercentage.IsNegative() {
		return Result{}, models.Invalid("annualPercentage", "must not be negative")
	}
	if termMonths < 1 {
		return Result{}, models.Invalid("termMonths", "must be at least 1")
	}

	total := roundRupee(principal.Mul(annualPercentage).Div(hundred))
	monthly := roundRupee(total.Div(twelve))
	expected := roundRupee(principal.Add(total).Div(decimal.NewFromInt(int64(termMonths))))

	return Result{
		TotalInterest:          total,
		MonthlyInterest:        monthly,
		ExpectedMonthlyPayment: expected,
	}, nil
}

// PaisaResult holds the derived figures for a paisa-rate loan.
type PaisaResult struct {
	PerPeriodInterest decimal.Decimal
	TotalInterest     decimal.Decimal
	ExpectedPayment   decimal.Decimal
}

// ComputePaisa derives interest for the fixed-unit rate model: interest per
// period is principal / 100 * ratePer100, applied at the stated cadence for
// the full term. The expected per-period payment amortizes principal plus
// total interest evenly across the term.
func ComputePaisa(principal, ratePer100 decimal.Decimal, frequency models.RepaymentFrequency, termPeriods int) (PaisaResult, error) {
	if !principal.IsPositive() {
		return PaisaResult{}, models.Invalid("principal", "must be positive")
	}
	if ratePer100.IsNegative() {
		return PaisaResult{}, models.Invalid("ratePer100", "must not be negative")
	}
	if termPeriods < 1 {
		return PaisaResult{}, models.Invalid("loanTerm", "must be at least 1")
	}
	switch frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
	default:
		return PaisaResult{}, models.Invalid("frequency", "must be DAILY, WEEKLY or MONTHLY")
	}

	perPeriod := roundRupee(principal.Div(hundred).Mul(ratePer100))
	total := perPeriod.Mul(decimal.NewFromInt(int64(termPeriods)))
	expected := roundRupee(principal.Add(total).Div(decimal.NewFromInt(int64(termPeriods))))

	return PaisaResult{
		PerPeriodInterest: perPeriod,
		TotalInterest:     total,
		ExpectedPayment:   expected,
	}, nil
}

// ValidateRateModel enforces that exactly one of the two rate models is
// populated on a loan.
func ValidateRateModel(rate *models.InterestRate, paisa *models.PaisaRate) error {
	if rate == nil && paisa == nil {
		return models.Invalid("interestRate", "exactly one of interestRate or paisaRate is required")
	}
	if rate != nil && paisa != nil {
		return models.Invalid("interestRate", "interestRate and paisaRate are mutually exclusive")
	}
	return nil
}
