package ledger

import (
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/interest"
	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/shopspring/decimal"
)

// CreateLoanRequest is the raw input for opening a loan. Exactly one of
// InterestRate or PaisaRate must be set.
type CreateLoanRequest struct {
	Customer           models.Customer           `json:"customer"`
	OriginalPrincipal  decimal.Decimal           `json:"originalPrincipal"`
	InterestRate       *models.InterestRate      `json:"interestRate,omitempty"`
	PaisaRate          *models.PaisaRate         `json:"paisaRate,omitempty"`
	TermMonths         int                       `json:"termMonths"`
	RepaymentFrequency models.RepaymentFrequency `json:"repaymentFrequency"`
	Type               models.LoanType           `json:"type"`
	StartDate          time.Time                 `json:"startDate"`
	EndDate            time.Time                 `json:"endDate"`
	LoanProvider       models.LoanProvider       `json:"loanProvider"`
}

// enrichLoan transforms a creation request into the full persisted loan
// shape: derived interest figures, initial outstanding snapshot, zeroed
// missed-payment aggregate and ACTIVE/CURRENT status. The loan ID is left
// for the caller to assign. Any validation failure aborts before anything
// is computed.
func enrichLoan(req CreateLoanRequest, now time.Time) (*models.Loan, error) {
	if req.Customer.CustomerID == "" {
		return nil, models.Invalid("customer", "customer reference is required")
	}
	if req.LoanProvider.UserID == "" {
		return nil, models.Invalid("loanProvider", "loan provider is required")
	}
	if err := interest.ValidateRateModel(req.InterestRate, req.PaisaRate); err != nil {
		return nil, err
	}
	if !req.OriginalPrincipal.IsPositive() {
		return nil, models.Invalid("originalPrincipal", "must be positive")
	}
	if req.TermMonths < 1 {
		return nil, models.Invalid("termMonths", "must be at least 1")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, models.Invalid("endDate", "must be after start date")
	}
	switch req.RepaymentFrequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyQuarterly:
	default:
		return nil, models.Invalid("repaymentFrequency", "unknown frequency")
	}
	switch req.Type {
	case models.LoanTypeFixed, models.LoanTypeFlexible:
	default:
		return nil, models.Invalid("type", "must be FIXED or FLEXIBLE")
	}

	var rate *models.InterestRate
	var paisa *models.PaisaRate
	var expectedPayment decimal.Decimal

	if req.InterestRate != nil {
		res, err := interest.Compute(req.OriginalPrincipal, req.InterestRate.AnnualPercentage, req.TermMonths)
		if err != nil {
			return nil, err
		}
		rate = &models.InterestRate{
			AnnualPercentage:      req.InterestRate.AnnualPercentage,
			MonthlyPercentage:     req.InterestRate.MonthlyPercentage,
			TotalInterestRupees:   res.TotalInterest,
			MonthlyInterestRupees: res.MonthlyInterest,
		}
		expectedPayment = res.ExpectedMonthlyPayment
	} else {
		res, err := interest.ComputePaisa(req.OriginalPrincipal, req.PaisaRate.RatePer100, req.PaisaRate.Frequency, req.TermMonths)
		if err != nil {
			return nil, err
		}
		paisa = &models.PaisaRate{
			RatePer100: req.PaisaRate.RatePer100,
			Frequency:  req.PaisaRate.Frequency,
		}
		expectedPayment = res.ExpectedPayment
	}

	return &models.Loan{
		Customer:               req.Customer,
		OriginalPrincipal:      req.OriginalPrincipal,
		CurrentPrincipal:       req.OriginalPrincipal,
		InterestRate:           rate,
		PaisaRate:              paisa,
		TermMonths:             req.TermMonths,
		RemainingTerms:         req.TermMonths,
		RepaymentFrequency:     req.RepaymentFrequency,
		Type:                   req.Type,
		StartDate:              req.StartDate,
		EndDate:                req.EndDate,
		ExpectedMonthlyPayment: expectedPayment,
		MissedPayments: models.MissedPayments{
			TotalMissedAmount: decimal.Zero,
			CompoundingDetails: models.CompoundingDetails{
				PenaltyInterestRate: decimal.Zero,
				CompoundedInterest:  decimal.Zero,
				PrincipalPenalty:    decimal.Zero,
				TotalPenaltyAmount:  decimal.Zero,
			},
			LateFees: models.LateFees{
				FeePerMonth:   decimal.Zero,
				TotalLateFees: decimal.Zero,
			},
		},
		CurrentOutstanding: models.Outstanding{
			RemainingPrincipal: req.OriginalPrincipal,
			PendingInterest:    decimal.Zero,
			PenaltyAmount:      decimal.Zero,
			LateFees:           decimal.Zero,
			TotalOutstanding:   req.OriginalPrincipal,
			LastCalculatedDate: now,
		},
		Status:       models.LoanStatusActive,
		Substatus:    models.SubstatusCurrent,
		LoanProvider: req.LoanProvider,
		IsDeleted:    false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
