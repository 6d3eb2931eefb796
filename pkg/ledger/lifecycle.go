package ledger

import (
	"fmt"
	"time"

	"github.com/Gowtham029/loan-app-backend/pkg/models"
	"github.com/shopspring/decimal"
)

// PenaltyCharge is one period's worth of delinquency penalty.
type PenaltyCharge struct {
	CompoundedInterest decimal.Decimal
	PrincipalPenalty   decimal.Decimal
}

// Total returns the combined penalty for the period.
func (c PenaltyCharge) Total() decimal.Decimal {
	return c.CompoundedInterest.Add(c.PrincipalPenalty)
}

// PenaltyPolicy computes the penalty charged when a loan misses a payment
// period. The exact formula is deployment-specific, so it is injected rather
// than fixed here; charges accumulate additively on the loan.
type PenaltyPolicy interface {
	Assess(loan *models.Loan) PenaltyCharge
	Rate() decimal.Decimal
}

// RatePenaltyPolicy is the default policy: a flat percentage applied per
// missed period to the remaining principal, and to the pending interest and
// penalty already on the books (the compounding part).
type RatePenaltyPolicy struct {
	PenaltyRate decimal.Decimal
}

func (p RatePenaltyPolicy) Rate() decimal.Decimal { return p.PenaltyRate }

func (p RatePenaltyPolicy) Assess(loan *models.Loan) PenaltyCharge {
	hundred := decimal.NewFromInt(100)
	out := loan.CurrentOutstanding
	return PenaltyCharge{
		PrincipalPenalty:   out.RemainingPrincipal.Mul(p.PenaltyRate).Div(hundred).Round(0),
		CompoundedInterest: out.PendingInterest.Add(out.PenaltyAmount).Mul(p.PenaltyRate).Div(hundred).Round(0),
	}
}

// statusTransitions is the set of allowed primary status moves. PAID_OFF and
// DEFAULTED are terminal; RESTRUCTURED is only reachable through an explicit
// administrative update, which is validated separately.
var statusTransitions = map[models.LoanStatus][]models.LoanStatus{
	models.LoanStatusActive:  {models.LoanStatusOverdue, models.LoanStatusPaidOff, models.LoanStatusRestructured},
	models.LoanStatusOverdue: {models.LoanStatusActive, models.LoanStatusDefaulted, models.LoanStatusPaidOff, models.LoanStatusRestructured},
}

func canTransition(from, to models.LoanStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transition moves the loan to a new status/substatus pair, rejecting moves
// the state machine does not allow.
func transition(loan *models.Loan, status models.LoanStatus, substatus models.LoanSubstatus) error {
	if !canTransition(loan.Status, status) {
		return models.Invalid("status",
			fmt.Sprintf("cannot move loan from %s to %s", loan.Status, status))
	}
	loan.Status = status
	loan.Substatus = substatus
	return nil
}

// markGracePeriod flags a current loan whose due date has passed but is
// still inside the grace window.
func markGracePeriod(loan *models.Loan) error {
	if loan.Status != models.LoanStatusActive {
		return models.Invalid("status", "grace period only applies to active loans")
	}
	if loan.Substatus == models.SubstatusGracePeriod {
		return nil
	}
	return transition(loan, models.LoanStatusActive, models.SubstatusGracePeriod)
}

// markDelinquent moves a loan past its grace window into OVERDUE/DELINQUENT,
// charging one missed period: the missed-payment count and amount grow, the
// penalty policy's charge is added to the compounding detail, and the per
// period late fee lands in the late-fee bucket. All additions are cumulative
// and never reset between periods.
func markDelinquent(loan *models.Loan, policy PenaltyPolicy, lateFeePerPeriod decimal.Decimal, now time.Time) error {
	if loan.Status != models.LoanStatusActive && loan.Status != models.LoanStatusOverdue {
		return models.Invalid("status", "delinquency only applies to active or overdue loans")
	}
	if err := transition(loan, models.LoanStatusOverdue, models.SubstatusDelinquent); err != nil {
		return err
	}

	charge := policy.Assess(loan)

	mp := &loan.MissedPayments
	mp.Count++
	mp.TotalMissedAmount = mp.TotalMissedAmount.Add(loan.ExpectedMonthlyPayment)
	mp.CompoundingDetails.PenaltyInterestRate = policy.Rate()
	mp.CompoundingDetails.CompoundedInterest = mp.CompoundingDetails.CompoundedInterest.Add(charge.CompoundedInterest)
	mp.CompoundingDetails.PrincipalPenalty = mp.CompoundingDetails.PrincipalPenalty.Add(charge.PrincipalPenalty)
	mp.CompoundingDetails.TotalPenaltyAmount = mp.CompoundingDetails.CompoundedInterest.Add(mp.CompoundingDetails.PrincipalPenalty)
	mp.LateFees.TotalLateFees = mp.LateFees.TotalLateFees.Add(lateFeePerPeriod)

	out := &loan.CurrentOutstanding
	out.PendingInterest = out.PendingInterest.Add(periodInterest(loan))
	out.PenaltyAmount = out.PenaltyAmount.Add(charge.Total())
	out.LateFees = out.LateFees.Add(lateFeePerPeriod)
	out.TotalOutstanding = out.Total()
	out.LastCalculatedDate = now
	return nil
}

// periodInterest is the interest that falls due with one payment period.
func periodInterest(loan *models.Loan) decimal.Decimal {
	if loan.InterestRate != nil {
		return loan.InterestRate.MonthlyInterestRupees
	}
	if loan.PaisaRate != nil {
		return loan.CurrentPrincipal.Div(decimal.NewFromInt(100)).Mul(loan.PaisaRate.RatePer100).Round(0)
	}
	return decimal.Zero
}

// markDefaulted moves a delinquent loan past the missed-payment threshold
// into DEFAULTED.
func markDefaulted(loan *models.Loan, threshold int) (bool, error) {
	if loan.Status != models.LoanStatusOverdue || loan.Substatus != models.SubstatusDelinquent {
		return false, nil
	}
	if loan.MissedPayments.Count-loan.MissedPayments.Closed < threshold {
		return false, nil
	}
	if err := transition(loan, models.LoanStatusDefaulted, loan.Substatus); err != nil {
		return false, err
	}
	return true, nil
}

// applyPaymentTransition adjusts status and substatus after a successful
// payment. A zero outstanding ends the loan at PAID_OFF; a payment covering
// the expected periodic amount pulls an overdue or grace-period loan back to
// ACTIVE/CURRENT and closes one missed period if any are open.
func applyPaymentTransition(loan *models.Loan, coveredExpected bool) error {
	if loan.CurrentOutstanding.TotalOutstanding.IsZero() {
		return transition(loan, models.LoanStatusPaidOff, loan.Substatus)
	}
	if !coveredExpected {
		return nil
	}
	if loan.MissedPayments.Count > loan.MissedPayments.Closed {
		loan.MissedPayments.Closed++
	}
	if loan.Substatus != models.SubstatusCurrent {
		return transition(loan, models.LoanStatusActive, models.SubstatusCurrent)
	}
	return nil
}
