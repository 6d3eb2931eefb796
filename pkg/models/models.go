package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the primary lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusActive       LoanStatus = "ACTIVE"
	LoanStatusOverdue      LoanStatus = "OVERDUE"
	LoanStatusDefaulted    LoanStatus = "DEFAULTED"
	LoanStatusPaidOff      LoanStatus = "PAID_OFF"
	LoanStatusRestructured LoanStatus = "RESTRUCTURED"
)

// LoanSubstatus is the secondary health indicator. It is only meaningful
// while the loan status is ACTIVE or OVERDUE.
type LoanSubstatus string

const (
	SubstatusCurrent     LoanSubstatus = "CURRENT"
	SubstatusGracePeriod LoanSubstatus = "GRACE_PERIOD"
	SubstatusDelinquent  LoanSubstatus = "DELINQUENT"
)

// RepaymentFrequency is the cadence at which periodic payments fall due.
type RepaymentFrequency string

const (
	FrequencyDaily     RepaymentFrequency = "DAILY"
	FrequencyWeekly    RepaymentFrequency = "WEEKLY"
	FrequencyMonthly   RepaymentFrequency = "MONTHLY"
	FrequencyQuarterly RepaymentFrequency = "QUARTERLY"
)

// LoanType determines whether terms may change after creation.
type LoanType string

const (
	LoanTypeFixed    LoanType = "FIXED"
	LoanTypeFlexible LoanType = "FLEXIBLE"
)

// Customer is the denormalized customer reference stored on a loan.
// It is a copy taken at creation time, never re-fetched.
type Customer struct {
	CustomerID  string `json:"customerId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber"`
}

// LoanProvider identifies the user who created or last updated a loan.
type LoanProvider struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// InterestRate is the percentage-based rate model. The rupee fields are
// derived at creation time and never recomputed afterwards.
type InterestRate struct {
	AnnualPercentage      decimal.Decimal `json:"annualPercentage"`
	MonthlyPercentage     decimal.Decimal `json:"monthlyPercentage"`
	TotalInterestRupees   decimal.Decimal `json:"totalInterestRupees"`
	MonthlyInterestRupees decimal.Decimal `json:"monthlyInterestRupees"`
}

// PaisaRate is the fixed-unit rate model: interest per period is
// principal / 100 * RatePer100, applied at the stated frequency.
type PaisaRate struct {
	RatePer100 decimal.Decimal    `json:"ratePer100"`
	Frequency  RepaymentFrequency `json:"frequency"`
}

// CompoundingDetails accumulates penalty charges across delinquent periods.
// Amounts are additive; they are never reset between periods.
type CompoundingDetails struct {
	PenaltyInterestRate decimal.Decimal `json:"penaltyInterestRate"`
	CompoundedInterest  decimal.Decimal `json:"compoundedInterest"`
	PrincipalPenalty    decimal.Decimal `json:"principalPenalty"`
	TotalPenaltyAmount  decimal.Decimal `json:"totalPenaltyAmount"`
}

// LateFees tracks the flat fee charged per missed period.
type LateFees struct {
	FeePerMonth   decimal.Decimal `json:"feePerMonth"`
	TotalLateFees decimal.Decimal `json:"totalLateFees"`
}

// MissedPayments is the missed-payment aggregate on a loan.
type MissedPayments struct {
	Count              int                `json:"count"`
	Closed             int                `json:"closed"`
	TotalMissedAmount  decimal.Decimal    `json:"totalMissedAmount"`
	CompoundingDetails CompoundingDetails `json:"compoundingDetails"`
	LateFees           LateFees           `json:"lateFees"`
}

// Outstanding is a point-in-time decomposition of everything owed on a loan.
// TotalOutstanding must always equal the sum of the four buckets; it is
// recomputed, never mutated independently.
type Outstanding struct {
	RemainingPrincipal decimal.Decimal `json:"remainingPrincipal"`
	PendingInterest    decimal.Decimal `json:"pendingInterest"`
	PenaltyAmount      decimal.Decimal `json:"penaltyAmount"`
	LateFees           decimal.Decimal `json:"lateFees"`
	TotalOutstanding   decimal.Decimal `json:"totalOutstanding"`
	LastCalculatedDate time.Time       `json:"lastCalculatedDate"`
}

// Total returns the sum of the four outstanding buckets.
func (o Outstanding) Total() decimal.Decimal {
	return o.RemainingPrincipal.Add(o.PendingInterest).Add(o.PenaltyAmount).Add(o.LateFees)
}

// Loan is the full persisted loan record.
type Loan struct {
	LoanID                 string             `json:"loanId"`
	Customer               Customer           `json:"customer"`
	OriginalPrincipal      decimal.Decimal    `json:"originalPrincipal"`
	CurrentPrincipal       decimal.Decimal    `json:"currentPrincipal"`
	InterestRate           *InterestRate      `json:"interestRate,omitempty"`
	PaisaRate              *PaisaRate         `json:"paisaRate,omitempty"`
	TermMonths             int                `json:"termMonths"`
	RemainingTerms         int                `json:"remainingTerms"`
	RepaymentFrequency     RepaymentFrequency `json:"repaymentFrequency"`
	Type                   LoanType           `json:"type"`
	StartDate              time.Time          `json:"startDate"`
	EndDate                time.Time          `json:"endDate"`
	ExpectedMonthlyPayment decimal.Decimal    `json:"expectedMonthlyPayment"`
	MissedPayments         MissedPayments     `json:"missedPayments"`
	CurrentOutstanding     Outstanding        `json:"currentOutstanding"`
	Status                 LoanStatus         `json:"status"`
	Substatus              LoanSubstatus      `json:"substatus"`
	LoanProvider           LoanProvider       `json:"loanProvider"`
	UpdatedBy              *LoanProvider      `json:"updatedBy,omitempty"`
	IsDeleted              bool               `json:"isDeleted"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// PaymentStatus is the processing state of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending             PaymentStatus = "PENDING"
	PaymentStatusCompleted           PaymentStatus = "COMPLETED"
	PaymentStatusFailed              PaymentStatus = "FAILED"
	PaymentStatusCancelled           PaymentStatus = "CANCELLED"
	PaymentStatusPendingVerification PaymentStatus = "PENDING_VERIFICATION"
)

// PaymentType classifies what a payment is settling.
type PaymentType string

const (
	PaymentTypeRegular        PaymentType = "REGULAR"
	PaymentTypeFullSettlement PaymentType = "FULL_SETTLEMENT"
	PaymentTypePartial        PaymentType = "PARTIAL"
	PaymentTypePenalty        PaymentType = "PENALTY"
)

// PaymentMethodType enumerates accepted payment channels.
type PaymentMethodType string

const (
	MethodCash         PaymentMethodType = "CASH"
	MethodBankTransfer PaymentMethodType = "BANK_TRANSFER"
	MethodUPI          PaymentMethodType = "UPI"
	MethodCheque       PaymentMethodType = "CHEQUE"
	MethodCard         PaymentMethodType = "CARD"
)

// PaymentBreakdown splits a paid amount into settlement buckets.
// The portions (including savings) always sum exactly to the paid amount.
type PaymentBreakdown struct {
	PrincipalPortion        decimal.Decimal `json:"principalPortion"`
	InterestPortion         decimal.Decimal `json:"interestPortion"`
	PenaltyPortion          decimal.Decimal `json:"penaltyPortion"`
	LateFeesPortion         decimal.Decimal `json:"lateFeesPortion"`
	SavingsFromEarlyPayment decimal.Decimal `json:"savingsFromEarlyPayment"`
}

// Sum returns the total of all breakdown portions.
func (b PaymentBreakdown) Sum() decimal.Decimal {
	return b.PrincipalPortion.Add(b.InterestPortion).Add(b.PenaltyPortion).
		Add(b.LateFeesPortion).Add(b.SavingsFromEarlyPayment)
}

// PaymentDetails carries the schedule and settlement amounts of a payment.
type PaymentDetails struct {
	DueDate        time.Time        `json:"dueDate"`
	PaidDate       *time.Time       `json:"paidDate,omitempty"`
	ExpectedAmount decimal.Decimal  `json:"expectedAmount"`
	PaidAmount     decimal.Decimal  `json:"paidAmount"`
	Breakdown      PaymentBreakdown `json:"breakdown"`
}

// PaymentMethod records how a payment was made.
type PaymentMethod struct {
	Type          PaymentMethodType `json:"type"`
	Reference     string            `json:"reference,omitempty"`
	BankName      string            `json:"bankName,omitempty"`
	AccountNumber string            `json:"accountNumber,omitempty"`
}

// Payment is the full persisted payment record. Payments are never deleted,
// only marked FAILED or CANCELLED.
type Payment struct {
	PaymentID               string         `json:"paymentId"`
	LoanID                  string         `json:"loanId"`
	CustomerID              string         `json:"customerId"`
	PaymentDetails          PaymentDetails `json:"paymentDetails"`
	PaymentMethod           PaymentMethod  `json:"paymentMethod"`
	Status                  PaymentStatus  `json:"status"`
	PaymentType             PaymentType    `json:"paymentType"`
	IsPartialPayment        bool           `json:"isPartialPayment"`
	DaysPastDue             int            `json:"daysPastDue"`
	OutstandingAfterPayment *Outstanding   `json:"outstandingAfterPayment,omitempty"`
	ProcessedBy             string         `json:"processedBy"`
	ProcessedAt             *time.Time     `json:"processedAt,omitempty"`
	FailureReason           string         `json:"failureReason,omitempty"`
	CreatedAt               time.Time      `json:"createdAt"`
	UpdatedAt               time.Time      `json:"updatedAt"`
}
