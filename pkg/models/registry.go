package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYCStatus is the know-your-customer verification state of a customer.
type KYCStatus string

const (
	KYCPending  KYCStatus = "PENDING"
	KYCVerified KYCStatus = "VERIFIED"
	KYCRejected KYCStatus = "REJECTED"
)

// CustomerAccountStatus is the standing of a customer account.
type CustomerAccountStatus string

const (
	CustomerActive    CustomerAccountStatus = "ACTIVE"
	CustomerInactive  CustomerAccountStatus = "INACTIVE"
	CustomerSuspended CustomerAccountStatus = "SUSPENDED"
)

// Address is a postal address on a customer record.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// CustomerRecord is the full customer registry entry. Loans carry a
// denormalized Customer copy taken from this record at creation time.
type CustomerRecord struct {
	CustomerID           string                `json:"customerId"`
	FirstName            string                `json:"firstName"`
	MiddleName           string                `json:"middleName,omitempty"`
	LastName             string                `json:"lastName"`
	DateOfBirth          *time.Time            `json:"dateOfBirth,omitempty"`
	Email                string                `json:"email,omitempty"`
	PhoneNumber          string                `json:"phoneNumber"`
	AlternatePhoneNumber string                `json:"alternatePhoneNumber,omitempty"`
	CurrentAddress       Address               `json:"currentAddress"`
	MonthlyIncome        decimal.Decimal       `json:"monthlyIncome"`
	CreditScore          int                   `json:"creditScore"`
	KYCStatus            KYCStatus             `json:"kycStatus"`
	AccountStatus        CustomerAccountStatus `json:"accountStatus"`
	Notes                string                `json:"notes,omitempty"`
	IsDeleted            bool                  `json:"isDeleted"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// Denormalized returns the customer copy embedded on a loan.
func (c *CustomerRecord) Denormalized() Customer {
	return Customer{
		CustomerID:  c.CustomerID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		PhoneNumber: c.PhoneNumber,
	}
}

// UserRole is the back-office permission level of a user.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleManager UserRole = "MANAGER"
	RoleViewer  UserRole = "VIEWER"
)

// UserStatus is the standing of a back-office user account.
type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserInactive  UserStatus = "INACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
)

// User is a back-office user account. The password hash never serializes.
type User struct {
	UserID       string     `json:"userId"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	Department   string     `json:"department,omitempty"`
	PhoneNumber  string     `json:"phoneNumber,omitempty"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	IsDeleted    bool       `json:"isDeleted"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
