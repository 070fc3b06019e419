package models

import (
	"strings"
	"time"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

var TransactionTypes = []TransactionType{TransactionIncome, TransactionExpense}

type TransactionCategory string

const (
	CategoryClientPayment  TransactionCategory = "client_payment"
	CategoryOtherIncome    TransactionCategory = "other_income"
	CategoryEmployeeSalary TransactionCategory = "employee_salary"
	CategoryEmployeeBonus  TransactionCategory = "employee_bonus"
	CategoryEquipment      TransactionCategory = "equipment"
	CategorySoftware       TransactionCategory = "software"
	CategoryMarketing      TransactionCategory = "marketing"
	CategoryOffice         TransactionCategory = "office"
	CategoryUtilities      TransactionCategory = "utilities"
	CategoryOtherExpense   TransactionCategory = "other_expense"
)

var TransactionCategories = []TransactionCategory{
	CategoryClientPayment,
	CategoryOtherIncome,
	CategoryEmployeeSalary,
	CategoryEmployeeBonus,
	CategoryEquipment,
	CategorySoftware,
	CategoryMarketing,
	CategoryOffice,
	CategoryUtilities,
	CategoryOtherExpense,
}

// IsIncome reports whether the category belongs to the income partition
func (c TransactionCategory) IsIncome() bool {
	return c == CategoryClientPayment || c == CategoryOtherIncome
}

// IsEmployeePayment reports whether money in this category goes to staff
func (c TransactionCategory) IsEmployeePayment() bool {
	return c == CategoryEmployeeSalary || c == CategoryEmployeeBonus
}

// MatchesType reports whether the category sits in the partition of t
func (c TransactionCategory) MatchesType(t TransactionType) bool {
	switch t {
	case TransactionIncome:
		return c.IsIncome()
	case TransactionExpense:
		return !c.IsIncome()
	}
	return false
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

var TransactionStatuses = []TransactionStatus{StatusPending, StatusCompleted, StatusCancelled}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentInstapay PaymentMethod = "instapay"
	PaymentWallet   PaymentMethod = "wallet"
	PaymentCard     PaymentMethod = "card"
	PaymentOther    PaymentMethod = "other"
)

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentInstapay, PaymentWallet, PaymentCard, PaymentOther}

// NormalizeEnum matches value case-insensitively against allowed.
// Unknown or empty input yields ok=false.
func NormalizeEnum[T ~string](value string, allowed []T) (T, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", false
	}
	for _, a := range allowed {
		if strings.ToLower(string(a)) == v {
			return a, true
		}
	}
	return "", false
}

// Transaction is one ledger entry. Amount/Currency are the origin values;
// AmountConverted is computed once at write time.
type Transaction struct {
	ID              string              `json:"id"`
	Type            TransactionType     `json:"type"`
	Category        TransactionCategory `json:"category"`
	ProjectID       string              `json:"projectId,omitempty"`
	ClientID        string              `json:"clientId,omitempty"`
	EmployeeID      string              `json:"employeeId,omitempty"`
	Amount          float64             `json:"amount"`
	Currency        Currency            `json:"currency"`
	AmountConverted ConvertedAmounts    `json:"amountConverted"`
	Description     string              `json:"description,omitempty"`
	Date            time.Time           `json:"date"`
	PaymentMethod   PaymentMethod       `json:"paymentMethod"`
	Reference       string              `json:"reference,omitempty"`
	Status          TransactionStatus   `json:"status"`
	ReceiptURL      string              `json:"receiptUrl,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	AddedBy         string              `json:"addedBy"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// TransactionInput is the payload of a generic ledger write
type TransactionInput struct {
	Type          TransactionType     `json:"type"`
	Category      TransactionCategory `json:"category"`
	ProjectID     string              `json:"project,omitempty"`
	ClientID      string              `json:"client,omitempty"`
	EmployeeID    string              `json:"employee,omitempty"`
	Amount        float64             `json:"amount"`
	Currency      Currency            `json:"currency,omitempty"`
	Description   string              `json:"description,omitempty"`
	Date          *time.Time          `json:"date,omitempty"`
	PaymentMethod PaymentMethod       `json:"paymentMethod,omitempty"`
	Reference     string              `json:"reference,omitempty"`
	Status        TransactionStatus   `json:"status,omitempty"`
	ReceiptURL    string              `json:"receiptUrl,omitempty"`
	Notes         string              `json:"notes,omitempty"`
}

// TransactionUpdate carries only the fields present in an update request
type TransactionUpdate struct {
	Type          *TransactionType     `json:"type,omitempty"`
	Category      *TransactionCategory `json:"category,omitempty"`
	Amount        *float64             `json:"amount,omitempty"`
	Currency      *Currency            `json:"currency,omitempty"`
	Description   *string              `json:"description,omitempty"`
	Date          *time.Time           `json:"date,omitempty"`
	PaymentMethod *PaymentMethod       `json:"paymentMethod,omitempty"`
	Reference     *string              `json:"reference,omitempty"`
	Status        *TransactionStatus   `json:"status,omitempty"`
	ReceiptURL    *string              `json:"receiptUrl,omitempty"`
	Notes         *string              `json:"notes,omitempty"`
}

// ClientPaymentInput records money received from a project's client
type ClientPaymentInput struct {
	ProjectID     string        `json:"project"`
	ClientID      string        `json:"client"`
	Amount        float64       `json:"amount"`
	Currency      Currency      `json:"currency,omitempty"`
	Description   string        `json:"description,omitempty"`
	Date          *time.Time    `json:"date,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	Reference     string        `json:"reference,omitempty"`
}

// EmployeePaymentInput records a salary or bonus payout
type EmployeePaymentInput struct {
	EmployeeID    string              `json:"employee"`
	ProjectID     string              `json:"project,omitempty"`
	Category      TransactionCategory `json:"category,omitempty"`
	Amount        float64             `json:"amount"`
	Currency      Currency            `json:"currency,omitempty"`
	Description   string              `json:"description,omitempty"`
	Date          *time.Time          `json:"date,omitempty"`
	PaymentMethod PaymentMethod       `json:"paymentMethod,omitempty"`
}

// ExpenseInput records a non-payroll expense
type ExpenseInput struct {
	ProjectID     string              `json:"project,omitempty"`
	Category      TransactionCategory `json:"category"`
	Amount        float64             `json:"amount"`
	Currency      Currency            `json:"currency,omitempty"`
	Description   string              `json:"description"`
	Date          *time.Time          `json:"date,omitempty"`
	PaymentMethod PaymentMethod       `json:"paymentMethod,omitempty"`
	ReceiptURL    string              `json:"receiptUrl,omitempty"`
}

// TransactionFilter holds list query parameters. Enum fields are raw user
// input and are normalized by the ledger; unknown values are ignored.
type TransactionFilter struct {
	Type          string
	Category      string
	Status        string
	PaymentMethod string
	ProjectID     string
	ClientID      string
	EmployeeID    string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	Limit         int
}

// Ref is a resolved reference used in display projections
type Ref struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// TransactionView is a transaction with its references resolved for display
type TransactionView struct {
	Transaction
	Project     *Ref `json:"project,omitempty"`
	Client      *Ref `json:"client,omitempty"`
	Employee    *Ref `json:"employee,omitempty"`
	AddedByUser *Ref `json:"addedByUser,omitempty"`
}

// TransactionPage is one page of a ledger listing
type TransactionPage struct {
	Total      int               `json:"total"`
	TotalPages int               `json:"totalPages"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Results    int               `json:"results"`
	Data       []TransactionView `json:"data"`
}
