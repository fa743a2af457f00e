package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// ExpenseStatus is the single authoritative status enum. The wire format is
// the uppercase string; status is never inferred from auxiliary flags.
type ExpenseStatus string

const (
	StatusPending   ExpenseStatus = "PENDING"
	StatusDisbursed ExpenseStatus = "DISBURSED"
)

// User is keyed by email. The role is fixed at signup.
type User struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Session is the opaque credential stored server-side. It dies on logout or,
// when a TTL is configured, on expiry; both are detected on next use.
type Session struct {
	Token     uuid.UUID
	Email     string
	Role      Role
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Fund is an append-only credit to the shared pool. AdminName is resolved
// from the users table at read time, never stored.
type Fund struct {
	ID          uuid.UUID `json:"id"`
	Date        string    `json:"date"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	AdminEmail  string    `json:"admin_email,omitempty"`
	AdminName   string    `json:"admin_name"`
}

// Expense is a debit claim against the pool. Mutable only while PENDING.
type Expense struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	EmployeeName string        `json:"employee_name,omitempty"`
	Date         string        `json:"date"`
	Description  string        `json:"description"`
	Amount       float64       `json:"amount"`
	BillImage    string        `json:"bill_image,omitempty"`
	Status       ExpenseStatus `json:"status"`
}

// Summary is derived, never stored. Balance comes from the authoritative
// fund_balance row; the totals are recomputed sums.
type Summary struct {
	TotalFund     float64 `json:"total_fund"`
	TotalExpenses float64 `json:"total_expenses"`
	Balance       float64 `json:"balance"`
}
