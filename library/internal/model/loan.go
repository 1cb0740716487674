package model

import (
	"time"
)

type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "BORROWED"
	LoanStatusReturned LoanStatus = "RETURNED"
	// LoanStatusOverdue is accepted as a list filter only; stored loans never carry it.
	// Overdue is derived from status and due date, see Loan.Overdue.
	LoanStatusOverdue LoanStatus = "OVERDUE"
)

type Loan struct {
	ID             int64      `json:"id" db:"id"`
	UserID         int64      `json:"user_id" db:"member_id"`
	BookID         int64      `json:"book_id" db:"item_id"`
	BookTitle      string     `json:"book_title,omitempty" db:"book_title"`
	LoanDate       time.Time  `json:"loan_date" db:"loan_date"`
	DueDate        time.Time  `json:"due_date" db:"due_date"`
	ReturnDate     *time.Time `json:"return_date" db:"return_date"`
	ExtensionCount int        `json:"extension_count" db:"extension_count"`
	Status         LoanStatus `json:"status" db:"status"`
	IsOverdue      bool       `json:"is_overdue" db:"-"`
}

func (l Loan) Overdue(now time.Time) bool {
	return l.Status == LoanStatusBorrowed && l.DueDate.Before(now)
}

type LoanFilter struct {
	UserID *int64
	Status LoanStatus
	Skip   int
	Limit  int
}

type BorrowRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
	BookID int64 `json:"book_id" validate:"required"`
}

// LoanResult carries expected policy rejections as Success=false.
type LoanResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Loan    *Loan  `json:"loan,omitempty"`
}
