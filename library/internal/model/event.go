package model

import (
	"time"
)

type EventType string

const (
	EventLoanBorrowed EventType = "loan.borrowed"
	EventLoanReturned EventType = "loan.returned"
	EventLoanExtended EventType = "loan.extended"
	EventLoanOverdue  EventType = "loan.overdue"
)

type LoanEvent struct {
	Type       EventType  `json:"type"`
	LoanID     int64      `json:"loan_id"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	BookTitle  string     `json:"book_title,omitempty"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func NewLoanEvent(t EventType, loan Loan, at time.Time) LoanEvent {
	return LoanEvent{
		Type:       t,
		LoanID:     loan.ID,
		UserID:     loan.UserID,
		BookID:     loan.BookID,
		BookTitle:  loan.BookTitle,
		DueDate:    loan.DueDate,
		ReturnDate: loan.ReturnDate,
		OccurredAt: at,
	}
}
