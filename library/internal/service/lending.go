package service

import (
	"context"
	"fmt"

	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	libraryRepo "github.com/ibd-library/library-service/library/internal/repository"
	"github.com/ibd-library/library-service/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	opBorrow = "borrow"
	opReturn = "return"
	opExtend = "extend"

	dateLayout = "2006-01-02"
)

func reject(format string, args ...any) model.LoanResult {
	return model.LoanResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

func (s *Service) record(op string, res model.LoanResult, err error) {
	switch {
	case err != nil:
		metrics.LendingOperation(op, "error")
	case res.Success:
		metrics.LendingOperation(op, "ok")
	default:
		metrics.LendingOperation(op, "rejected")
	}
}

// BorrowItem lends one copy of itemID to memberID. Checks run in order: member exists,
// item exists, a copy is in stock, the member is under max_loan_limit. The loan insert and
// the stock decrement commit together.
func (s *Service) BorrowItem(ctx context.Context, memberID, itemID int64) (res model.LoanResult, err error) {
	defer func() { s.record(opBorrow, res, err) }()

	now := s.clock()
	err = s.repo.InTx(ctx, func(tx libraryRepo.Repository) error {
		member, err := tx.LockMember(ctx, memberID)
		if err != nil {
			return err
		}
		item, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.StockQuantity <= 0 {
			res = reject("'%s' is currently out of stock", item.Title)
			return nil
		}
		limit, err := policyInt(ctx, tx, model.ConfigMaxLoanLimit)
		if err != nil {
			return err
		}
		active, err := tx.CountActiveLoans(ctx, memberID)
		if err != nil {
			return err
		}
		if active >= limit {
			res = reject("Loan limit reached: at most %d books at a time", limit)
			return nil
		}
		period, err := policyInt(ctx, tx, model.ConfigLoanPeriodDays)
		if err != nil {
			return err
		}

		loan, err := tx.CreateLoan(ctx, model.Loan{
			UserID:   memberID,
			BookID:   itemID,
			LoanDate: now,
			DueDate:  now.AddDate(0, 0, period),
			Status:   model.LoanStatusBorrowed,
		})
		if err != nil {
			return err
		}
		if err := tx.DecrementStock(ctx, itemID, now); err != nil {
			return err
		}
		loan.BookTitle = item.Title
		res = model.LoanResult{
			Success: true,
			Message: fmt.Sprintf("Lent '%s' to %s. Due date: %s", item.Title, member.Name, loan.DueDate.Format(dateLayout)),
			Loan:    &loan,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrOutOfStock) {
			return reject("The book is currently out of stock"), nil
		}
		return model.LoanResult{}, err
	}
	if res.Success {
		s.log.Info("borrow", zap.Int64("member_id", memberID), zap.Int64("item_id", itemID), zap.Int64("loan_id", res.Loan.ID))
		s.publish(ctx, model.NewLoanEvent(model.EventLoanBorrowed, *res.Loan, now))
	}
	return res, nil
}

// ReturnItem closes a loan and puts the copy back. A loan already returned is
// rejected without touching stock.
func (s *Service) ReturnItem(ctx context.Context, loanID int64) (res model.LoanResult, err error) {
	defer func() { s.record(opReturn, res, err) }()

	now := s.clock()
	err = s.repo.InTx(ctx, func(tx libraryRepo.Repository) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status == model.LoanStatusReturned {
			res = reject("This book has already been returned")
			return nil
		}
		item, err := tx.LockItem(ctx, loan.BookID)
		if err != nil {
			return err
		}
		loan.ReturnDate = &now
		loan.Status = model.LoanStatusReturned
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		if err := tx.IncrementStock(ctx, loan.BookID, now); err != nil {
			return err
		}
		loan.BookTitle = item.Title
		res = model.LoanResult{
			Success: true,
			Message: fmt.Sprintf("'%s' has been returned", item.Title),
			Loan:    &loan,
		}
		return nil
	})
	if err != nil {
		return model.LoanResult{}, err
	}
	if res.Success {
		s.log.Info("return", zap.Int64("loan_id", loanID))
		s.publish(ctx, model.NewLoanEvent(model.EventLoanReturned, *res.Loan, now))
	}
	return res, nil
}

// ExtendLoan pushes the due date of a borrowed loan by extension_period_days while the
// loan is under max_extension_count. Being past due does not block an extension.
func (s *Service) ExtendLoan(ctx context.Context, loanID int64) (res model.LoanResult, err error) {
	defer func() { s.record(opExtend, res, err) }()

	now := s.clock()
	err = s.repo.InTx(ctx, func(tx libraryRepo.Repository) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != model.LoanStatusBorrowed {
			res = reject("Only borrowed books can be extended")
			return nil
		}
		maxExt, err := policyInt(ctx, tx, model.ConfigMaxExtensionCount)
		if err != nil {
			return err
		}
		if loan.ExtensionCount >= maxExt {
			res = reject("A loan can be extended at most %d time(s)", maxExt)
			return nil
		}
		days, err := policyInt(ctx, tx, model.ConfigExtensionPeriodDays)
		if err != nil {
			return err
		}
		item, err := tx.GetItem(ctx, loan.BookID)
		if err != nil {
			return err
		}

		loan.DueDate = loan.DueDate.AddDate(0, 0, days)
		loan.ExtensionCount++
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		loan.BookTitle = item.Title
		res = model.LoanResult{
			Success: true,
			Message: fmt.Sprintf("Loan of '%s' extended. New due date: %s", item.Title, loan.DueDate.Format(dateLayout)),
			Loan:    &loan,
		}
		return nil
	})
	if err != nil {
		return model.LoanResult{}, err
	}
	if res.Success {
		s.log.Info("extend", zap.Int64("loan_id", loanID), zap.Time("due_date", res.Loan.DueDate))
		s.publish(ctx, model.NewLoanEvent(model.EventLoanExtended, *res.Loan, now))
	}
	return res, nil
}

func (s *Service) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	loan, err := s.repo.GetLoan(ctx, id)
	if err != nil {
		return model.Loan{}, err
	}
	loan.IsOverdue = loan.Overdue(s.clock())
	return loan, nil
}

func (s *Service) ListLoans(ctx context.Context, f model.LoanFilter) ([]model.Loan, error) {
	f.Skip, f.Limit = normalizePage(f.Skip, f.Limit)
	now := s.clock()
	loans, err := s.repo.ListLoans(ctx, f, now)
	if err != nil {
		return nil, err
	}
	for i := range loans {
		loans[i].IsOverdue = loans[i].Overdue(now)
	}
	return loans, nil
}

// FindActiveLoanByTitle finds the member's borrowed loan whose item title contains title.
func (s *Service) FindActiveLoanByTitle(ctx context.Context, memberID int64, title string) (model.Loan, error) {
	loan, err := s.repo.FindActiveLoanByTitle(ctx, memberID, title)
	if err != nil {
		return model.Loan{}, err
	}
	loan.IsOverdue = loan.Overdue(s.clock())
	return loan, nil
}
