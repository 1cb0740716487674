package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const loansTableName = `loans`

var loanColumns = []string{"id", "member_id", "item_id", "loan_date", "due_date", "return_date", "extension_count", "status"}

func (r *repository) loansWithTitle() sq.SelectBuilder {
	return r.qb.Select(append(prefixed("l", loanColumns), "i.title AS book_title")...).
		From(loansTableName + " l").
		Join(itemsTableName + " i ON i.id = l.item_id")
}

func (r *repository) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	query, args, err := r.qb.Insert(loansTableName).
		Columns("member_id", "item_id", "loan_date", "due_date", "extension_count", "status").
		Values(loan.UserID, loan.BookID, loan.LoanDate, loan.DueDate, loan.ExtensionCount, loan.Status).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&loan.ID); err != nil {
		r.log.Error("CreateLoan", zap.String("q", query), zap.Error(err))
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) getLoan(ctx context.Context, b sq.SelectBuilder) (model.Loan, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	var loan model.Loan
	if err := r.q.GetContext(ctx, &loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errors.Wrap(errs.ErrNotFound, "loan")
		}
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	return r.getLoan(ctx, r.loansWithTitle().Where(sq.Eq{"l.id": id}))
}

func (r *repository) LockLoan(ctx context.Context, id int64) (model.Loan, error) {
	return r.getLoan(ctx, r.forUpdate(r.qb.Select(loanColumns...).From(loansTableName).Where(sq.Eq{"id": id})))
}

func (r *repository) UpdateLoan(ctx context.Context, loan model.Loan) error {
	query, args, err := r.qb.Update(loansTableName).
		Set("due_date", loan.DueDate).
		Set("return_date", loan.ReturnDate).
		Set("extension_count", loan.ExtensionCount).
		Set("status", loan.Status).
		Where(sq.Eq{"id": loan.ID}).
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, "loan", query, args...)
}

func (r *repository) CountActiveLoans(ctx context.Context, memberID int64) (int, error) {
	query, args, err := r.qb.Select("COUNT(*)").
		From(loansTableName).
		Where(sq.Eq{"member_id": memberID, "status": model.LoanStatusBorrowed}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListLoans treats the OVERDUE status filter as "borrowed and past due at now".
func (r *repository) ListLoans(ctx context.Context, f model.LoanFilter, now time.Time) ([]model.Loan, error) {
	b := r.loansWithTitle()
	if f.UserID != nil {
		b = b.Where(sq.Eq{"l.member_id": *f.UserID})
	}
	switch f.Status {
	case "":
	case model.LoanStatusOverdue:
		b = b.Where(sq.Eq{"l.status": model.LoanStatusBorrowed}).Where(sq.Lt{"l.due_date": now})
	default:
		b = b.Where(sq.Eq{"l.status": f.Status})
	}
	query, args, err := paginate(b.OrderBy("l.loan_date DESC", "l.id DESC"), f.Skip, f.Limit).ToSql()
	if err != nil {
		return nil, err
	}
	loans := make([]model.Loan, 0)
	if err := r.q.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *repository) FindActiveLoanByTitle(ctx context.Context, memberID int64, title string) (model.Loan, error) {
	return r.getLoan(ctx, r.loansWithTitle().
		Where(sq.Eq{"l.member_id": memberID, "l.status": model.LoanStatusBorrowed}).
		Where(sq.Like{"LOWER(i.title)": "%" + strings.ToLower(title) + "%"}).
		OrderBy("l.due_date", "l.id").
		Limit(1))
}
