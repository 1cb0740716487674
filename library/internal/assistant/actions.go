package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	ActionBorrow     = "borrow_book"
	ActionReturn     = "return_book"
	ActionExtend     = "extend_loan"
	ActionListLoans  = "get_user_loans"
	ActionSearch     = "search_books"
	searchResultSize = 10
)

// Actions runs model-requested operations. Every member-bound action uses the caller's id;
// a user_id supplied in the arguments is ignored. Failures come back as results, not errors.
type Actions struct {
	lib Library
	log *zap.Logger
}

func NewActions(lib Library, log *zap.Logger) *Actions {
	return &Actions{lib: lib, log: log.Named("actions")}
}

func failure(name, format string, args ...any) model.ActionResult {
	return model.ActionResult{Name: name, Success: false, Message: fmt.Sprintf(format, args...)}
}

func (a *Actions) Execute(ctx context.Context, memberID int64, name string, args map[string]any) model.ActionResult {
	switch name {
	case ActionBorrow, ActionReturn, ActionExtend, ActionListLoans:
		if memberID == 0 {
			return failure(name, "Please log in to use this feature")
		}
	}

	switch name {
	case ActionBorrow:
		return a.borrow(ctx, memberID, args)
	case ActionReturn:
		return a.onLoan(ctx, memberID, name, args, a.lib.ReturnItem)
	case ActionExtend:
		return a.onLoan(ctx, memberID, name, args, a.lib.ExtendLoan)
	case ActionListLoans:
		return a.listLoans(ctx, memberID, args)
	case ActionSearch:
		return a.search(ctx, args)
	default:
		return failure(name, "Unknown action %q", name)
	}
}

func (a *Actions) borrow(ctx context.Context, memberID int64, args map[string]any) model.ActionResult {
	itemID, ok := argInt(args, "book_id")
	if !ok {
		title := argString(args, "book_title")
		if title == "" {
			return failure(ActionBorrow, "Tell me the book id or title")
		}
		item, err := a.lib.FindItemByTitle(ctx, title)
		if err != nil {
			return a.fromError(ActionBorrow, err, fmt.Sprintf("No book matches '%s'", title))
		}
		itemID = item.ID
	}
	res, err := a.lib.BorrowItem(ctx, memberID, itemID)
	if err != nil {
		return a.fromError(ActionBorrow, err, "Book not found")
	}
	return fromLoanResult(ActionBorrow, res)
}

func (a *Actions) onLoan(
	ctx context.Context, memberID int64, name string, args map[string]any,
	op func(ctx context.Context, loanID int64) (model.LoanResult, error),
) model.ActionResult {
	var loan model.Loan
	if loanID, ok := argInt(args, "loan_id"); ok {
		l, err := a.lib.GetLoan(ctx, loanID)
		if err != nil {
			return a.fromError(name, err, "Loan not found")
		}
		if l.UserID != memberID {
			return failure(name, "Loan not found")
		}
		loan = l
	} else {
		title := argString(args, "book_title")
		if title == "" {
			return failure(name, "Tell me the loan id or book title")
		}
		l, err := a.lib.FindActiveLoanByTitle(ctx, memberID, title)
		if err != nil {
			return a.fromError(name, err, fmt.Sprintf("You have no active loan for '%s'", title))
		}
		loan = l
	}
	res, err := op(ctx, loan.ID)
	if err != nil {
		return a.fromError(name, err, "Loan not found")
	}
	return fromLoanResult(name, res)
}

func (a *Actions) listLoans(ctx context.Context, memberID int64, args map[string]any) model.ActionResult {
	f := model.LoanFilter{UserID: &memberID}
	switch strings.ToLower(argString(args, "status")) {
	case "active", "borrowed":
		f.Status = model.LoanStatusBorrowed
	case "overdue":
		f.Status = model.LoanStatusOverdue
	case "returned":
		f.Status = model.LoanStatusReturned
	}
	loans, err := a.lib.ListLoans(ctx, f)
	if err != nil {
		return a.fromError(ActionListLoans, err, "")
	}
	return model.ActionResult{
		Name:    ActionListLoans,
		Success: true,
		Message: fmt.Sprintf("%d loans found", len(loans)),
		Data:    loans,
	}
}

func (a *Actions) search(ctx context.Context, args map[string]any) model.ActionResult {
	items, err := a.lib.ListItems(ctx, model.ItemFilter{
		Search:   argString(args, "keyword"),
		Category: argString(args, "category"),
		Limit:    searchResultSize,
	})
	if err != nil {
		return a.fromError(ActionSearch, err, "")
	}
	return model.ActionResult{
		Name:    ActionSearch,
		Success: true,
		Message: fmt.Sprintf("%d books found", len(items)),
		Data:    items,
	}
}

func (a *Actions) fromError(name string, err error, notFound string) model.ActionResult {
	if errors.Is(err, errs.ErrNotFound) && notFound != "" {
		return failure(name, notFound)
	}
	a.log.Error(name, zap.Error(err))
	return failure(name, "The request could not be completed")
}

func fromLoanResult(name string, res model.LoanResult) model.ActionResult {
	out := model.ActionResult{Name: name, Success: res.Success, Message: res.Message}
	if res.Loan != nil {
		out.Data = res.Loan
	}
	return out
}

func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}

func argInt(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), v > 0
	case int64:
		return v, v > 0
	case int:
		return int64(v), v > 0
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil && n > 0
	default:
		return 0, false
	}
}
