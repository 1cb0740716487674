package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/pkg/auth"
	"github.com/labstack/echo/v4"
)

// Borrow answers policy rejections with 200 and success=false.
func (h *Handler) Borrow(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req model.BorrowRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := selfOrLibrarian(id, req.UserID); err != nil {
		return err
	}
	res, err := h.librarySvc.BorrowItem(c.Request().Context(), req.UserID, req.BookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Return(c echo.Context) error {
	return h.loanAction(c, h.librarySvc.ReturnItem)
}

func (h *Handler) Extend(c echo.Context) error {
	return h.loanAction(c, h.librarySvc.ExtendLoan)
}

func (h *Handler) loanAction(c echo.Context, op func(ctx context.Context, loanID int64) (model.LoanResult, error)) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	loanID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if !isLibrarian(id) {
		if err := h.checkLoanOwner(ctx, id, loanID); err != nil {
			return err
		}
	}
	res, err := op(ctx, loanID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) checkLoanOwner(ctx context.Context, id auth.Identity, loanID int64) error {
	loan, err := h.librarySvc.GetLoan(ctx, loanID)
	if err != nil {
		return httpError(err)
	}
	return selfOrLibrarian(id, loan.UserID)
}

func (h *Handler) GetLoan(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	loanID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	loan, err := h.librarySvc.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return httpError(err)
	}
	if err := selfOrLibrarian(id, loan.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loan)
}

// ListLoans scopes members to their own loans; librarians may filter by user_id or see all.
func (h *Handler) ListLoans(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	skip, limit, err := page(c)
	if err != nil {
		return err
	}
	f := model.LoanFilter{Skip: skip, Limit: limit}

	if v := c.QueryParam("user_id"); v != "" {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || userID <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		if err := selfOrLibrarian(id, userID); err != nil {
			return err
		}
		f.UserID = &userID
	} else if !isLibrarian(id) {
		self := id.MemberID
		f.UserID = &self
	}

	switch status := model.LoanStatus(strings.ToUpper(c.QueryParam("status"))); status {
	case "":
	case model.LoanStatusBorrowed, model.LoanStatusReturned, model.LoanStatusOverdue:
		f.Status = status
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	loans, err := h.librarySvc.ListLoans(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	return c.JSON(http.StatusOK, loans)
}
