package handler

import (
	"net/http"

	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.librarySvc.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.librarySvc.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrInvalidCredentials.Error())
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Logout(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.librarySvc.Logout(c.Request().Context(), id); err != nil {
		h.log.Error("logout", zap.Error(err))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func (h *Handler) Me(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	m, err := h.librarySvc.GetMember(c.Request().Context(), id.MemberID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMembers(c echo.Context) error {
	skip, limit, err := page(c)
	if err != nil {
		return err
	}
	members, err := h.librarySvc.ListMembers(c.Request().Context(), skip, limit)
	if err != nil {
		return httpError(err)
	}
	if members == nil {
		members = []model.Member{}
	}
	return c.JSON(http.StatusOK, members)
}

func (h *Handler) GetMember(c echo.Context) error {
	memberID, err := h.ownMember(c)
	if err != nil {
		return err
	}
	m, err := h.librarySvc.GetMember(c.Request().Context(), memberID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateMember(c echo.Context) error {
	memberID, err := h.ownMember(c)
	if err != nil {
		return err
	}
	var req model.UpdateMemberRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.librarySvc.UpdateMember(c.Request().Context(), memberID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMember(c echo.Context) error {
	memberID, err := h.ownMember(c)
	if err != nil {
		return err
	}
	if err := h.librarySvc.DeleteMember(c.Request().Context(), memberID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ownMember reads :id and checks the caller may act on that member.
func (h *Handler) ownMember(c echo.Context) (int64, error) {
	id, err := identity(c)
	if err != nil {
		return 0, err
	}
	memberID, err := paramID(c, "id")
	if err != nil {
		return 0, err
	}
	if err := selfOrLibrarian(id, memberID); err != nil {
		return 0, err
	}
	return memberID, nil
}
