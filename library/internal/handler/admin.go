package handler

import (
	"net/http"

	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (h *Handler) ListConfig(c echo.Context) error {
	cfg, err := h.librarySvc.ListPolicy(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handler) SetConfig(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req model.SetConfigRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	key := c.Param("key")
	cfg, err := h.librarySvc.SetPolicyValue(c.Request().Context(), model.Role(id.Role), key, req.Value)
	if err != nil {
		return httpError(err)
	}
	h.log.Info("policy changed", zap.String("key", key), zap.String("value", req.Value), zap.Int64("by", id.MemberID))
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handler) SetRole(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	memberID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req model.SetRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.librarySvc.SetMemberRole(ctx, model.Role(id.Role), memberID, req.Role); err != nil {
		return httpError(err)
	}
	m, err := h.librarySvc.GetMember(ctx, memberID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}
