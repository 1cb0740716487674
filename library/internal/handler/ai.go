package handler

import (
	"net/http"

	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/pkg/auth"
	"github.com/labstack/echo/v4"
)

// callerID is zero for anonymous requests.
func callerID(c echo.Context) int64 {
	id, _ := auth.FromContext(c.Request().Context())
	return id.MemberID
}

func (h *Handler) Chat(c echo.Context) error {
	var req model.ChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.chatSvc.Chat(c.Request().Context(), callerID(c), req.Message)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Recommend(c echo.Context) error {
	var req model.RecommendRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.librarySvc.Recommend(c.Request().Context(), callerID(c), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}
