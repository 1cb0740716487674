package handler

import (
	"net/http"

	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/labstack/echo/v4"
)

func (h *Handler) ListReviews(c echo.Context) error {
	itemID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	reviews, err := h.librarySvc.ListReviews(c.Request().Context(), itemID)
	if err != nil {
		return httpError(err)
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *Handler) ReviewStats(c echo.Context) error {
	itemID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	stats, err := h.librarySvc.AverageRating(c.Request().Context(), itemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) CreateReview(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req model.CreateReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := selfOrLibrarian(id, req.UserID); err != nil {
		return err
	}
	review, err := h.librarySvc.AddReview(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, review)
}

func (h *Handler) UpdateReview(c echo.Context) error {
	reviewID, err := h.ownReview(c)
	if err != nil {
		return err
	}
	var req model.UpdateReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	review, err := h.librarySvc.UpdateReview(c.Request().Context(), reviewID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, review)
}

func (h *Handler) DeleteReview(c echo.Context) error {
	reviewID, err := h.ownReview(c)
	if err != nil {
		return err
	}
	if err := h.librarySvc.DeleteReview(c.Request().Context(), reviewID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ownReview(c echo.Context) (int64, error) {
	id, err := identity(c)
	if err != nil {
		return 0, err
	}
	reviewID, err := paramID(c, "id")
	if err != nil {
		return 0, err
	}
	review, err := h.librarySvc.GetReview(c.Request().Context(), reviewID)
	if err != nil {
		return 0, httpError(err)
	}
	if err := selfOrLibrarian(id, review.UserID); err != nil {
		return 0, err
	}
	return reviewID, nil
}
