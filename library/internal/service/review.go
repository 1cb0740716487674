package service

import (
	"context"

	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
)

const (
	minRating = 1
	maxRating = 5
)

func validateRating(rating int) error {
	if rating < minRating || rating > maxRating {
		return errors.Wrapf(errs.ErrValidation, "rating must be between %d and %d", minRating, maxRating)
	}
	return nil
}

// AddReview stores one review per (member, item); a second one is rejected as a duplicate.
func (s *Service) AddReview(ctx context.Context, req model.CreateReviewRequest) (model.Review, error) {
	if err := validateRating(req.Rating); err != nil {
		return model.Review{}, err
	}
	member, err := s.repo.GetMember(ctx, req.UserID)
	if err != nil {
		return model.Review{}, err
	}
	if _, err := s.repo.GetItem(ctx, req.BookID); err != nil {
		return model.Review{}, err
	}
	now := s.clock()
	rv, err := s.repo.CreateReview(ctx, model.Review{
		UserID:    req.UserID,
		BookID:    req.BookID,
		Rating:    req.Rating,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.Review{}, err
	}
	rv.UserName = member.Name
	return rv, nil
}

func (s *Service) GetReview(ctx context.Context, id int64) (model.Review, error) {
	return s.repo.GetReview(ctx, id)
}

func (s *Service) ListReviews(ctx context.Context, itemID int64) ([]model.Review, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListReviews(ctx, itemID)
}

// AverageRating returns the mean rating and review count; the mean is nil without reviews.
func (s *Service) AverageRating(ctx context.Context, itemID int64) (model.ReviewStats, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return model.ReviewStats{}, err
	}
	return s.repo.ReviewStats(ctx, itemID)
}

func (s *Service) UpdateReview(ctx context.Context, id int64, req model.UpdateReviewRequest) (model.Review, error) {
	rv, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return model.Review{}, err
	}
	if req.Rating != nil {
		if err := validateRating(*req.Rating); err != nil {
			return model.Review{}, err
		}
		rv.Rating = *req.Rating
	}
	if req.Content != nil {
		rv.Content = *req.Content
	}
	rv.UpdatedAt = s.clock()
	return s.repo.UpdateReview(ctx, rv)
}

func (s *Service) DeleteReview(ctx context.Context, id int64) error {
	return s.repo.DeleteReview(ctx, id)
}
