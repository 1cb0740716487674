package service

import (
	"context"
	"fmt"

	"github.com/ibd-library/library-service/library/internal/model"
)

const defaultRecommendLimit = 5

// Recommend picks items in this order: unread in-stock titles from the member's most
// borrowed category, in-stock titles of the requested category, the best rated, the most borrowed.
func (s *Service) Recommend(ctx context.Context, memberID int64, req model.RecommendRequest) (model.RecommendResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRecommendLimit
	}

	var (
		items  []model.Item
		reason string
		err    error
	)
	if memberID != 0 {
		top, err := s.repo.TopCategoryForMember(ctx, memberID)
		if err != nil {
			return model.RecommendResponse{}, err
		}
		if top != "" {
			if items, err = s.repo.ListUnborrowedInCategory(ctx, memberID, top, limit); err != nil {
				return model.RecommendResponse{}, err
			}
			reason = fmt.Sprintf("You often read %s", top)
		}
	}
	if len(items) == 0 && req.Category != "" {
		available := true
		if items, err = s.repo.ListItems(ctx, model.ItemFilter{Category: req.Category, Available: &available, Limit: limit}); err != nil {
			return model.RecommendResponse{}, err
		}
		reason = fmt.Sprintf("Available in %s", req.Category)
	}
	if len(items) == 0 {
		if items, err = s.repo.ListTopRated(ctx, limit); err != nil {
			return model.RecommendResponse{}, err
		}
		reason = "Highly rated by readers"
	}
	if len(items) == 0 {
		if items, err = s.repo.ListMostBorrowed(ctx, limit); err != nil {
			return model.RecommendResponse{}, err
		}
		reason = "Popular with members"
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	ratings, err := s.repo.AverageRatings(ctx, ids)
	if err != nil {
		return model.RecommendResponse{}, err
	}

	resp := model.RecommendResponse{Recommendations: make([]model.Recommendation, 0, len(items))}
	for _, it := range items {
		rec := model.Recommendation{Item: it, Reason: reason}
		if avg, ok := ratings[it.ID]; ok {
			avg := avg
			rec.AverageRating = &avg
		}
		resp.Recommendations = append(resp.Recommendations, rec)
	}
	if len(items) == 0 {
		resp.Message = "No recommendations yet"
	} else {
		resp.Message = fmt.Sprintf("%d books recommended", len(items))
	}
	return resp, nil
}
