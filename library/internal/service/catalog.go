package service

import (
	"context"

	"github.com/ibd-library/library-service/library/internal/model"
)

const defaultCoverEmoji = "📚"

func (s *Service) ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error) {
	f.Skip, f.Limit = normalizePage(f.Skip, f.Limit)
	return s.repo.ListItems(ctx, f)
}

func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) GetItem(ctx context.Context, id int64) (model.Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) CreateItem(ctx context.Context, req model.CreateItemRequest) (model.Item, error) {
	now := s.clock()
	item := model.Item{
		Title:         req.Title,
		Author:        req.Author,
		Category:      req.Category,
		ISBN:          emptyToNil(req.ISBN),
		Description:   req.Description,
		CoverEmoji:    req.CoverEmoji,
		StockQuantity: req.StockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if item.CoverEmoji == "" {
		item.CoverEmoji = defaultCoverEmoji
	}
	return s.repo.CreateItem(ctx, item)
}

func (s *Service) UpdateItem(ctx context.Context, id int64, req model.UpdateItemRequest) (model.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return model.Item{}, err
	}
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Author != nil {
		item.Author = *req.Author
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.ISBN != nil {
		item.ISBN = emptyToNil(req.ISBN)
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.CoverEmoji != nil {
		item.CoverEmoji = *req.CoverEmoji
	}
	if req.StockQuantity != nil {
		item.StockQuantity = *req.StockQuantity
	}
	item.UpdatedAt = s.clock()
	return s.repo.UpdateItem(ctx, item)
}

func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}

func emptyToNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func (s *Service) FindItemByTitle(ctx context.Context, title string) (model.Item, error) {
	return s.repo.FindItemByTitle(ctx, title)
}
