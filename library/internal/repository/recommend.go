package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
)

// TopCategoryForMember returns the category the member borrowed most, or "" without history.
func (r *repository) TopCategoryForMember(ctx context.Context, memberID int64) (string, error) {
	query, args, err := r.qb.Select("i.category").
		From(loansTableName + " l").
		Join(itemsTableName + " i ON i.id = l.item_id").
		Where(sq.Eq{"l.member_id": memberID}).
		Where(sq.NotEq{"i.category": ""}).
		GroupBy("i.category").
		OrderBy("COUNT(*) DESC", "i.category").
		Limit(1).
		ToSql()
	if err != nil {
		return "", err
	}
	var category string
	if err := r.q.GetContext(ctx, &category, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return category, nil
}

func (r *repository) ListUnborrowedInCategory(ctx context.Context, memberID int64, category string, limit int) ([]model.Item, error) {
	// Question placeholders here; the outer builder rewrites them for the dialect.
	sub, subArgs, err := sq.Select("item_id").From(loansTableName).Where(sq.Eq{"member_id": memberID}).ToSql()
	if err != nil {
		return nil, err
	}
	b := r.qb.Select(itemColumns...).
		From(itemsTableName).
		Where(sq.Eq{"category": category}).
		Where(sq.Gt{"stock_quantity": 0}).
		Where(sq.Expr("id NOT IN ("+sub+")", subArgs...)).
		OrderBy("id")
	return r.selectItems(ctx, paginate(b, 0, limit))
}

func (r *repository) ListTopRated(ctx context.Context, limit int) ([]model.Item, error) {
	b := r.qb.Select(prefixed("i", itemColumns)...).
		From(itemsTableName + " i").
		Join(reviewsTableName + " r ON r.item_id = i.id").
		Where(sq.Gt{"i.stock_quantity": 0}).
		GroupBy(prefixed("i", itemColumns)...).
		OrderBy("AVG(r.rating) DESC", "COUNT(r.id) DESC", "i.id")
	return r.selectItems(ctx, paginate(b, 0, limit))
}

func (r *repository) ListMostBorrowed(ctx context.Context, limit int) ([]model.Item, error) {
	b := r.qb.Select(prefixed("i", itemColumns)...).
		From(itemsTableName + " i").
		Join(loansTableName + " l ON l.item_id = i.id").
		Where(sq.Gt{"i.stock_quantity": 0}).
		GroupBy(prefixed("i", itemColumns)...).
		OrderBy("COUNT(l.id) DESC", "i.id")
	return r.selectItems(ctx, paginate(b, 0, limit))
}

func (r *repository) selectItems(ctx context.Context, b sq.SelectBuilder) ([]model.Item, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	items := make([]model.Item, 0)
	if err := r.q.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}
