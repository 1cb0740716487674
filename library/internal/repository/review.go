package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
)

const reviewsTableName = `reviews`

var reviewColumns = []string{"id", "member_id", "item_id", "rating", "content", "created_at", "updated_at"}

func (r *repository) CreateReview(ctx context.Context, rv model.Review) (model.Review, error) {
	query, args, err := r.qb.Insert(reviewsTableName).
		Columns("member_id", "item_id", "rating", "content", "created_at", "updated_at").
		Values(rv.UserID, rv.BookID, rv.Rating, rv.Content, rv.CreatedAt, rv.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return model.Review{}, err
	}
	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&rv.ID); err != nil {
		if isUniqueViolation(err) {
			return model.Review{}, errors.Wrap(errs.ErrDuplicate, "member already reviewed this book")
		}
		return model.Review{}, err
	}
	return rv, nil
}

func (r *repository) GetReview(ctx context.Context, id int64) (model.Review, error) {
	query, args, err := r.qb.Select(reviewColumns...).From(reviewsTableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Review{}, err
	}
	var rv model.Review
	if err := r.q.GetContext(ctx, &rv, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Review{}, errors.Wrap(errs.ErrNotFound, "review")
		}
		return model.Review{}, err
	}
	return rv, nil
}

func (r *repository) ListReviews(ctx context.Context, itemID int64) ([]model.Review, error) {
	query, args, err := r.qb.Select(append(prefixed("r", reviewColumns), "m.name AS user_name")...).
		From(reviewsTableName + " r").
		Join(membersTableName + " m ON m.id = r.member_id").
		Where(sq.Eq{"r.item_id": itemID}).
		OrderBy("r.created_at DESC", "r.id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	reviews := make([]model.Review, 0)
	if err := r.q.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *repository) ReviewStats(ctx context.Context, itemID int64) (model.ReviewStats, error) {
	query, args, err := r.qb.Select("CAST(AVG(rating) AS DOUBLE PRECISION)", "COUNT(*)").
		From(reviewsTableName).
		Where(sq.Eq{"item_id": itemID}).
		ToSql()
	if err != nil {
		return model.ReviewStats{}, err
	}
	var (
		avg   sql.NullFloat64
		count int
	)
	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&avg, &count); err != nil {
		return model.ReviewStats{}, err
	}
	stats := model.ReviewStats{BookID: itemID, ReviewCount: count}
	if avg.Valid {
		stats.AverageRating = &avg.Float64
	}
	return stats, nil
}

func (r *repository) AverageRatings(ctx context.Context, itemIDs []int64) (map[int64]float64, error) {
	out := make(map[int64]float64, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	query, args, err := r.qb.Select("item_id", "CAST(AVG(rating) AS DOUBLE PRECISION) AS avg_rating").
		From(reviewsTableName).
		Where(sq.Eq{"item_id": itemIDs}).
		GroupBy("item_id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ItemID int64   `db:"item_id"`
		Avg    float64 `db:"avg_rating"`
	}
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ItemID] = row.Avg
	}
	return out, nil
}

func (r *repository) UpdateReview(ctx context.Context, rv model.Review) (model.Review, error) {
	query, args, err := r.qb.Update(reviewsTableName).
		Set("rating", rv.Rating).
		Set("content", rv.Content).
		Set("updated_at", rv.UpdatedAt).
		Where(sq.Eq{"id": rv.ID}).
		ToSql()
	if err != nil {
		return model.Review{}, err
	}
	if err := r.execOne(ctx, "review", query, args...); err != nil {
		return model.Review{}, err
	}
	return rv, nil
}

func (r *repository) DeleteReview(ctx context.Context, id int64) error {
	query, args, err := r.qb.Delete(reviewsTableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, "review", query, args...)
}
