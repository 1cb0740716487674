package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const itemsTableName = `items`

var itemColumns = []string{
	"id", "title", "author", "category", "isbn", "description", "cover_emoji", "stock_quantity", "created_at", "updated_at",
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

func (r *repository) CreateItem(ctx context.Context, item model.Item) (model.Item, error) {
	query, args, err := r.qb.Insert(itemsTableName).
		Columns("title", "author", "category", "isbn", "description", "cover_emoji", "stock_quantity", "created_at", "updated_at").
		Values(item.Title, item.Author, item.Category, item.ISBN, item.Description, item.CoverEmoji, item.StockQuantity, item.CreatedAt, item.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return model.Item{}, err
	}
	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&item.ID); err != nil {
		if isUniqueViolation(err) {
			return model.Item{}, errors.Wrap(errs.ErrDuplicate, "isbn already registered")
		}
		r.log.Error("CreateItem", zap.String("q", query), zap.Error(err))
		return model.Item{}, err
	}
	return item, nil
}

func (r *repository) getItem(ctx context.Context, b sq.SelectBuilder) (model.Item, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return model.Item{}, err
	}
	var item model.Item
	if err := r.q.GetContext(ctx, &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Item{}, errors.Wrap(errs.ErrNotFound, "book")
		}
		return model.Item{}, err
	}
	return item, nil
}

func (r *repository) GetItem(ctx context.Context, id int64) (model.Item, error) {
	return r.getItem(ctx, r.qb.Select(itemColumns...).From(itemsTableName).Where(sq.Eq{"id": id}))
}

func (r *repository) LockItem(ctx context.Context, id int64) (model.Item, error) {
	return r.getItem(ctx, r.forUpdate(r.qb.Select(itemColumns...).From(itemsTableName).Where(sq.Eq{"id": id})))
}

// FindItemByTitle returns the first item whose title contains title, case-insensitively.
func (r *repository) FindItemByTitle(ctx context.Context, title string) (model.Item, error) {
	return r.getItem(ctx, r.qb.Select(itemColumns...).
		From(itemsTableName).
		Where(sq.Like{"LOWER(title)": "%" + strings.ToLower(title) + "%"}).
		OrderBy("id").
		Limit(1))
}

func (r *repository) ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error) {
	b := r.qb.Select(itemColumns...).From(itemsTableName)
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		b = b.Where(sq.Or{
			sq.Like{"LOWER(title)": pattern},
			sq.Like{"LOWER(author)": pattern},
		})
	}
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	if f.Available != nil {
		if *f.Available {
			b = b.Where(sq.Gt{"stock_quantity": 0})
		} else {
			b = b.Where(sq.Eq{"stock_quantity": 0})
		}
	}
	query, args, err := paginate(b.OrderBy("id"), f.Skip, f.Limit).ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListItems", zap.String("query", query), zap.Any("args", args))

	items := make([]model.Item, 0)
	if err := r.q.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]string, error) {
	query, args, err := r.qb.Select("category").
		Distinct().
		From(itemsTableName).
		Where(sq.NotEq{"category": ""}).
		OrderBy("category").
		ToSql()
	if err != nil {
		return nil, err
	}
	categories := make([]string, 0)
	if err := r.q.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) UpdateItem(ctx context.Context, item model.Item) (model.Item, error) {
	query, args, err := r.qb.Update(itemsTableName).
		Set("title", item.Title).
		Set("author", item.Author).
		Set("category", item.Category).
		Set("isbn", item.ISBN).
		Set("description", item.Description).
		Set("cover_emoji", item.CoverEmoji).
		Set("stock_quantity", item.StockQuantity).
		Set("updated_at", item.UpdatedAt).
		Where(sq.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return model.Item{}, err
	}
	if err := r.execOne(ctx, "book", query, args...); err != nil {
		return model.Item{}, err
	}
	return item, nil
}

func (r *repository) DeleteItem(ctx context.Context, id int64) error {
	query, args, err := r.qb.Delete(itemsTableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, "book", query, args...)
}

// DecrementStock takes one copy; the stock_quantity > 0 guard makes it fail rather than go negative.
func (r *repository) DecrementStock(ctx context.Context, itemID int64, at time.Time) error {
	query, args, err := r.qb.Update(itemsTableName).
		Set("stock_quantity", sq.Expr("stock_quantity - 1")).
		Set("updated_at", at).
		Where(sq.Eq{"id": itemID}).
		Where(sq.Gt{"stock_quantity": 0}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrOutOfStock
	}
	return nil
}

func (r *repository) IncrementStock(ctx context.Context, itemID int64, at time.Time) error {
	query, args, err := r.qb.Update(itemsTableName).
		Set("stock_quantity", sq.Expr("stock_quantity + 1")).
		Set("updated_at", at).
		Where(sq.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, "book", query, args...)
}
