package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
)

const configTableName = `config`

var configColumns = []string{"key", "value", "description", "updated_at"}

func (r *repository) GetConfig(ctx context.Context, key string) (model.PolicyConfig, error) {
	query, args, err := r.qb.Select(configColumns...).From(configTableName).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return model.PolicyConfig{}, err
	}
	var c model.PolicyConfig
	if err := r.q.GetContext(ctx, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PolicyConfig{}, errors.Wrapf(errs.ErrNotFound, "config %q", key)
		}
		return model.PolicyConfig{}, err
	}
	return c, nil
}

func (r *repository) ListConfig(ctx context.Context) ([]model.PolicyConfig, error) {
	query, args, err := r.qb.Select(configColumns...).From(configTableName).OrderBy("key").ToSql()
	if err != nil {
		return nil, err
	}
	configs := make([]model.PolicyConfig, 0)
	if err := r.q.SelectContext(ctx, &configs, query, args...); err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repository) UpsertConfig(ctx context.Context, c model.PolicyConfig) (model.PolicyConfig, error) {
	query, args, err := r.qb.Insert(configTableName).
		Columns(configColumns...).
		Values(c.Key, c.Value, c.Description, c.UpdatedAt).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return model.PolicyConfig{}, err
	}
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return model.PolicyConfig{}, err
	}
	return r.GetConfig(ctx, c.Key)
}
