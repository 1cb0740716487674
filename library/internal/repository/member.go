package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const membersTableName = `members`

var memberColumns = []string{"id", "email", "name", "phone", "address", "password_hash", "role", "created_at"}

func (r *repository) CreateMember(ctx context.Context, m model.Member) (model.Member, error) {
	query, args, err := r.qb.Insert(membersTableName).
		Columns("email", "name", "phone", "address", "password_hash", "role", "created_at").
		Values(m.Email, m.Name, m.Phone, m.Address, m.PasswordHash, m.Role, m.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return model.Member{}, err
	}
	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&m.ID); err != nil {
		if isUniqueViolation(err) {
			return model.Member{}, errors.Wrap(errs.ErrDuplicate, "email already registered")
		}
		r.log.Error("CreateMember", zap.String("q", query), zap.Error(err))
		return model.Member{}, err
	}
	return m, nil
}

func (r *repository) getMember(ctx context.Context, where sq.Sqlizer, lock bool) (model.Member, error) {
	b := r.qb.Select(memberColumns...).From(membersTableName).Where(where).Limit(1)
	if lock {
		b = r.forUpdate(b)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return model.Member{}, err
	}
	var m model.Member
	if err := r.q.GetContext(ctx, &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, errors.Wrap(errs.ErrNotFound, "member")
		}
		return model.Member{}, err
	}
	return m, nil
}

func (r *repository) GetMember(ctx context.Context, id int64) (model.Member, error) {
	return r.getMember(ctx, sq.Eq{"id": id}, false)
}

func (r *repository) LockMember(ctx context.Context, id int64) (model.Member, error) {
	return r.getMember(ctx, sq.Eq{"id": id}, true)
}

func (r *repository) GetMemberByEmail(ctx context.Context, email string) (model.Member, error) {
	return r.getMember(ctx, sq.Eq{"email": email}, false)
}

func (r *repository) ListMembers(ctx context.Context, skip, limit int) ([]model.Member, error) {
	query, args, err := paginate(r.qb.Select(memberColumns...).From(membersTableName).OrderBy("id"), skip, limit).ToSql()
	if err != nil {
		return nil, err
	}
	members := make([]model.Member, 0)
	if err := r.q.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) UpdateMember(ctx context.Context, m model.Member) (model.Member, error) {
	query, args, err := r.qb.Update(membersTableName).
		Set("name", m.Name).
		Set("phone", m.Phone).
		Set("address", m.Address).
		Set("password_hash", m.PasswordHash).
		Where(sq.Eq{"id": m.ID}).
		ToSql()
	if err != nil {
		return model.Member{}, err
	}
	if err := r.execOne(ctx, "member", query, args...); err != nil {
		return model.Member{}, err
	}
	return m, nil
}

func (r *repository) SetMemberRole(ctx context.Context, id int64, role model.Role) error {
	query, args, err := r.qb.Update(membersTableName).
		Set("role", role).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, "member", query, args...)
}

func (r *repository) DeleteMember(ctx context.Context, id int64) error {
	query, args, err := r.qb.Delete(membersTableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, "member", query, args...)
}

// execOne runs a statement that must touch exactly one row.
func (r *repository) execOne(ctx context.Context, entity, query string, args ...interface{}) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(errs.ErrDuplicate, entity)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrap(errs.ErrNotFound, entity)
	}
	return nil
}
