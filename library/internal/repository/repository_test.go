package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockRepo(t *testing.T) (*repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(sqlx.NewDb(db, "pgx"), zap.NewNop())
	require.NoError(t, err)
	return repo, mock
}

func TestRepository_GetItem(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "title", "author", "category", "isbn", "description", "cover_emoji", "stock_quantity", "created_at", "updated_at"}

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		want    model.Item
		wantErr error
	}{
		{
			name: "ok",
			rows: sqlmock.NewRows(cols).AddRow(1, "Go", "Pike", "Programming", nil, "", "📘", 2, now, now),
			want: model.Item{
				ID: 1, Title: "Go", Author: "Pike", Category: "Programming", CoverEmoji: "📘",
				StockQuantity: 2, CreatedAt: now, UpdatedAt: now,
			},
		},
		{
			name:    "not found",
			rows:    sqlmock.NewRows(cols),
			wantErr: errs.ErrNotFound,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, author, category, isbn, description, cover_emoji, stock_quantity, created_at, updated_at FROM items WHERE id = $1")).
				WithArgs(int64(1)).
				WillReturnRows(tt.rows)

			got, err := repo.GetItem(context.Background(), 1)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_DecrementStock(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	q := regexp.QuoteMeta("UPDATE items SET stock_quantity = stock_quantity - 1, updated_at = $1 WHERE id = $2 AND stock_quantity > $3")

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "ok", affected: 1},
		{name: "no copies", affected: 0, wantErr: errs.ErrOutOfStock},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo, mock := newMockRepo(t)
			mock.ExpectExec(q).WithArgs(at, int64(7), 0).WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.DecrementStock(context.Background(), 7, at)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_CreateMemberDuplicate(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO members")).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := repo.CreateMember(context.Background(), model.Member{Email: "a@b.c", Role: model.RoleMember})
	require.ErrorIs(t, err, errs.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InTx(t *testing.T) {
	t.Parallel()
	lockQuery := regexp.QuoteMeta("SELECT id, member_id, item_id, loan_date, due_date, return_date, extension_count, status FROM loans WHERE id = $1 FOR UPDATE")

	t.Run("commit with row lock", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(3)).WillReturnRows(
			sqlmock.NewRows(loanColumns).AddRow(3, 1, 2, now, now, nil, 0, "BORROWED"))
		mock.ExpectCommit()

		err := repo.InTx(context.Background(), func(tx Repository) error {
			loan, err := tx.LockLoan(context.Background(), 3)
			require.Equal(t, model.LoanStatusBorrowed, loan.Status)
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := repo.InTx(context.Background(), func(Repository) error { return boom })
		require.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no lock outside tx", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, member_id, item_id, loan_date, due_date, return_date, extension_count, status FROM loans WHERE id = $1")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(loanColumns))

		_, err := repo.LockLoan(context.Background(), 3)
		require.ErrorIs(t, err, errs.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_ListLoansOverdueFilter(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	member := int64(5)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE l.member_id = $1 AND l.status = $2 AND l.due_date < $3 ORDER BY l.loan_date DESC, l.id DESC LIMIT 20")).
		WithArgs(member, model.LoanStatusBorrowed, now).
		WillReturnRows(sqlmock.NewRows(append(loanColumns, "book_title")).
			AddRow(9, 5, 2, now.AddDate(0, 0, -20), now.AddDate(0, 0, -6), nil, 0, "BORROWED", "Dune"))

	loans, err := repo.ListLoans(context.Background(), model.LoanFilter{UserID: &member, Status: model.LoanStatusOverdue, Limit: 20}, now)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.Equal(t, "Dune", loans[0].BookTitle)
	require.NoError(t, mock.ExpectationsWereMet())
}
