package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/pkg/sqlite"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Repository interface {
	// InTx runs fn against a repository bound to one transaction; any error rolls it back.
	InTx(ctx context.Context, fn func(repo Repository) error) error

	CreateMember(ctx context.Context, m model.Member) (model.Member, error)
	GetMember(ctx context.Context, id int64) (model.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (model.Member, error)
	LockMember(ctx context.Context, id int64) (model.Member, error)
	ListMembers(ctx context.Context, skip, limit int) ([]model.Member, error)
	UpdateMember(ctx context.Context, m model.Member) (model.Member, error)
	SetMemberRole(ctx context.Context, id int64, role model.Role) error
	DeleteMember(ctx context.Context, id int64) error

	CreateItem(ctx context.Context, item model.Item) (model.Item, error)
	GetItem(ctx context.Context, id int64) (model.Item, error)
	LockItem(ctx context.Context, id int64) (model.Item, error)
	FindItemByTitle(ctx context.Context, title string) (model.Item, error)
	ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error)
	ListCategories(ctx context.Context) ([]string, error)
	UpdateItem(ctx context.Context, item model.Item) (model.Item, error)
	DeleteItem(ctx context.Context, id int64) error
	DecrementStock(ctx context.Context, itemID int64, at time.Time) error
	IncrementStock(ctx context.Context, itemID int64, at time.Time) error

	CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	GetLoan(ctx context.Context, id int64) (model.Loan, error)
	LockLoan(ctx context.Context, id int64) (model.Loan, error)
	UpdateLoan(ctx context.Context, loan model.Loan) error
	CountActiveLoans(ctx context.Context, memberID int64) (int, error)
	ListLoans(ctx context.Context, f model.LoanFilter, now time.Time) ([]model.Loan, error)
	FindActiveLoanByTitle(ctx context.Context, memberID int64, title string) (model.Loan, error)

	CreateReview(ctx context.Context, r model.Review) (model.Review, error)
	GetReview(ctx context.Context, id int64) (model.Review, error)
	ListReviews(ctx context.Context, itemID int64) ([]model.Review, error)
	ReviewStats(ctx context.Context, itemID int64) (model.ReviewStats, error)
	AverageRatings(ctx context.Context, itemIDs []int64) (map[int64]float64, error)
	UpdateReview(ctx context.Context, r model.Review) (model.Review, error)
	DeleteReview(ctx context.Context, id int64) error

	GetConfig(ctx context.Context, key string) (model.PolicyConfig, error)
	ListConfig(ctx context.Context) ([]model.PolicyConfig, error)
	UpsertConfig(ctx context.Context, c model.PolicyConfig) (model.PolicyConfig, error)

	TopCategoryForMember(ctx context.Context, memberID int64) (string, error)
	ListUnborrowedInCategory(ctx context.Context, memberID int64, category string, limit int) ([]model.Item, error)
	ListTopRated(ctx context.Context, limit int) ([]model.Item, error)
	ListMostBorrowed(ctx context.Context, limit int) ([]model.Item, error)
}

type dbtx interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type repository struct {
	db   *sqlx.DB
	q    dbtx
	inTx bool
	qb   sq.StatementBuilderType
	// lock is appended to row reads that precede a write in the same transaction.
	lock string
	log  *zap.Logger
}

// NewRepository serves both PostgreSQL (pgx stdlib) and SQLite handles. SQLite has no
// row locks; its transactions are opened IMMEDIATE by the DSN instead.
func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	r := &repository{
		db:   db,
		q:    db,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		lock: "FOR UPDATE",
		log:  log.Named("repo"),
	}
	if db.DriverName() == sqlite.DriverName {
		r.qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)
		r.lock = ""
	}
	return r, nil
}

func (r *repository) InTx(ctx context.Context, fn func(repo Repository) error) (err error) {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.log.Error("rollback", zap.Error(rbErr))
			}
			return
		}
		err = errors.Wrap(tx.Commit(), "commit tx")
	}()

	txRepo := *r
	txRepo.q = tx
	txRepo.inTx = true
	return fn(&txRepo)
}

func (r *repository) forUpdate(b sq.SelectBuilder) sq.SelectBuilder {
	if r.lock == "" || !r.inTx {
		return b
	}
	return b.Suffix(r.lock)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func paginate(b sq.SelectBuilder, skip, limit int) sq.SelectBuilder {
	if limit <= 0 {
		return b
	}
	b = b.Limit(uint64(limit))
	if skip > 0 {
		b = b.Offset(uint64(skip))
	}
	return b
}
