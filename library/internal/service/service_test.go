package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/library/internal/repository"
	"github.com/ibd-library/library-service/library/internal/service"
	"github.com/ibd-library/library-service/library/migrations"
	"github.com/ibd-library/library-service/pkg/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.LoanEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e model.LoanEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	svc    *service.Service
	clock  *clock
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.NewSQLiteDB(ctx, &sqlite.Config{Path: filepath.Join(t.TempDir(), "library.db")}, migrations.SQLite())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := repository.NewRepository(db, zap.NewNop())
	require.NoError(t, err)

	f := &fixture{clock: &clock{now: baseTime}, events: &recordingPublisher{}}
	f.svc = service.NewService(repo, zap.NewNop(),
		service.WithClock(f.clock.Now),
		service.WithPublisher(f.events),
	)
	return f
}

func (f *fixture) member(t *testing.T, name string) model.Member {
	t.Helper()
	m, err := f.svc.Register(context.Background(), model.RegisterRequest{
		Email:    name + "@example.com",
		Name:     name,
		Password: "secret",
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) item(t *testing.T, title string, stock int) model.Item {
	t.Helper()
	it, err := f.svc.CreateItem(context.Background(), model.CreateItemRequest{
		Title:         title,
		Author:        "Author",
		Category:      "Novel",
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	it, err := f.svc.GetItem(context.Background(), id)
	require.NoError(t, err)
	return it.StockQuantity
}

func TestService_BorrowItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "alice")
	it := f.item(t, "Dune", 2)

	res, err := f.svc.BorrowItem(ctx, m.ID, it.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Loan)
	require.Equal(t, model.LoanStatusBorrowed, res.Loan.Status)
	require.Equal(t, baseTime, res.Loan.LoanDate)
	require.Equal(t, baseTime.AddDate(0, 0, 14), res.Loan.DueDate)
	require.Nil(t, res.Loan.ReturnDate)
	require.Zero(t, res.Loan.ExtensionCount)
	require.Equal(t, 1, f.stock(t, it.ID))

	require.Len(t, f.events.events, 1)
	require.Equal(t, model.EventLoanBorrowed, f.events.events[0].Type)

	_, err = f.svc.BorrowItem(ctx, 9999, it.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = f.svc.BorrowItem(ctx, m.ID, 9999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestService_BorrowLastCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	a, b := f.member(t, "alice"), f.member(t, "bob")
	it := f.item(t, "Dune", 1)

	res, err := f.svc.BorrowItem(ctx, a.ID, it.ID)
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = f.svc.BorrowItem(ctx, b.ID, it.ID)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Nil(t, res.Loan)
	require.Equal(t, 0, f.stock(t, it.ID))
}

func TestService_BorrowLastCopyConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	it := f.item(t, "Dune", 1)

	const borrowers = 4
	members := make([]model.Member, borrowers)
	for i := range members {
		members[i] = f.member(t, fmt.Sprintf("m%d", i))
	}

	var wg sync.WaitGroup
	results := make([]model.LoanResult, borrowers)
	errors := make([]error, borrowers)
	for i, m := range members {
		i, m := i, m
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errors[i] = f.svc.BorrowItem(ctx, m.ID, it.ID)
		}()
	}
	wg.Wait()

	success := 0
	for i := range results {
		require.NoError(t, errors[i])
		if results[i].Success {
			success++
		}
	}
	require.Equal(t, 1, success)
	require.Equal(t, 0, f.stock(t, it.ID))
}

func TestService_LoanLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "alice")

	var loans []model.Loan
	for i := 0; i < 3; i++ {
		res, err := f.svc.BorrowItem(ctx, m.ID, f.item(t, fmt.Sprintf("book %d", i), 1).ID)
		require.NoError(t, err)
		require.True(t, res.Success, res.Message)
		loans = append(loans, *res.Loan)
	}

	fourth := f.item(t, "book 4", 1)
	res, err := f.svc.BorrowItem(ctx, m.ID, fourth.ID)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, 1, f.stock(t, fourth.ID))

	ret, err := f.svc.ReturnItem(ctx, loans[0].ID)
	require.NoError(t, err)
	require.True(t, ret.Success)

	res, err = f.svc.BorrowItem(ctx, m.ID, fourth.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
}

func TestService_ReturnItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "alice")
	it := f.item(t, "Dune", 1)

	res, err := f.svc.BorrowItem(ctx, m.ID, it.ID)
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)

	ret, err := f.svc.ReturnItem(ctx, res.Loan.ID)
	require.NoError(t, err)
	require.True(t, ret.Success)
	require.Equal(t, model.LoanStatusReturned, ret.Loan.Status)
	require.NotNil(t, ret.Loan.ReturnDate)
	require.Equal(t, baseTime.Add(48*time.Hour), *ret.Loan.ReturnDate)
	require.Equal(t, 1, f.stock(t, it.ID))

	again, err := f.svc.ReturnItem(ctx, res.Loan.ID)
	require.NoError(t, err)
	require.False(t, again.Success)
	require.Equal(t, "This book has already been returned", again.Message)
	require.Equal(t, 1, f.stock(t, it.ID))

	_, err = f.svc.ReturnItem(ctx, 9999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestService_ExtendLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "alice")
	it := f.item(t, "Dune", 1)

	res, err := f.svc.BorrowItem(ctx, m.ID, it.ID)
	require.NoError(t, err)
	due := res.Loan.DueDate

	// past due loans may still be extended
	f.clock.Advance(20 * 24 * time.Hour)

	ext, err := f.svc.ExtendLoan(ctx, res.Loan.ID)
	require.NoError(t, err)
	require.True(t, ext.Success, ext.Message)
	require.Equal(t, due.AddDate(0, 0, 7), ext.Loan.DueDate)
	require.Equal(t, 1, ext.Loan.ExtensionCount)

	again, err := f.svc.ExtendLoan(ctx, res.Loan.ID)
	require.NoError(t, err)
	require.False(t, again.Success)

	loan, err := f.svc.GetLoan(ctx, res.Loan.ID)
	require.NoError(t, err)
	require.Equal(t, due.AddDate(0, 0, 7), loan.DueDate)
	require.Equal(t, 1, loan.ExtensionCount)

	_, err = f.svc.ReturnItem(ctx, res.Loan.ID)
	require.NoError(t, err)
	returned, err := f.svc.ExtendLoan(ctx, res.Loan.ID)
	require.NoError(t, err)
	require.False(t, returned.Success)
	require.Equal(t, "Only borrowed books can be extended", returned.Message)
}

func TestService_PolicyChangeAppliesToNextBorrow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "alice")

	_, err := f.svc.SetPolicyValue(ctx, model.RoleLibrarian, model.ConfigMaxLoanLimit, "2")
	require.NoError(t, err)

	var got []bool
	items := []model.Item{f.item(t, "a", 1), f.item(t, "b", 1), f.item(t, "c", 1)}
	for _, it := range items {
		res, err := f.svc.BorrowItem(ctx, m.ID, it.ID)
		require.NoError(t, err)
		got = append(got, res.Success)
	}
	require.Equal(t, []bool{true, true, false}, got)

	_, err = f.svc.SetPolicyValue(ctx, model.RoleLibrarian, model.ConfigMaxLoanLimit, "3")
	require.NoError(t, err)
	res, err := f.svc.BorrowItem(ctx, m.ID, items[2].ID)
	require.NoError(t, err)
	require.True(t, res.Success)
}

func TestService_SetPolicyValue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SetPolicyValue(ctx, model.RoleMember, model.ConfigMaxLoanLimit, "10")
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.SetPolicyValue(ctx, model.RoleLibrarian, "unknown_key", "1")
	require.ErrorIs(t, err, errs.ErrNotFound)

	c, err := f.svc.SetPolicyValue(ctx, model.RoleLibrarian, model.ConfigLoanPeriodDays, "21")
	require.NoError(t, err)
	require.Equal(t, "21", c.Value)

	v, err := f.svc.GetPolicyValue(ctx, model.ConfigLoanPeriodDays)
	require.NoError(t, err)
	require.Equal(t, "21", v)

	all, err := f.svc.ListPolicy(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(model.PolicyDefaults))
}

func TestService_InvalidPolicyValue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "alice")
	it := f.item(t, "Dune", 1)

	_, err := f.svc.SetPolicyValue(ctx, model.RoleLibrarian, model.ConfigMaxLoanLimit, "three")
	require.NoError(t, err)

	_, err = f.svc.BorrowItem(ctx, m.ID, it.ID)
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
	require.Equal(t, 1, f.stock(t, it.ID))
}

func TestService_ListLoansOverdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "alice")

	first, err := f.svc.BorrowItem(ctx, m.ID, f.item(t, "a", 1).ID)
	require.NoError(t, err)
	f.clock.Advance(10 * 24 * time.Hour)
	_, err = f.svc.BorrowItem(ctx, m.ID, f.item(t, "b", 1).ID)
	require.NoError(t, err)
	f.clock.Advance(5 * 24 * time.Hour)

	overdue, err := f.svc.ListLoans(ctx, model.LoanFilter{UserID: &m.ID, Status: model.LoanStatusOverdue})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, first.Loan.ID, overdue[0].ID)
	require.True(t, overdue[0].IsOverdue)
	require.Equal(t, model.LoanStatusBorrowed, overdue[0].Status)
	require.Equal(t, "a", overdue[0].BookTitle)

	all, err := f.svc.ListLoans(ctx, model.LoanFilter{UserID: &m.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestService_Reviews(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	a, b := f.member(t, "alice"), f.member(t, "bob")
	it := f.item(t, "Dune", 1)

	stats, err := f.svc.AverageRating(ctx, it.ID)
	require.NoError(t, err)
	require.Nil(t, stats.AverageRating)
	require.Zero(t, stats.ReviewCount)

	for _, rating := range []int{0, 6} {
		_, err := f.svc.AddReview(ctx, model.CreateReviewRequest{UserID: a.ID, BookID: it.ID, Rating: rating})
		require.ErrorIs(t, err, errs.ErrValidation)
	}

	_, err = f.svc.AddReview(ctx, model.CreateReviewRequest{UserID: a.ID, BookID: it.ID, Rating: 4, Content: "good"})
	require.NoError(t, err)
	_, err = f.svc.AddReview(ctx, model.CreateReviewRequest{UserID: a.ID, BookID: it.ID, Rating: 5})
	require.ErrorIs(t, err, errs.ErrDuplicate)
	_, err = f.svc.AddReview(ctx, model.CreateReviewRequest{UserID: b.ID, BookID: it.ID, Rating: 3})
	require.NoError(t, err)

	reviews, err := f.svc.ListReviews(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	stats, err = f.svc.AverageRating(ctx, it.ID)
	require.NoError(t, err)
	require.NotNil(t, stats.AverageRating)
	require.InDelta(t, 3.5, *stats.AverageRating, 1e-9)
	require.Equal(t, 2, stats.ReviewCount)

	bad := 9
	_, err = f.svc.UpdateReview(ctx, reviews[0].ID, model.UpdateReviewRequest{Rating: &bad})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestService_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "alice")

	resp, err := f.svc.Login(ctx, model.LoginRequest{Email: "ALICE@example.com", Password: "secret"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, m.ID, resp.User.ID)

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "secret"})
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = f.svc.Register(ctx, model.RegisterRequest{Email: "alice@example.com", Name: "dup", Password: "secret"})
	require.ErrorIs(t, err, errs.ErrDuplicate)
}

func TestService_Recommend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "alice")
	read := f.item(t, "read", 2)
	unread := f.item(t, "unread", 1)
	_, err := f.svc.CreateItem(ctx, model.CreateItemRequest{Title: "essay", Author: "x", Category: "Essay", StockQuantity: 1})
	require.NoError(t, err)

	_, err = f.svc.BorrowItem(ctx, m.ID, read.ID)
	require.NoError(t, err)

	resp, err := f.svc.Recommend(ctx, m.ID, model.RecommendRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 1)
	require.Equal(t, unread.ID, resp.Recommendations[0].Item.ID)

	resp, err = f.svc.Recommend(ctx, 0, model.RecommendRequest{Category: "Essay"})
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 1)
	require.Equal(t, "essay", resp.Recommendations[0].Item.Title)
}
