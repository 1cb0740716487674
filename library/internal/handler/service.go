package handler

import (
	"context"

	"github.com/ibd-library/library-service/library/internal/assistant"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/library/internal/service"
	"github.com/ibd-library/library-service/pkg/auth"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error)
	ListCategories(ctx context.Context) ([]string, error)
	GetItem(ctx context.Context, id int64) (model.Item, error)
	CreateItem(ctx context.Context, req model.CreateItemRequest) (model.Item, error)
	UpdateItem(ctx context.Context, id int64, req model.UpdateItemRequest) (model.Item, error)
	DeleteItem(ctx context.Context, id int64) error

	Register(ctx context.Context, req model.RegisterRequest) (model.Member, error)
	Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error)
	Logout(ctx context.Context, id auth.Identity) error
	GetMember(ctx context.Context, id int64) (model.Member, error)
	ListMembers(ctx context.Context, skip, limit int) ([]model.Member, error)
	UpdateMember(ctx context.Context, id int64, req model.UpdateMemberRequest) (model.Member, error)
	DeleteMember(ctx context.Context, id int64) error
	SetMemberRole(ctx context.Context, caller model.Role, id int64, role model.Role) error

	BorrowItem(ctx context.Context, memberID, itemID int64) (model.LoanResult, error)
	ReturnItem(ctx context.Context, loanID int64) (model.LoanResult, error)
	ExtendLoan(ctx context.Context, loanID int64) (model.LoanResult, error)
	GetLoan(ctx context.Context, id int64) (model.Loan, error)
	ListLoans(ctx context.Context, f model.LoanFilter) ([]model.Loan, error)

	AddReview(ctx context.Context, req model.CreateReviewRequest) (model.Review, error)
	GetReview(ctx context.Context, id int64) (model.Review, error)
	ListReviews(ctx context.Context, itemID int64) ([]model.Review, error)
	AverageRating(ctx context.Context, itemID int64) (model.ReviewStats, error)
	UpdateReview(ctx context.Context, id int64, req model.UpdateReviewRequest) (model.Review, error)
	DeleteReview(ctx context.Context, id int64) error

	ListPolicy(ctx context.Context) ([]model.PolicyConfig, error)
	SetPolicyValue(ctx context.Context, role model.Role, key, value string) (model.PolicyConfig, error)

	Recommend(ctx context.Context, memberID int64, req model.RecommendRequest) (model.RecommendResponse, error)
}

type ChatService interface {
	Chat(ctx context.Context, memberID int64, message string) (model.ChatResponse, error)
}

var (
	_ LibraryService = (*service.Service)(nil)
	_ ChatService    = (*assistant.Assistant)(nil)
)
