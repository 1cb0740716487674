package assistant

import (
	"context"

	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/pkg/metrics"
	"go.uber.org/zap"
)

// Library is the slice of the lending service the assistant reads from and acts through.
type Library interface {
	BorrowItem(ctx context.Context, memberID, itemID int64) (model.LoanResult, error)
	ReturnItem(ctx context.Context, loanID int64) (model.LoanResult, error)
	ExtendLoan(ctx context.Context, loanID int64) (model.LoanResult, error)
	GetLoan(ctx context.Context, id int64) (model.Loan, error)
	ListLoans(ctx context.Context, f model.LoanFilter) ([]model.Loan, error)
	FindActiveLoanByTitle(ctx context.Context, memberID int64, title string) (model.Loan, error)
	GetMember(ctx context.Context, id int64) (model.Member, error)
	GetItem(ctx context.Context, id int64) (model.Item, error)
	FindItemByTitle(ctx context.Context, title string) (model.Item, error)
	ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListPolicy(ctx context.Context) ([]model.PolicyConfig, error)
}

// Prompt is one chat turn. MemberID is zero for anonymous callers.
type Prompt struct {
	MemberID int64
	Message  string
}

type Reply struct {
	Text    string
	Sources []string
	Actions []model.ActionResult
}

type Responder interface {
	Respond(ctx context.Context, p Prompt) (Reply, error)
}

const (
	sourceFallback = "fallback"
	sourceModel    = "model"
)

// Assistant answers with the primary responder and falls back to the rule-based one on any failure.
type Assistant struct {
	primary  Responder
	fallback Responder
	log      *zap.Logger
}

// New builds an Assistant; primary may be nil, in which case every answer comes from fallback.
func New(primary, fallback Responder, log *zap.Logger) *Assistant {
	return &Assistant{
		primary:  primary,
		fallback: fallback,
		log:      log.Named("assistant"),
	}
}

func (a *Assistant) Chat(ctx context.Context, memberID int64, message string) (model.ChatResponse, error) {
	p := Prompt{MemberID: memberID, Message: message}
	if a.primary != nil {
		reply, err := a.primary.Respond(ctx, p)
		if err == nil {
			metrics.ChatReply(sourceModel)
			return toResponse(reply), nil
		}
		a.log.Warn("primary responder failed, using fallback", zap.Error(err))
	}
	reply, err := a.fallback.Respond(ctx, p)
	if err != nil {
		return model.ChatResponse{}, err
	}
	metrics.ChatReply(sourceFallback)
	return toResponse(reply), nil
}

func toResponse(r Reply) model.ChatResponse {
	sources := r.Sources
	if sources == nil {
		sources = []string{}
	}
	return model.ChatResponse{
		Response: r.Text,
		Sources:  sources,
		Actions:  r.Actions,
	}
}
