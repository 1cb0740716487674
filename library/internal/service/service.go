package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ibd-library/library-service/library/internal/model"
	libraryRepo "github.com/ibd-library/library-service/library/internal/repository"
	"github.com/ibd-library/library-service/pkg/auth"
	"go.uber.org/zap"
)

// EventPublisher receives loan events after their transaction committed.
type EventPublisher interface {
	Publish(ctx context.Context, e model.LoanEvent) error
}

type TokenIssuer interface {
	Issue(memberID int64, role string) (string, *auth.Claims, error)
}

type Service struct {
	log     *zap.Logger
	repo    libraryRepo.Repository
	events  EventPublisher
	tokens  TokenIssuer
	revoker auth.Revoker
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func WithAuth(tokens TokenIssuer, revoker auth.Revoker) Option {
	return func(s *Service) {
		s.tokens = tokens
		s.revoker = revoker
	}
}

func NewService(repo libraryRepo.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:     log.Named("service"),
		repo:    repo,
		events:  nopPublisher{},
		tokens:  auth.NewTokenManager(auth.Config{Secret: uuid.NewString(), TokenTTL: 24 * time.Hour}),
		revoker: auth.NewMemoryRevoker(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns the current time in UTC at second precision, the resolution both stores keep.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func (s *Service) publish(ctx context.Context, e model.LoanEvent) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish loan event", zap.String("type", string(e.Type)), zap.Int64("loan_id", e.LoanID), zap.Error(err))
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.LoanEvent) error { return nil }

func normalizePage(skip, limit int) (int, int) {
	const (
		defaultLimit = 20
		maxLimit     = 100
	)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}
