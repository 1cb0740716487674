package notify

import (
	"context"
	"time"

	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type LoanLister interface {
	ListLoans(ctx context.Context, f model.LoanFilter) ([]model.Loan, error)
}

type Publisher interface {
	Publish(ctx context.Context, e model.LoanEvent) error
}

// OverdueSweeper publishes a loan.overdue reminder for every borrowed loan past its
// due date. It only reads loans; their stored status stays BORROWED.
type OverdueSweeper struct {
	loans     LoanLister
	publisher Publisher
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
}

func NewOverdueSweeper(loans LoanLister, publisher Publisher, log *zap.Logger) *OverdueSweeper {
	return &OverdueSweeper{
		loans:     loans,
		publisher: publisher,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		now:       time.Now,
		log:       log.Named("sweeper"),
	}
}

func (s *OverdueSweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := s.Sweep(ctx)
		if err != nil {
			s.log.Error("sweep", zap.Error(err))
			return
		}
		s.log.Info("sweep finished", zap.Int("reminders", n))
	}); err != nil {
		return errors.Wrapf(err, "cron spec %q", spec)
	}
	s.cron.Start()
	return nil
}

func (s *OverdueSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep walks overdue loans page by page and returns how many reminders were published.
func (s *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	const page = 100
	sent := 0
	for skip := 0; ; skip += page {
		loans, err := s.loans.ListLoans(ctx, model.LoanFilter{Status: model.LoanStatusOverdue, Skip: skip, Limit: page})
		if err != nil {
			return sent, err
		}
		for _, loan := range loans {
			if err := s.publisher.Publish(ctx, model.NewLoanEvent(model.EventLoanOverdue, loan, s.now().UTC())); err != nil {
				s.log.Warn("overdue reminder", zap.Int64("loan_id", loan.ID), zap.Error(err))
				continue
			}
			sent++
		}
		if len(loans) < page {
			return sent, nil
		}
	}
}
