package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	event := model.LoanEvent{Type: model.EventLoanBorrowed, LoanID: 3, UserID: 1, BookID: 2, DueDate: due, OccurredAt: due}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var got model.LoanEvent
			if err := json.Unmarshal(val, &got); err != nil {
				return err
			}
			if got.LoanID != 3 || got.Type != model.EventLoanBorrowed {
				return errors.New("unexpected payload")
			}
			return nil
		})
		p := NewKafkaPublisher(producer, "library.loans", zap.NewNop())

		require.NoError(t, p.Publish(context.Background(), event))
		require.NoError(t, p.Close())
	})

	t.Run("broker error", func(t *testing.T) {
		t.Parallel()
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(errors.New("broker down"))
		p := NewKafkaPublisher(producer, "library.loans", zap.NewNop())

		require.Error(t, p.Publish(context.Background(), event))
		require.NoError(t, p.Close())
	})
}

type fakeLister struct {
	loans   []model.Loan
	filters []model.LoanFilter
}

func (f *fakeLister) ListLoans(_ context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	f.filters = append(f.filters, filter)
	if filter.Skip >= len(f.loans) {
		return nil, nil
	}
	end := filter.Skip + filter.Limit
	if end > len(f.loans) {
		end = len(f.loans)
	}
	return f.loans[filter.Skip:end], nil
}

type fakePublisher struct {
	events []model.LoanEvent
	fail   map[int64]bool
}

func (f *fakePublisher) Publish(_ context.Context, e model.LoanEvent) error {
	if f.fail[e.LoanID] {
		return errors.New("publish failed")
	}
	f.events = append(f.events, e)
	return nil
}

func TestOverdueSweeper_Sweep(t *testing.T) {
	t.Parallel()
	loans := make([]model.Loan, 150)
	for i := range loans {
		loans[i] = model.Loan{ID: int64(i + 1), Status: model.LoanStatusBorrowed}
	}
	lister := &fakeLister{loans: loans}
	pub := &fakePublisher{fail: map[int64]bool{7: true}}

	s := NewOverdueSweeper(lister, pub, zap.NewNop())
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 149, n)
	require.Len(t, lister.filters, 2)
	for _, f := range lister.filters {
		require.Equal(t, model.LoanStatusOverdue, f.Status)
	}
	for _, e := range pub.events {
		require.Equal(t, model.EventLoanOverdue, e.Type)
	}
}

func TestOverdueSweeper_StartRejectsBadSpec(t *testing.T) {
	t.Parallel()
	s := NewOverdueSweeper(&fakeLister{}, &fakePublisher{}, zap.NewNop())
	require.Error(t, s.Start("not a cron spec"))
}
