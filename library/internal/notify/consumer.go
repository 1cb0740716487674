package notify

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/ibd-library/library-service/library/internal/model"
	"go.uber.org/zap"
)

type Reminder interface {
	Remind(ctx context.Context, e model.LoanEvent) error
}

// ReminderConsumer reads the loan topic and hands overdue notices to a Reminder.
// Other event types are acknowledged and skipped.
type ReminderConsumer struct {
	reminder Reminder
	log      *zap.Logger
}

func NewReminderConsumer(reminder Reminder, log *zap.Logger) *ReminderConsumer {
	return &ReminderConsumer{
		reminder: reminder,
		log:      log.Named("consumer"),
	}
}

func (c *ReminderConsumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *ReminderConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *ReminderConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			var e model.LoanEvent
			if err := json.Unmarshal(message.Value, &e); err != nil {
				c.log.Error("malformed event", zap.Error(err), zap.Int64("offset", message.Offset))
				session.MarkMessage(message, "")
				continue
			}
			if e.Type != model.EventLoanOverdue {
				session.MarkMessage(message, "")
				continue
			}
			if err := c.reminder.Remind(session.Context(), e); err != nil {
				// left unmarked so the reminder is retried after a rebalance
				c.log.Error("remind", zap.Error(err), zap.Int64("loan_id", e.LoanID))
				continue
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

type MemberLookup interface {
	GetMember(ctx context.Context, id int64) (model.Member, error)
}

// LogReminder records the reminder that would be mailed to the member.
type LogReminder struct {
	members MemberLookup
	log     *zap.Logger
}

func NewLogReminder(members MemberLookup, log *zap.Logger) *LogReminder {
	return &LogReminder{members: members, log: log.Named("reminder")}
}

func (r *LogReminder) Remind(ctx context.Context, e model.LoanEvent) error {
	m, err := r.members.GetMember(ctx, e.UserID)
	if err != nil {
		return err
	}
	r.log.Info("overdue reminder",
		zap.String("email", m.Email),
		zap.String("name", m.Name),
		zap.String("book", e.BookTitle),
		zap.Time("due_date", e.DueDate),
	)
	return nil
}
