package notify

import (
	"context"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/pkg/kafka"
	"github.com/ibd-library/library-service/pkg/metrics"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigFastest

// KafkaPublisher writes loan events to one topic, keyed by loan id.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      log.Named("publisher"),
	}
}

func (p *KafkaPublisher) Publish(_ context.Context, e model.LoanEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal loan event")
	}
	err = kafka.Send(p.producer, p.topic, strconv.FormatInt(e.LoanID, 10), data)
	metrics.EventPublished(string(e.Type), err == nil)
	if err != nil {
		return errors.Wrap(err, "kafka send")
	}
	p.log.Debug("published", zap.String("type", string(e.Type)), zap.Int64("loan_id", e.LoanID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher stands in when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("publisher")}
}

func (p *LogPublisher) Publish(_ context.Context, e model.LoanEvent) error {
	p.log.Debug("loan event", zap.String("type", string(e.Type)), zap.Int64("loan_id", e.LoanID))
	return nil
}
