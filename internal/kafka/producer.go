package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/metrics"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
	Interval    time.Duration
}

// Producer publishes domain events as JSON. Writes go through a circuit
// breaker so a dead broker fails fast instead of stalling callers.
type Producer struct {
	writer messageWriter
	topic  string
	cb     *gobreaker.CircuitBreaker
	logger *zap.SugaredLogger
}

func NewProducer(brokers []string, topic string, bc BreakerConfig, logger *zap.SugaredLogger) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Async:        false,
	}
	return newProducer(w, topic, bc, logger)
}

func newProducer(w messageWriter, topic string, bc BreakerConfig, logger *zap.SugaredLogger) *Producer {
	if bc.MaxFailures == 0 {
		bc.MaxFailures = 5
	}
	if bc.Timeout <= 0 {
		bc.Timeout = 30 * time.Second
	}
	st := gobreaker.Settings{
		Name:        "kafka:" + topic,
		MaxRequests: 1,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Infow("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Producer{writer: w, topic: topic, cb: gobreaker.NewCircuitBreaker(st), logger: logger}
}

// Publish writes event under key. Events with the same key land on the same
// partition, so per-gig order is kept.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafkago.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	}
	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return err
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
	return nil
}

func (p *Producer) State() gobreaker.State { return p.cb.State() }

func (p *Producer) Close() error {
	return p.writer.Close()
}
