// Package feed publishes executed trades to Kafka for downstream
// consumers (market data, analytics). Publishing is fire-and-forget from
// the engine's perspective: a broker outage never fails a submission.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cairnex/clob/pkg/engine"
)

// Event is the wire format of one executed trade.
type Event struct {
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Token     string `json:"token"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	TxHash    string `json:"tx"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher writes trade events to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

func NewPublisher(brokers []string, topic string, log *zap.SugaredLogger) *Publisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Publisher{writer: writer, log: log}
}

// PublishTrade sends one settled trade to the topic.
func (p *Publisher) PublishTrade(ctx context.Context, t engine.Trade) error {
	ev := Event{
		Buyer:     t.Buyer.Hex(),
		Seller:    t.Seller.Hex(),
		Token:     t.Token.Hex(),
		Price:     t.Price.String(),
		Amount:    t.Amount.String(),
		TxHash:    t.TxHash.Hex(),
		Timestamp: t.Time.UnixMilli(),
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal trade event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.TxHash),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warnw("trade_publish_failed", "tx", ev.TxHash, "err", err)
		return fmt.Errorf("publish trade event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
