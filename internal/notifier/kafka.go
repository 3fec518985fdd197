package notifier

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jonatato/routeit-sub001/internal/models"
)

const changeTopic = "ledger_changes"

// Publisher writes change events to Kafka so every connected client, not just
// the one that caused the mutation, can refresh its cached views.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    changeTopic,
			Balancer: &kafka.Hash{},
		},
	}
}

// Publish keys messages by ledger id so one ledger's events stay ordered
// within a partition.
func (p *Publisher) Publish(ctx context.Context, event models.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.LedgerID),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Consumer reads change events off Kafka and feeds them into a Bus.
type Consumer struct {
	reader *kafka.Reader
	bus    *Bus
	log    zerolog.Logger
}

func NewConsumer(brokers []string, groupID string, bus *Bus, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   changeTopic,
		}),
		bus: bus,
		log: log.With().Str("component", "notifier_consumer").Logger(),
	}
}

// Run blocks until ctx is cancelled, dispatching each event to the bus.
// Undecodable messages are logged and skipped; there is no delivery
// guarantee to recover for.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		var event models.ChangeEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			c.log.Warn().Err(err).Int64("offset", message.Offset).Msg("dropping undecodable change event")
			continue
		}
		c.bus.Publish(event)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
