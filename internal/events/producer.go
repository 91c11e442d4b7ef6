package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hungerapp/hunger/internal/models"
)

const (
	orderTopic   = "order_events"
	publishLimit = 5 * time.Second
)

// Producer publishes storefront events. A nil Producer is valid and drops
// everything, which is how the service runs without a broker.
type Producer struct {
	writer *kafka.Writer
	log    *slog.Logger
}

func NewProducer(address string, log *slog.Logger) *Producer {
	if log == nil {
		log = slog.Default()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(address),
		Topic:                  orderTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: w, log: log}
}

// OrderCompleted publishes the completed order, fire-and-forget: broker
// trouble is logged and never fails checkout.
func (p *Producer) OrderCompleted(ctx context.Context, sessionID string, order models.PastOrder) {
	if p == nil {
		return
	}

	event := map[string]any{
		"type":         "order_completed",
		"sessionId":    sessionID,
		"orderId":      order.ID,
		"restaurantId": order.RestaurantID,
		"total":        order.Total,
		"date":         order.Date,
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error("order event encode failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishLimit)
	defer cancel()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sessionID),
		Value: data,
	})
	if err != nil {
		p.log.Error("order event publish failed", "error", fmt.Errorf("kafka write: %w", err))
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
