// Package analytics is a strictly additive fan-out of completed order
// results to a RabbitMQ exchange, generalizing the teacher's common/broker
// package. Nothing in the core coordination plane reads this back: it
// exists purely for downstream reporting, and its failure never affects
// order dispatch (spec's D-node remains the single source of truth).
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/google/uuid"

	"github.com/ferriscommerce/fabric/internal/model"
)

const orderSettledExchange = "order.settled"

// Publisher fans out order-result events onto orderSettledExchange.
type Publisher struct {
	ch *amqp.Channel
}

// Connect dials RabbitMQ and declares the analytics exchange. A nil
// Publisher with a non-nil error is returned on failure; callers treat this
// as best-effort and continue without analytics.
func Connect(user, pass, host, port string) (*Publisher, func() error, error) {
	addr := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)
	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("analytics: dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("analytics: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(orderSettledExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("analytics: declare exchange: %w", err)
	}
	close := func() error {
		if err := ch.Close(); err != nil {
			return err
		}
		return conn.Close()
	}
	return &Publisher{ch: ch}, close, nil
}

// SettledEvent is the analytics payload published for every order result
// the D-node records.
type SettledEvent struct {
	EventID    string      `json:"event_id"`
	LocalID    uint16      `json:"local_id"`
	Order      model.Order `json:"order"`
	Completed  bool        `json:"completed"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// Publish emits one settled event. Errors are non-fatal to the caller; log
// and move on.
func (p *Publisher) Publish(ctx context.Context, localID uint16, order model.Order, completed bool, recordedAt time.Time) error {
	if p == nil {
		return nil
	}
	evt := SettledEvent{
		EventID:    uuid.NewString(),
		LocalID:    localID,
		Order:      order,
		Completed:  completed,
		RecordedAt: recordedAt,
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("analytics: marshal event: %w", err)
	}
	return p.ch.PublishWithContext(ctx, orderSettledExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
