package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher mirrors job events onto a durable topic exchange so
// out-of-process consumers can subscribe per job (routing key
// "job.<id>").
type EventPublisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewEventPublisher(conn *amqp.Connection, exchange string) (*EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true, // durable
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &EventPublisher{
		channel:  ch,
		exchange: exchange,
	}, nil
}

func (p *EventPublisher) Publish(ctx context.Context, routingKey string, body json.RawMessage) error {
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
