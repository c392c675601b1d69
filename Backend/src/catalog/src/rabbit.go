package main

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

const RKStockDepleted = "catalog.stock.depleted"

type Rabbit struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewRabbit devuelve nil sin error cuando url está vacío: el broker es
// opcional y un Rabbit nil publica a la nada.
func NewRabbit(url, exchange string) (*Rabbit, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := amqp.Dial(url)
	if err != nil { return nil, err }
	ch, err := conn.Channel()
	if err != nil { return nil, err }
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &Rabbit{conn: conn, ch: ch, exchange: exchange}, nil
}

func (r *Rabbit) Close() {
	if r == nil { return }
	if r.ch != nil { _ = r.ch.Close() }
	if r.conn != nil { _ = r.conn.Close() }
}

func (r *Rabbit) PublishJSON(routingKey string, v any) error {
	if r == nil { return nil }
	body, err := json.Marshal(v)
	if err != nil { return err }
	return r.ch.PublishWithContext(context.Background(), r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
