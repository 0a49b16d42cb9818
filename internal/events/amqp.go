package events

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var _ Publisher = (*AMQPPublisher)(nil)

// AMQPPublisher publishes events to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex // guards ch; amqp channels are not safe for concurrent publish
	ch *amqp.Channel
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %q", exchange)
	}
	return &AMQPPublisher{conn: conn, exchange: exchange, ch: ch}, nil
}

// Publish sends e as a persistent JSON message routed by e.RoutingKey().
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	body := EncodeEvent(e)

	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.PublishWithContext(ctx,
		p.exchange,
		e.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    e.At,
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrapf(err, "publish %s", e.RoutingKey())
	}
	return nil
}

// Ping reports an error when the broker connection has been lost.
func (p *AMQPPublisher) Ping(context.Context) error {
	if p.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		_ = p.conn.Close()
		return errors.Wrap(err, "close channel")
	}
	return p.conn.Close()
}

// EncodeEvent renders e as the JSON message body.
func EncodeEvent(e Event) []byte {
	var enc jx.Encoder
	enc.ObjStart()
	enc.FieldStart("entity")
	enc.Str(string(e.Entity))
	enc.FieldStart("action")
	enc.Str(string(e.Action))
	enc.FieldStart("id")
	enc.Str(e.ID)
	enc.FieldStart("at")
	enc.Str(e.At.UTC().Format(time.RFC3339Nano))
	enc.ObjEnd()
	return enc.Bytes()
}
