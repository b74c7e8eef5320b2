// Package notify publishes order notifications to RabbitMQ so waiter
// pagers and front-of-house displays can subscribe without polling the
// store themselves. The broker is optional; the app runs without it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"menuquick/internal/watch"
)

const (
	ExchangeNotifications = "orders_notifications"
	QueueNotifications    = "notifications.q"
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(host string, port int, user, pass string) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", user, pass, host, port)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeclareAll sets up the fanout exchange and its catch-all queue.
func (c *Client) DeclareAll() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}
	if err := c.ch.ExchangeDeclare(ExchangeNotifications, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(QueueNotifications, true, false, false, false, nil); err != nil {
		return err
	}
	return c.ch.QueueBind(QueueNotifications, "", ExchangeNotifications, false, nil)
}

func (c *Client) PublishPersistent(ctx context.Context, exchange, key string, body []byte) error {
	return c.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}

func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return c.ch.Consume(queue, consumer, false, false, false, false, nil)
}

// AMQPNotifier adapts the broker client to the watcher's sink
// interface. Publish failures are logged and dropped; a broker outage
// must not stall the poll loop.
type AMQPNotifier struct {
	client *Client
	lg     *zap.Logger
}

func NewAMQPNotifier(client *Client, lg *zap.Logger) *AMQPNotifier {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &AMQPNotifier{client: client, lg: lg}
}

func (a *AMQPNotifier) Notify(ctx context.Context, n watch.Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		a.lg.Warn("notification_encode_failed", zap.Error(err))
		return
	}
	if err := a.client.PublishPersistent(ctx, ExchangeNotifications, string(n.Kind), body); err != nil {
		a.lg.Warn("notification_publish_failed",
			zap.String("kind", string(n.Kind)),
			zap.String("order_id", n.ShortID),
			zap.Error(err))
	}
}
