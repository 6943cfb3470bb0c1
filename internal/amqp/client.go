// Package amqp publishes and consumes ledger sync messages over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"gigledger/internal/core"
	"gigledger/internal/log"
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// ErrCircuitOpen is returned while publishing is suspended after repeated
// failures.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// PublishRecorder observes publish outcomes.
type PublishRecorder interface {
	ObservePublish(outcome string)
}

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *slog.Logger
	recorder     PublishRecorder
	breaker      *gobreaker.CircuitBreaker

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewClient dials the broker and declares the exchange and queue.
func NewClient(url, exchangeName, queueName string, logger *slog.Logger) (*Client, error) {
	c := newClient(url, exchangeName, queueName, logger)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(url, exchangeName, queueName string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "amqp-publish",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				log.FieldComponent, log.ComponentAMQP, "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// SetRecorder attaches publish metrics.
func (c *Client) SetRecorder(r PublishRecorder) { c.recorder = r }

// connect must be called with mu held.
func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// The routing key is the queue name.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// liveChannel returns an open channel, reconnecting if the previous one died.
func (c *Client) liveChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connect(); err != nil {
		return nil, err
	}
	c.logger.Info("Reconnected to AMQP broker", log.FieldComponent, log.ComponentAMQP, "queue", c.queueName)
	return c.channel, nil
}

// PublishLedgerSync publishes a persistent sync message for one ledger day.
func (c *Client) PublishLedgerSync(ctx context.Context, uid string, date core.DateKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := NewLedgerSyncMessage(uid, date).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		ch, err := c.liveChannel()
		if err != nil {
			return nil, err
		}
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return nil, ch.PublishWithContext(
			pctx,
			c.exchangeName, // exchange
			c.queueName,    // routing key
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
	})
	switch {
	case err == nil:
		c.observe("ok")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.observe("open")
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	default:
		c.observe("error")
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "Published ledger sync message",
		log.FieldComponent, log.ComponentAMQP, log.FieldUserID, uid, log.FieldDate, date, "exchange", c.exchangeName)
	return nil
}

func (c *Client) observe(outcome string) {
	if c.recorder != nil {
		c.recorder.ObservePublish(outcome)
	}
}

// ConsumeLedgerSync delivers messages to handler until ctx ends. Malformed
// messages are dropped, handler errors requeue. Lost connections are
// re-established with capped exponential backoff.
func (c *Client) ConsumeLedgerSync(ctx context.Context, handler func(context.Context, *LedgerSyncMessage) error) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		c.logger.WarnContext(ctx, "AMQP connection lost, reconnecting",
			log.FieldComponent, log.ComponentAMQP, log.FieldError, err, "attempt", attempt, "backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *LedgerSyncMessage) error, connected func()) error {
	ch, err := c.liveChannel()
	if err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	c.logger.InfoContext(ctx, "Started consuming ledger sync messages", log.FieldComponent, log.ComponentAMQP, "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handle(ctx, delivery, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, delivery amqp091.Delivery, handler func(context.Context, *LedgerSyncMessage) error) {
	msg, err := LedgerSyncMessageFromJSON(delivery.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Dropping malformed ledger sync message", log.FieldComponent, log.ComponentAMQP, log.FieldError, err)
		_ = delivery.Nack(false, false)
		return
	}
	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle ledger sync message",
			log.FieldComponent, log.ComponentAMQP, log.FieldUserID, msg.UserID, log.FieldDate, msg.Date, log.FieldError, err)
		_ = delivery.Nack(false, true)
		return
	}
	_ = delivery.Ack(false)
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << uint(attempt)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "channel closed", "dial"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
