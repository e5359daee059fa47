// Package amqp publishes ledger events to RabbitMQ and consumes them back.
//
// Publishing is guarded by a circuit breaker: after maxFailures consecutive
// failures the client stops trying for openTimeout, then lets one attempt
// through (half-open) to probe the broker.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"financas/internal/core"
	"financas/internal/log"
)

const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures        = 5
	openTimeout        = 30 * time.Second
	maxBackoff         = 30 * time.Second
	maxPublishAttempts = 3
	publishTimeout     = 5 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Handler processes one consumed event. Returning an error requeues it.
type Handler func(ctx context.Context, ev core.LedgerEvent) error

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  int64 // UnixNano
}

type Option func(*Client)

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAMQP) }
}

// NewClient connects to the broker and declares a durable direct exchange
// with one durable queue bound to it under the queue's name.
func NewClient(url, exchangeName, queueName string, opts ...Option) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       log.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// connect dials and declares the topology. Callers hold c.mu.
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

	if err := declare(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func declare(ch *amqp091.Channel, exchange, queue string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name, as usual for a direct exchange.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureChannel returns a usable channel, reconnecting when the previous
// connection was closed.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connect(); err != nil {
		return nil, err
	}
	c.logger.Info("Reconnected to broker", "exchange", c.exchangeName, "queue", c.queueName)
	return c.channel, nil
}

// Publish sends ev to the exchange. It satisfies the ledger's Publisher.
func (c *Client) Publish(ctx context.Context, ev core.LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	body, err := EncodeLedgerEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err = c.publishOnce(ctx, body)
		if err == nil {
			c.recordSuccess()
			c.logger.DebugContext(ctx, "Published ledger event",
				log.FieldOperation, log.OpPublish,
				log.FieldEventType, string(ev.Type),
				log.FieldUserID, ev.OwnerID)
			return nil
		}
		if !isConnectionError(err) || attempt+1 >= maxPublishAttempts {
			break
		}

		c.logger.WarnContext(ctx, "Publish failed, retrying",
			log.FieldError, err.Error(),
			"attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}

	c.recordFailure()
	return fmt.Errorf("publish message: %w", err)
}

func (c *Client) publishOnce(ctx context.Context, body []byte) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
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
}

// ConsumeLedgerEvents delivers queued events to handler until ctx is done.
// Undecodable messages are dropped; handler failures are requeued. A lost
// connection is re-established with exponential backoff.
func (c *Client) ConsumeLedgerEvents(ctx context.Context, handler Handler) error {
	var policy reconnectPolicy
	for {
		delivered, err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := policy.next(delivered)
		c.logger.WarnContext(ctx, "Consumer interrupted, reconnecting",
			log.FieldError, err.Error(),
			"delivered", delivered,
			"backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// reconnectPolicy grows the reconnect delay across consecutive failed
// sessions and starts over once a session delivered messages.
type reconnectPolicy struct {
	attempt int
}

func (p *reconnectPolicy) next(delivered int) time.Duration {
	if delivered > 0 {
		p.attempt = 0
	}
	d := exponentialBackoff(p.attempt)
	p.attempt++
	return d
}

// consume runs one consumer session and reports how many messages it
// delivered to handler before it ended.
func (c *Client) consume(ctx context.Context, handler Handler) (int, error) {
	delivered := 0
	ch, err := c.ensureChannel()
	if err != nil {
		return 0, err
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
		return 0, fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return delivered, ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return delivered, errors.New("message channel closed")
			}

			delivered++
			ev, err := DecodeLedgerEvent(delivery.Body)
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err.Error())
				delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, ev); err != nil {
				c.logger.ErrorContext(ctx, "Failed to handle message",
					log.FieldError, err.Error(),
					log.FieldEventType, string(ev.Type),
					"entity_id", ev.EntityID)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
			c.logger.DebugContext(ctx, "Processed ledger event",
				log.FieldEventType, string(ev.Type),
				"entity_id", ev.EntityID)
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	if time.Since(time.Unix(0, atomic.LoadInt64(&c.lastFailure))) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	atomic.StoreInt64(&c.lastFailure, time.Now().UnixNano())
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
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
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
