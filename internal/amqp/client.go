package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/rabbitmq/amqp091-go"

	"gastos/internal/core"
	"gastos/internal/log"
)

const (
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// ErrMalformed marks a delivery whose body cannot be decoded. Such messages
// are dropped instead of requeued.
var ErrMalformed = errors.New("malformed message")

// Config names the broker endpoint and the queues bound to the exchange.
type Config struct {
	URL           string
	Exchange      string
	MessagesQueue string
	RepliesQueue  string
	AlertsQueue   string
	EventsQueue   string
	Prefetch      int
	DialAttempts  uint
	DialDelay     time.Duration
}

func (c Config) queues() []string {
	var out []string
	for _, q := range []string{c.MessagesQueue, c.RepliesQueue, c.AlertsQueue, c.EventsQueue} {
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

type Client struct {
	mu           sync.Mutex
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	url          string
	exchangeName string
	queueName    string // inbound chat messages
	cfg          Config
	logger       *log.Logger

	// circuit breaker
	state        int32
	failureCount int64
	lastFailure  time.Time
}

// NewClient dials the broker, retrying connection errors, and declares the
// exchange and every configured queue.
func NewClient(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cfg.DialAttempts == 0 {
		cfg.DialAttempts = 5
	}
	if cfg.DialDelay <= 0 {
		cfg.DialDelay = time.Second
	}

	client := &Client{
		url:          cfg.URL,
		exchangeName: cfg.Exchange,
		queueName:    cfg.MessagesQueue,
		cfg:          cfg,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}

	if err := client.connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect(ctx context.Context) error {
	var conn *amqp091.Connection
	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var err error
			conn, err = amqp091.Dial(c.url)
			return err
		},
		retry.RetryIf(isConnectionError),
		retry.Attempts(c.cfg.DialAttempts),
		retry.Delay(c.cfg.DialDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	if err := c.setup(); err != nil {
		c.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range c.cfg.queues() {
		if _, err := c.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		// routing key is the queue name on a direct exchange
		if err := c.channel.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	if c.cfg.Prefetch > 0 {
		if err := c.channel.Qos(c.cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}
	return nil
}

// Reconnect replaces a dead connection, backing off between attempts until
// it succeeds or ctx is done.
func (c *Client) Reconnect(ctx context.Context) error {
	c.Close()
	for attempt := 0; ; attempt++ {
		err := c.connect(ctx)
		if err == nil {
			c.recordSuccess()
			c.logger.InfoContext(ctx, "Reconnected to broker", "attempt", attempt+1)
			return nil
		}
		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "Reconnect failed",
			log.FieldError, err,
			"retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// publish marshals v as JSON and routes it to queue.
func (c *Client) publish(ctx context.Context, queue string, v any) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %s: circuit breaker is open", queue)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		c.recordFailure()
		return fmt.Errorf("publish to %s: connection closed", queue)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		queue,          // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.recordFailure()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	c.recordSuccess()
	c.logger.DebugContext(ctx, "Published message",
		log.FieldQueue, queue,
		"exchange", c.exchangeName)
	return nil
}

// PublishChatMessage enqueues an inbound chat message.
func (c *Client) PublishChatMessage(ctx context.Context, msg *ChatMessage) error {
	return c.publish(ctx, c.cfg.MessagesQueue, msg)
}

// PublishReply sends the reply for a handled chat message.
func (c *Client) PublishReply(ctx context.Context, reply *ChatReply) error {
	return c.publish(ctx, c.cfg.RepliesQueue, reply)
}

// PublishAlert sends one alert notification.
func (c *Client) PublishAlert(ctx context.Context, alert core.Alert) error {
	if err := c.publish(ctx, c.cfg.AlertsQueue, NewAlertNotification(alert)); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Published alert",
		log.FieldUserID, alert.UserID,
		log.FieldAlertType, alert.Type,
		log.FieldPriority, alert.Priority,
		log.FieldScopeKey, alert.ScopeKey)
	return nil
}

// PublishCategoryKeywordsUpdated announces a keyword change so consumers
// drop their cached category directory.
func (c *Client) PublishCategoryKeywordsUpdated(ctx context.Context, category string, keywords []string) error {
	return c.publish(ctx, c.cfg.EventsQueue, NewCategoryKeywordsUpdated(category, keywords))
}

// Consume delivers raw bodies from queue to handler with manual ack. A
// handler error wrapping ErrMalformed drops the delivery; any other error
// requeues it. Consume returns when ctx is done or the channel closes.
func (c *Client) Consume(ctx context.Context, queue string, handler func(context.Context, []byte) error) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return fmt.Errorf("consume %s: connection closed", queue)
	}

	msgs, err := channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming", log.FieldQueue, queue)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", log.FieldQueue, queue, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consume %s: message channel closed", queue)
			}
			handleDelivery(ctx, c.logger, queue, delivery, handler)
		}
	}
}

func handleDelivery(ctx context.Context, logger *log.Logger, queue string, d amqp091.Delivery, handler func(context.Context, []byte) error) {
	err := handler(ctx, d.Body)
	switch {
	case err == nil:
		d.Ack(false)
	case errors.Is(err, ErrMalformed):
		logger.ErrorContext(ctx, "Dropping malformed message", log.FieldQueue, queue, log.FieldError, err)
		d.Nack(false, false) // reject and don't requeue
	default:
		logger.ErrorContext(ctx, "Failed to handle message", log.FieldQueue, queue, log.FieldError, err)
		d.Nack(false, true) // reject and requeue
	}
}

// ConsumeChatMessages decodes chat messages from the inbound queue.
func (c *Client) ConsumeChatMessages(ctx context.Context, handler func(context.Context, *ChatMessage) error) error {
	return c.Consume(ctx, c.cfg.MessagesQueue, func(ctx context.Context, body []byte) error {
		msg, err := ChatMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return handler(ctx, msg)
	})
}

// ConsumeCategoryEvents decodes keyword change events.
func (c *Client) ConsumeCategoryEvents(ctx context.Context, handler func(context.Context, *CategoryKeywordsUpdated) error) error {
	return c.Consume(ctx, c.cfg.EventsQueue, func(ctx context.Context, body []byte) error {
		ev, err := CategoryKeywordsUpdatedFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return handler(ctx, ev)
	})
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
