// Package worker consumes chat messages and category events from the broker
// and drives the expense service with them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/services"
)

type (
	// MessageHandler processes one chat message.
	MessageHandler interface {
		HandleMessage(ctx context.Context, msg services.Message) (services.Outcome, error)
	}

	// ReplyPublisher sends the confirmation text back to the user.
	ReplyPublisher interface {
		PublishReply(ctx context.Context, reply *amqp.ChatReply) error
	}

	// CacheInvalidator drops the cached category directory.
	CacheInvalidator interface {
		Invalidate()
	}

	// Consumer is the broker side of the worker.
	Consumer interface {
		ConsumeChatMessages(ctx context.Context, handler func(context.Context, *amqp.ChatMessage) error) error
		ConsumeCategoryEvents(ctx context.Context, handler func(context.Context, *amqp.CategoryKeywordsUpdated) error) error
		Reconnect(ctx context.Context) error
	}
)

// MessageWorker turns broker deliveries into expense service calls
type MessageWorker struct {
	handler     MessageHandler
	replies     ReplyPublisher
	invalidator CacheInvalidator
	now         func() time.Time
	logger      *log.Logger
}

func NewMessageWorker(handler MessageHandler, replies ReplyPublisher, invalidator CacheInvalidator, logger *log.Logger) *MessageWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MessageWorker{
		handler:     handler,
		replies:     replies,
		invalidator: invalidator,
		now:         time.Now,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChatMessage processes a single chat message from AMQP. Messages
// without a user are dropped; storage failures are returned so the delivery
// is requeued, and the redelivery skips expenses that were already stored.
func (w *MessageWorker) HandleChatMessage(ctx context.Context, msg *amqp.ChatMessage) error {
	w.logger.DebugContext(ctx, "Processing chat message",
		log.FieldMessageID, msg.ID,
		log.FieldUserID, msg.UserID)

	out, err := w.handler.HandleMessage(ctx, services.Message{
		ID:         msg.ID,
		UserID:     msg.UserID,
		Text:       msg.Text,
		Source:     msg.Source,
		ReceivedAt: msg.ReceivedAt,
	})
	if errors.Is(err, core.ErrEmptyUser) {
		return fmt.Errorf("%w: %v", amqp.ErrMalformed, err)
	}
	if err != nil {
		return fmt.Errorf("handle message %s: %w", msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Chat message handled",
		log.FieldMessageID, msg.ID,
		log.FieldUserID, msg.UserID,
		log.FieldCount, len(out.Recorded),
		"alerts", len(out.Alerts()))

	if w.replies == nil {
		return nil
	}
	reply := &amqp.ChatReply{
		MessageID:  msg.ID,
		UserID:     msg.UserID,
		Text:       services.Reply(out),
		Recognized: out.Recognized,
		Timestamp:  w.now(),
	}
	if err := w.replies.PublishReply(ctx, reply); err != nil {
		// The expense is already stored; requeueing would record it twice.
		w.logger.ErrorContext(ctx, "Failed to publish reply",
			log.FieldMessageID, msg.ID,
			log.FieldError, err)
	}
	return nil
}

// HandleKeywordsUpdated drops the categorizer's cached directory.
func (w *MessageWorker) HandleKeywordsUpdated(ctx context.Context, ev *amqp.CategoryKeywordsUpdated) error {
	if w.invalidator != nil {
		w.invalidator.Invalidate()
	}
	w.logger.InfoContext(ctx, "Category directory invalidated",
		log.FieldOperation, log.OpInvalidate,
		log.FieldCategory, ev.Category,
		"timestamp", ev.Timestamp)
	return nil
}

// Run consumes both queues until ctx is done, reconnecting whenever the
// broker drops the connection.
func (w *MessageWorker) Run(ctx context.Context, c Consumer) error {
	for {
		err := w.consume(ctx, c)
		if ctx.Err() != nil {
			return nil
		}
		w.logger.WarnContext(ctx, "Consumption stopped, reconnecting",
			log.FieldOperation, log.OpConsume,
			log.FieldError, err)
		if err := c.Reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reconnect: %w", err)
		}
	}
}

func (w *MessageWorker) consume(ctx context.Context, c Consumer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.ConsumeChatMessages(gctx, w.HandleChatMessage)
	})
	g.Go(func() error {
		return c.ConsumeCategoryEvents(gctx, w.HandleKeywordsUpdated)
	})
	return g.Wait()
}
