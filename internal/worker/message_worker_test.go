package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/services"
)

type fakeHandler struct {
	got services.Message
	out services.Outcome
	err error
}

func (f *fakeHandler) HandleMessage(_ context.Context, msg services.Message) (services.Outcome, error) {
	f.got = msg
	return f.out, f.err
}

type fakeReplies struct {
	replies []*amqp.ChatReply
	err     error
}

func (f *fakeReplies) PublishReply(_ context.Context, r *amqp.ChatReply) error {
	f.replies = append(f.replies, r)
	return f.err
}

type fakeInvalidator struct{ n atomic.Int32 }

func (f *fakeInvalidator) Invalidate() { f.n.Add(1) }

func recordedOutcome() services.Outcome {
	return services.Outcome{
		Recognized: true,
		Recorded: []services.RecordedExpense{
			{Transaction: core.Transaction{Amount: 300, Category: "transporte", Description: "Uber"}},
		},
	}
}

func TestHandleChatMessage(t *testing.T) {
	h := &fakeHandler{out: recordedOutcome()}
	replies := &fakeReplies{}
	w := NewMessageWorker(h, replies, nil, log.Discard())

	msg := amqp.NewChatMessage("u1", "gaste 300 en uber", "telegram")
	require.NoError(t, w.HandleChatMessage(context.Background(), msg))

	assert.Equal(t, msg.ID, h.got.ID)
	assert.Equal(t, "u1", h.got.UserID)
	assert.Equal(t, "gaste 300 en uber", h.got.Text)
	assert.Equal(t, "telegram", h.got.Source)

	require.Len(t, replies.replies, 1)
	assert.Equal(t, msg.ID, replies.replies[0].MessageID)
	assert.True(t, replies.replies[0].Recognized)
	assert.Equal(t, "Registré $300.00 en transporte (Uber)", replies.replies[0].Text)
}

func TestHandleChatMessageErrors(t *testing.T) {
	t.Run("missing user is malformed", func(t *testing.T) {
		w := NewMessageWorker(&fakeHandler{err: core.ErrEmptyUser}, nil, nil, log.Discard())
		err := w.HandleChatMessage(context.Background(), &amqp.ChatMessage{ID: "m1", Text: "gaste 5"})
		assert.ErrorIs(t, err, amqp.ErrMalformed)
	})

	t.Run("storage failure is retried", func(t *testing.T) {
		w := NewMessageWorker(&fakeHandler{err: errors.New("disk full")}, nil, nil, log.Discard())
		err := w.HandleChatMessage(context.Background(), &amqp.ChatMessage{ID: "m1", UserID: "u1", Text: "gaste 5"})
		require.Error(t, err)
		assert.False(t, errors.Is(err, amqp.ErrMalformed))
	})

	t.Run("reply failure is not retried", func(t *testing.T) {
		replies := &fakeReplies{err: errors.New("broker down")}
		w := NewMessageWorker(&fakeHandler{out: recordedOutcome()}, replies, nil, log.Discard())
		err := w.HandleChatMessage(context.Background(), &amqp.ChatMessage{ID: "m1", UserID: "u1", Text: "gaste 300 en uber"})
		assert.NoError(t, err)
		assert.Len(t, replies.replies, 1)
	})
}

func TestHandleKeywordsUpdated(t *testing.T) {
	inv := &fakeInvalidator{}
	w := NewMessageWorker(&fakeHandler{}, nil, inv, log.Discard())

	require.NoError(t, w.HandleKeywordsUpdated(context.Background(), amqp.NewCategoryKeywordsUpdated("comida", nil)))
	assert.Equal(t, int32(1), inv.n.Load())
}

// flakyConsumer drops the connection on the first chat consume and then
// blocks until the context ends.
type flakyConsumer struct {
	chatCalls  atomic.Int32
	reconnects atomic.Int32
}

func (f *flakyConsumer) ConsumeChatMessages(ctx context.Context, _ func(context.Context, *amqp.ChatMessage) error) error {
	if f.chatCalls.Add(1) == 1 {
		return errors.New("message channel closed")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *flakyConsumer) ConsumeCategoryEvents(ctx context.Context, _ func(context.Context, *amqp.CategoryKeywordsUpdated) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *flakyConsumer) Reconnect(context.Context) error {
	f.reconnects.Add(1)
	return nil
}

func TestRunReconnects(t *testing.T) {
	w := NewMessageWorker(&fakeHandler{}, nil, nil, log.Discard())
	c := &flakyConsumer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c) }()

	require.Eventually(t, func() bool { return c.chatCalls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, int32(1), c.reconnects.Load())
}
