package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/alerts"
	"gastos/internal/categorizer"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/parser"
	"gastos/internal/ports"
	"gastos/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 4, 19, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []core.Alert
	err    error
}

func (n *recordingNotifier) PublishAlert(_ context.Context, a core.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, a)
	return nil
}

type failingWriter struct{}

func (failingWriter) SaveTransaction(context.Context, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, errors.New("disk full")
}

func (failingWriter) MessageTransactions(context.Context, string, string) ([]core.Transaction, error) {
	return nil, nil
}

// flakyWriter fails the failOn-th save and delegates everything else.
type flakyWriter struct {
	*memory.Store
	failOn int
	saves  int
}

func (w *flakyWriter) SaveTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	w.saves++
	if w.saves == w.failOn {
		return core.Transaction{}, errors.New("database is locked")
	}
	return w.Store.SaveTransaction(ctx, tx)
}

func newService(t *testing.T, opts ...ExpenseOption) (*ExpenseService, *memory.Store) {
	t.Helper()
	now := func() time.Time { return testNow }
	store := memory.New(memory.DefaultCategories(), memory.WithClock(now))
	cat := categorizer.New(store,
		categorizer.WithHistory(store),
		categorizer.WithCandidateWriter(store),
		categorizer.WithClock(now),
		categorizer.WithLogger(log.Discard()))
	eval := alerts.New(store, store,
		alerts.WithClock(now),
		alerts.WithLogger(log.Discard()))
	p := parser.New(parser.WithLogger(log.Discard()))

	opts = append([]ExpenseOption{WithClock(now), WithLogger(log.Discard())}, opts...)
	return NewExpenseService(p, cat, eval, store, opts...), store
}

func alertTypes(as []core.Alert) []core.AlertType {
	out := make([]core.AlertType, 0, len(as))
	for _, a := range as {
		out = append(out, a.Type)
	}
	return out
}

func TestHandleMessageRecordsExpense(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, store := newService(t, WithNotifier(notifier))
	ctx := context.Background()

	out, err := svc.HandleMessage(ctx, Message{ID: "m1", UserID: "u1", Text: "gasté 300 en uber", Source: "telegram"})
	require.NoError(t, err)

	assert.True(t, out.Recognized)
	require.Len(t, out.Recorded, 1)
	tx := out.Recorded[0].Transaction
	assert.Equal(t, 300.0, tx.Amount)
	assert.Equal(t, "transporte", tx.Category)
	assert.Equal(t, "telegram", tx.Source)
	assert.Equal(t, testNow, tx.Timestamp)
	assert.NotZero(t, tx.ID)

	assert.Contains(t, alertTypes(out.Alerts()), core.AlertBudgetExceeded)
	assert.Equal(t, out.Alerts(), notifier.alerts)

	stored, err := store.QueryTransactions(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "transporte", stored[0].Category)
}

func TestHandleMessageEvaluatesBeforeSaving(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	out, err := svc.HandleMessage(ctx, Message{UserID: "u1", Text: "gaste 50 en tacos"})
	require.NoError(t, err)
	assert.Empty(t, out.Alerts())

	// 50 + 25 is 75% of the daily limit. Counting the new expense twice
	// would land at 100% and fire nothing.
	out, err = svc.HandleMessage(ctx, Message{UserID: "u1", Text: "gaste 25 en tacos"})
	require.NoError(t, err)
	assert.Equal(t, []core.AlertType{core.AlertBudgetWarning}, alertTypes(out.Alerts()))
	assert.Equal(t, DefaultSource, out.Recorded[0].Transaction.Source)
}

func TestHandleMessageMultipleExpenses(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	out, err := svc.HandleMessage(ctx, Message{UserID: "u1", Text: "gaste 10 en tacos, 5 en metro"})
	require.NoError(t, err)
	require.Len(t, out.Recorded, 2)
	assert.Equal(t, "comida", out.Recorded[0].Transaction.Category)
	assert.Equal(t, "transporte", out.Recorded[1].Transaction.Category)

	stored, err := store.QueryTransactions(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestHandleMessageNotAnExpense(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	out, err := svc.HandleMessage(ctx, Message{UserID: "u1", Text: "hola como estas"})
	require.NoError(t, err)
	assert.False(t, out.Recognized)
	assert.Empty(t, out.Recorded)
	assert.Equal(t, NotRecognizedReply, Reply(out))

	stored, err := store.QueryTransactions(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestHandleMessageRequiresUser(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.HandleMessage(context.Background(), Message{Text: "gaste 50 en tacos"})
	assert.ErrorIs(t, err, core.ErrEmptyUser)
}

func TestHandleMessageStorageFailure(t *testing.T) {
	svc, _ := newService(t)
	svc.store = failingWriter{}

	out, err := svc.HandleMessage(context.Background(), Message{UserID: "u1", Text: "gaste 50 en tacos"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save transaction")
	assert.True(t, out.Recognized)
	assert.Empty(t, out.Recorded)
}

func TestHandleMessageRedeliverySkipsStoredExpenses(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, store := newService(t, WithNotifier(notifier))
	svc.store = &flakyWriter{Store: store, failOn: 2}
	ctx := context.Background()
	msg := Message{ID: "m1", UserID: "u1", Text: "gaste 30 en tacos, 20 en uber"}

	out, err := svc.HandleMessage(ctx, msg)
	require.Error(t, err)
	require.Len(t, out.Recorded, 1)

	out, err = svc.HandleMessage(ctx, msg)
	require.NoError(t, err)
	require.Len(t, out.Recorded, 2)
	assert.True(t, out.Recorded[0].Replayed)
	assert.Empty(t, out.Recorded[0].Alerts)
	assert.False(t, out.Recorded[1].Replayed)
	assert.Equal(t, 1, out.Recorded[1].Transaction.MessageSeq)

	stored, err := store.QueryTransactions(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	amounts := []float64{stored[0].Amount, stored[1].Amount}
	assert.ElementsMatch(t, []float64{30, 20}, amounts)
}

func TestHandleMessageWithoutIDIsNotDeduplicated(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.HandleMessage(ctx, Message{UserID: "u1", Text: "gaste 10 en tacos"})
		require.NoError(t, err)
	}

	stored, err := store.QueryTransactions(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestHandleMessageNotifierFailureIsNotFatal(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("broker down")}
	svc, _ := newService(t, WithNotifier(notifier))

	out, err := svc.HandleMessage(context.Background(), Message{UserID: "u1", Text: "gaste 300 en uber"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Alerts())
}

func TestReply(t *testing.T) {
	out := Outcome{
		Recognized: true,
		Recorded: []RecordedExpense{
			{
				Transaction: core.Transaction{Amount: 300, Category: "transporte", Description: "Uber"},
				Alerts:      []core.Alert{{Payload: core.AlertPayload{Message: "Superaste tu presupuesto diario: $300.00 de $100.00"}}},
			},
			{Transaction: core.Transaction{Amount: 45.5, Category: "comida", Description: "Cafe"}},
		},
	}

	want := "Registré $300.00 en transporte (Uber)\n" +
		"Registré $45.50 en comida (Cafe)\n" +
		"Superaste tu presupuesto diario: $300.00 de $100.00"
	assert.Equal(t, want, Reply(out))
}
