// Package services wires the parser, categorizer and alert engine into the
// operations callers use: handling a chat message and maintaining the
// category directory.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/ports"
)

// DefaultSource tags transactions whose message did not name a source.
const DefaultSource = "chat"

type (
	// Parser extracts expenses from chat text.
	Parser interface {
		IsExpenseCandidate(text string) bool
		ParseMultiple(text string) []core.ParsedExpense
	}

	// Categorizer assigns a category to a description. It never fails.
	Categorizer interface {
		Categorize(ctx context.Context, description, userID string) string
	}

	// AlertEvaluator returns the alerts a candidate expense would trigger.
	AlertEvaluator interface {
		Evaluate(ctx context.Context, userID string, amount float64, category string) []core.Alert
	}

	// Notifier delivers alerts to the user.
	Notifier interface {
		PublishAlert(ctx context.Context, alert core.Alert) error
	}

	// TransactionStore persists expenses and reports which segments of a
	// message are already stored.
	TransactionStore interface {
		ports.TransactionWriter
		ports.MessageTransactionReader
	}
)

// Message is one inbound chat message.
type Message struct {
	ID         string
	UserID     string
	Text       string
	Source     string
	ReceivedAt time.Time
}

// RecordedExpense is one persisted expense with the alerts it triggered.
// Replayed marks an expense stored by an earlier delivery of the same
// message; it carries no alerts.
type RecordedExpense struct {
	Expense     core.ParsedExpense
	Transaction core.Transaction
	Alerts      []core.Alert
	Replayed    bool
}

// Outcome summarizes what HandleMessage did with a message.
type Outcome struct {
	MessageID  string
	UserID     string
	Recognized bool
	Recorded   []RecordedExpense
}

// Alerts flattens the alerts of every recorded expense.
func (o Outcome) Alerts() []core.Alert {
	var out []core.Alert
	for _, r := range o.Recorded {
		out = append(out, r.Alerts...)
	}
	return out
}

// ExpenseService handles chat messages end to end
type ExpenseService struct {
	parser      Parser
	categorizer Categorizer
	alerts      AlertEvaluator
	store       TransactionStore
	notifier    Notifier
	now         func() time.Time
	logger      *log.Logger
}

// ExpenseOption configures an ExpenseService.
type ExpenseOption func(*ExpenseService)

// WithNotifier publishes every alert after the expense is stored.
func WithNotifier(n Notifier) ExpenseOption {
	return func(s *ExpenseService) { s.notifier = n }
}

// WithClock sets the time used when a message carries no timestamp.
func WithClock(now func() time.Time) ExpenseOption {
	return func(s *ExpenseService) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) ExpenseOption {
	return func(s *ExpenseService) { s.logger = l.WithComponent(log.ComponentExpense) }
}

func NewExpenseService(p Parser, c Categorizer, a AlertEvaluator, store TransactionStore, opts ...ExpenseOption) *ExpenseService {
	s := &ExpenseService{
		parser:      p,
		categorizer: c,
		alerts:      a,
		store:       store,
		now:         time.Now,
		logger:      log.New(log.DefaultConfig()).WithComponent(log.ComponentExpense),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage parses every expense in msg, classifies it, evaluates alerts
// against the history before the expense is stored, persists it and publishes
// its alerts. Only storage failures are returned; expenses stored before the
// failure are kept in the outcome. Redelivering a message with the same ID
// skips the expenses a previous attempt already stored.
func (s *ExpenseService) HandleMessage(ctx context.Context, msg Message) (Outcome, error) {
	out := Outcome{MessageID: msg.ID, UserID: msg.UserID}
	if msg.UserID == "" {
		return out, core.ErrEmptyUser
	}
	if !s.parser.IsExpenseCandidate(msg.Text) {
		return out, nil
	}

	expenses := s.parser.ParseMultiple(msg.Text)
	if len(expenses) == 0 {
		s.logger.DebugContext(ctx, "Message looked like an expense but nothing parsed",
			log.FieldUserID, msg.UserID,
			log.FieldMessageID, msg.ID)
		return out, nil
	}
	out.Recognized = true

	stored, err := s.storedSegments(ctx, msg)
	if err != nil {
		return out, err
	}

	at := msg.ReceivedAt
	if at.IsZero() {
		at = s.now()
	}
	source := msg.Source
	if source == "" {
		source = DefaultSource
	}

	for seq, exp := range expenses {
		if tx, ok := stored[seq]; ok {
			s.logger.DebugContext(ctx, "Expense already recorded by an earlier delivery",
				log.FieldUserID, msg.UserID,
				log.FieldMessageID, msg.ID)
			out.Recorded = append(out.Recorded, RecordedExpense{Expense: exp, Transaction: tx, Replayed: true})
			continue
		}

		recorded, err := s.record(ctx, core.Transaction{
			UserID:      msg.UserID,
			Amount:      exp.Amount,
			Description: exp.Description,
			Source:      source,
			Timestamp:   at,
			MessageID:   msg.ID,
			MessageSeq:  seq,
		})
		if err != nil {
			return out, err
		}
		recorded.Expense = exp
		out.Recorded = append(out.Recorded, recorded)
		s.publish(ctx, recorded.Alerts)
	}
	return out, nil
}

func (s *ExpenseService) storedSegments(ctx context.Context, msg Message) (map[int]core.Transaction, error) {
	if msg.ID == "" {
		return nil, nil
	}
	txs, err := s.store.MessageTransactions(ctx, msg.UserID, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("load recorded expenses: %w", err)
	}
	stored := make(map[int]core.Transaction, len(txs))
	for _, tx := range txs {
		stored[tx.MessageSeq] = tx
	}
	return stored, nil
}

// record categorizes tx, evaluates its alerts and saves it.
func (s *ExpenseService) record(ctx context.Context, tx core.Transaction) (RecordedExpense, error) {
	tx.Category = s.categorizer.Categorize(ctx, tx.Description, tx.UserID)
	alerts := s.alerts.Evaluate(ctx, tx.UserID, tx.Amount, tx.Category)

	saved, err := s.store.SaveTransaction(ctx, tx)
	if err != nil {
		return RecordedExpense{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense recorded",
		log.NewFields().
			WithUser(tx.UserID).
			WithExpense(tx.Description, tx.Amount, tx.Category).
			ToSlice()...)

	return RecordedExpense{Transaction: saved, Alerts: alerts}, nil
}

func (s *ExpenseService) publish(ctx context.Context, alerts []core.Alert) {
	if s.notifier == nil || len(alerts) == 0 {
		return
	}
	var errs []error
	for _, a := range alerts {
		if err := s.notifier.PublishAlert(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.ScopeKey, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish alerts",
			log.FieldOperation, log.OpPublish,
			log.FieldCount, len(errs),
			log.FieldError, err)
	}
}
