package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldMessageID   = "message_id"
	FieldRule        = "rule"
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldScore       = "score"
	FieldToken       = "token"
	FieldFrequency   = "frequency"
	FieldAlertType   = "alert_type"
	FieldScopeKey    = "scope_key"
	FieldPriority    = "priority"
	FieldDetector    = "detector"
	FieldCount       = "count"
	FieldDuration    = "duration_ms"
	FieldQueue       = "queue"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentParser      = "parser"
	ComponentCategorizer = "categorizer"
	ComponentAlerts      = "alerts"
	ComponentExpense     = "expense"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentCache       = "cache"
	ComponentBackend     = "backend"
	ComponentCLI         = "cli"
)

// Operations defines standard operation names
const (
	OpCategorize = "categorize"
	OpEvaluate   = "evaluate"
	OpLearn      = "learn"
	OpPublish    = "publish"
	OpConsume    = "consume"
	OpInvalidate = "invalidate"
	OpShutdown   = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUser adds the user id field
func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(desc string, amount float64, category string) LogFields {
	f[FieldDescription] = desc
	f[FieldAmount] = amount
	f[FieldCategory] = category
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
