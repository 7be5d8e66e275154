package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"gastos/internal/core"
)

// ChatMessage is an inbound chat text to be interpreted as expenses.
type ChatMessage struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewChatMessage creates a chat message with a fresh id.
func NewChatMessage(userID, text, source string) *ChatMessage {
	return &ChatMessage{
		ID:         uuid.NewString(),
		UserID:     userID,
		Text:       text,
		Source:     source,
		ReceivedAt: time.Now(),
	}
}

// ChatReply is the text sent back to the user after a message is handled.
type ChatReply struct {
	MessageID  string    `json:"message_id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Recognized bool      `json:"recognized"`
	Timestamp  time.Time `json:"timestamp"`
}

// AlertNotification carries one alert to the delivery side.
type AlertNotification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      core.AlertType    `json:"type"`
	Priority  string            `json:"priority"`
	ScopeKey  string            `json:"scope_key"`
	Message   string            `json:"message"`
	Payload   core.AlertPayload `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewAlertNotification converts an alert into its wire form.
func NewAlertNotification(a core.Alert) *AlertNotification {
	return &AlertNotification{
		ID:        a.ID,
		UserID:    a.UserID,
		Type:      a.Type,
		Priority:  a.Priority.String(),
		ScopeKey:  a.ScopeKey,
		Message:   a.Payload.Message,
		Payload:   a.Payload,
		CreatedAt: a.CreatedAt,
	}
}

// CategoryKeywordsUpdated announces that a category's keyword list changed.
// Consumers must drop any cached category directory.
type CategoryKeywordsUpdated struct {
	Category  string    `json:"category"`
	Keywords  []string  `json:"keywords,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCategoryKeywordsUpdated creates an event stamped with the current time.
func NewCategoryKeywordsUpdated(category string, keywords []string) *CategoryKeywordsUpdated {
	return &CategoryKeywordsUpdated{
		Category:  category,
		Keywords:  keywords,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChatMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChatMessageFromJSON creates a message from JSON bytes
func ChatMessageFromJSON(data []byte) (*ChatMessage, error) {
	var msg ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CategoryKeywordsUpdatedFromJSON creates an event from JSON bytes
func CategoryKeywordsUpdatedFromJSON(data []byte) (*CategoryKeywordsUpdated, error) {
	var ev CategoryKeywordsUpdated
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
