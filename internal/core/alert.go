package core

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlertBudgetWarning   AlertType = "budget_warning"
	AlertBudgetExceeded  AlertType = "budget_exceeded"
	AlertCategoryLimit   AlertType = "category_limit"
	AlertUnusualSpending AlertType = "unusual_spending"
	AlertSpendingPattern AlertType = "spending_pattern"
	AlertDailySummary    AlertType = "daily_summary"
)

// Priorities are ordered: Low < Medium < High < Critical.
const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// GeneralScope qualifies alerts that belong to neither a period nor a category.
const GeneralScope = "general"

type (
	AlertType string

	Priority int

	Alert struct {
		ID        string
		UserID    string
		Type      AlertType
		Priority  Priority
		ScopeKey  string // used for suppression
		Payload   AlertPayload
		CreatedAt time.Time
	}

	AlertPayload struct {
		Message    string
		Period     Period
		Category   string
		Pattern    string
		Percentage float64
		Amount     float64 // the candidate expense
		Spent      float64 // historical spend in the window
		Projected  float64
		Limit      float64
		Average    float64
		Total      float64
		Count      int
	}
)

// ScopeKey builds the suppression key: type plus period, category or "general".
func ScopeKey(t AlertType, qualifier string) string {
	if qualifier == "" {
		qualifier = GeneralScope
	}
	return string(t) + ":" + qualifier
}

// NewAlert stamps an alert with an id and creation time.
func NewAlert(userID string, t AlertType, p Priority, qualifier string, payload AlertPayload, now time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      t,
		Priority:  p,
		ScopeKey:  ScopeKey(t, qualifier),
		Payload:   payload,
		CreatedAt: now,
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}
