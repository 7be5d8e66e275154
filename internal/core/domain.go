package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // user timezones must resolve without a system zoneinfo
)

// OtherCategory is the fallback category. It always exists and never competes
// in keyword scoring.
const OtherCategory = "other"

// DefaultPlaceholder is the description used when nothing better can be found.
const DefaultPlaceholder = "Expense"

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

type (
	Period string

	Category struct {
		Name     string
		Keywords []string // declaration order is preserved
	}

	UserBudgetConfig struct {
		UserID          string
		DailyLimit      float64
		WeeklyLimit     float64
		MonthlyLimit    float64
		AlertThresholds []int // percentages, ascending
		Timezone        string
	}

	Transaction struct {
		ID          int64
		UserID      string
		Amount      float64
		Description string
		Category    string
		Source      string
		Timestamp   time.Time

		// MessageID and MessageSeq identify the chat message segment the
		// transaction came from. A non-empty MessageID is stored at most once
		// per user and sequence.
		MessageID  string
		MessageSeq int
	}

	ParsedExpense struct {
		Amount       float64
		Description  string
		PatternID    string // which extraction rule produced this result
		OriginalText string
	}

	// KeywordCandidate is an append-only audit record. It is never applied to
	// the live keyword set automatically.
	KeywordCandidate struct {
		UserID    string
		Category  string
		Token     string
		Frequency int
		Timestamp time.Time
	}

	// KeywordCandidateSummary aggregates the audit log for one category+token.
	KeywordCandidateSummary struct {
		Category     string
		Token        string
		MaxFrequency int
		Observations int
		Users        int
		LastSeen     time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyUser         = errors.New("empty user id")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrInvalidLimit      = errors.New("invalid budget limit")
	ErrInvalidThreshold  = errors.New("invalid alert threshold")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrEmptyKeyword      = errors.New("empty keyword")
	ErrReservedCategory  = errors.New("category is reserved")
	ErrDuplicateCategory = errors.New("duplicate category")
)

// Periods lists budget periods in evaluation order.
func Periods() []Period {
	return []Period{Daily, Weekly, Monthly}
}

// Window returns the trailing duration a period's spend is summed over.
func (p Period) Window() time.Duration {
	switch p {
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	case Monthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// DefaultUserConfig returns the configuration created lazily on first access.
func DefaultUserConfig(userID string) UserBudgetConfig {
	return UserBudgetConfig{
		UserID:          userID,
		DailyLimit:      100,
		WeeklyLimit:     1000,
		MonthlyLimit:    10000,
		AlertThresholds: []int{70, 90},
		Timezone:        "America/Mexico_City",
	}
}

// Limit returns the configured limit for the period.
func (c UserBudgetConfig) Limit(p Period) float64 {
	switch p {
	case Daily:
		return c.DailyLimit
	case Weekly:
		return c.WeeklyLimit
	case Monthly:
		return c.MonthlyLimit
	default:
		return 0
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c UserBudgetConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c UserBudgetConfig) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrEmptyUser
	}
	for _, limit := range []float64{c.DailyLimit, c.WeeklyLimit, c.MonthlyLimit} {
		if limit <= 0 {
			return ErrInvalidLimit
		}
	}
	for _, t := range c.AlertThresholds {
		if t < 1 || t > 100 {
			return fmt.Errorf("%w: %d", ErrInvalidThreshold, t)
		}
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTimezone, c.Timezone)
		}
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if t.Amount <= 0 || t.Amount > MaxAmount {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	for _, kw := range c.Keywords {
		if strings.TrimSpace(kw) == "" {
			return ErrEmptyKeyword
		}
	}
	return nil
}

// NormalizeKeywords lowercases, trims and de-duplicates keywords, keeping
// their first-seen order.
func NormalizeKeywords(keywords []string) ([]string, error) {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.Join(strings.Fields(strings.ToLower(kw)), " ")
		if kw == "" {
			return nil, ErrEmptyKeyword
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out, nil
}
