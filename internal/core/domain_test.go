package core

import (
	"testing"
	"time"
)

func TestUserBudgetConfigValidate(t *testing.T) {
	good := DefaultUserConfig("5215512345678")
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []UserBudgetConfig{
		{UserID: "", DailyLimit: 1, WeeklyLimit: 1, MonthlyLimit: 1},
		{UserID: "u", DailyLimit: 0, WeeklyLimit: 1, MonthlyLimit: 1},
		{UserID: "u", DailyLimit: 1, WeeklyLimit: -5, MonthlyLimit: 1},
		{UserID: "u", DailyLimit: 1, WeeklyLimit: 1, MonthlyLimit: 1, AlertThresholds: []int{0}},
		{UserID: "u", DailyLimit: 1, WeeklyLimit: 1, MonthlyLimit: 1, AlertThresholds: []int{101}},
		{UserID: "u", DailyLimit: 1, WeeklyLimit: 1, MonthlyLimit: 1, Timezone: "Mars/Olympus"},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDefaultUserConfig(t *testing.T) {
	cfg := DefaultUserConfig("u1")
	if cfg.Limit(Daily) != 100 || cfg.Limit(Weekly) != 1000 || cfg.Limit(Monthly) != 10000 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	if len(cfg.AlertThresholds) != 2 || cfg.AlertThresholds[0] != 70 || cfg.AlertThresholds[1] != 90 {
		t.Fatalf("unexpected thresholds: %v", cfg.AlertThresholds)
	}
	if cfg.Location() == nil {
		t.Fatalf("expected a location")
	}
}

func TestPeriodWindow(t *testing.T) {
	if Daily.Window() != 24*time.Hour {
		t.Fatalf("daily window = %v", Daily.Window())
	}
	if Weekly.Window() != 7*24*time.Hour {
		t.Fatalf("weekly window = %v", Weekly.Window())
	}
	if Monthly.Window() != 30*24*time.Hour {
		t.Fatalf("monthly window = %v", Monthly.Window())
	}
	if Period("yearly").Window() != 0 {
		t.Fatalf("unknown period should have no window")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{UserID: "u", Amount: 10, Description: "Tacos", Category: "comida", Timestamp: time.Now()}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{UserID: "", Amount: 10, Description: "a", Category: "c"},
		{UserID: "u", Amount: 0, Description: "a", Category: "c"},
		{UserID: "u", Amount: MaxAmount + 1, Description: "a", Category: "c"},
		{UserID: "u", Amount: 10, Description: " ", Category: "c"},
		{UserID: "u", Amount: 10, Description: "a", Category: ""},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestScopeKey(t *testing.T) {
	if got := ScopeKey(AlertBudgetWarning, "daily"); got != "budget_warning:daily" {
		t.Fatalf("got %q", got)
	}
	if got := ScopeKey(AlertSpendingPattern, ""); got != "spending_pattern:general" {
		t.Fatalf("got %q", got)
	}
}

func TestPriorityOrdering(t *testing.T) {
	if !(PriorityLow < PriorityMedium && PriorityMedium < PriorityHigh && PriorityHigh < PriorityCritical) {
		t.Fatalf("priorities are not ordered")
	}
	if PriorityCritical.String() != "critical" {
		t.Fatalf("got %q", PriorityCritical.String())
	}
}

func TestNormalizeKeywords(t *testing.T) {
	got, err := NormalizeKeywords([]string{" Tacos ", "PIZZA", "tacos", "pan  dulce"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"tacos", "pizza", "pan dulce"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if _, err := NormalizeKeywords([]string{"ok", "  "}); err != ErrEmptyKeyword {
		t.Fatalf("expected ErrEmptyKeyword, got %v", err)
	}
}
