package alerts

import (
	"context"
	"time"

	"gastos/internal/core"
)

const (
	categoryWindow     = 30 * 24 * time.Hour
	minCategoryHistory = 3
	unusualFactor      = 2.5
	categoryLimitRatio = 1.5
)

// detectCategory flags amounts far above the category's rolling average and
// totals that would jump past 150% of the trailing 30 day spend. The trailing
// total used as baseline excludes the candidate expense.
func (e *Engine) detectCategory(ctx context.Context, r request) ([]core.Alert, error) {
	if r.category == "" {
		return nil, nil
	}
	txs, err := e.query(ctx, r.userID, r.category, categoryWindow, r.now)
	if err != nil {
		return nil, err
	}
	if len(txs) <= minCategoryHistory {
		return nil, nil
	}

	total := sum(txs)
	average := total / float64(len(txs))
	payload := core.AlertPayload{
		Category:  r.category,
		Amount:    r.amount,
		Average:   core.RoundAmount(average),
		Total:     core.RoundAmount(total),
		Projected: core.RoundAmount(total + r.amount),
		Count:     len(txs),
	}

	var alerts []core.Alert
	if r.amount > unusualFactor*average {
		unusual := payload
		unusual.Message = unusualSpendingMessage(r.category, r.amount, average)
		alerts = append(alerts, core.NewAlert(r.userID, core.AlertUnusualSpending, core.PriorityMedium, r.category, unusual, r.now))
	}
	if total*categoryLimitRatio < total+r.amount {
		limit := payload
		limit.Limit = core.RoundAmount(total * categoryLimitRatio)
		limit.Message = categoryLimitMessage(r.category, total, total+r.amount)
		alerts = append(alerts, core.NewAlert(r.userID, core.AlertCategoryLimit, core.PriorityHigh, r.category, limit, r.now))
	}
	return alerts, nil
}
