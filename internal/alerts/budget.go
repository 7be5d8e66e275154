package alerts

import (
	"context"

	"gastos/internal/core"
)

// bandWidth is the width of the half-open band above each threshold inside
// which a warning fires.
const bandWidth = 10

const highWarningPct = 90

// detectBudget compares each period's projected spend with its limit. One
// history read over the longest window serves all periods.
func (e *Engine) detectBudget(ctx context.Context, r request) ([]core.Alert, error) {
	txs, err := e.query(ctx, r.userID, "", core.Monthly.Window(), r.now)
	if err != nil {
		return nil, err
	}

	var alerts []core.Alert
	for _, p := range core.Periods() {
		limit := r.cfg.Limit(p)
		if limit <= 0 {
			continue
		}
		since := r.now.Add(-p.Window())
		spent := 0.0
		for _, tx := range txs {
			if !tx.Timestamp.Before(since) {
				spent += tx.Amount
			}
		}
		alerts = append(alerts, budgetAlerts(r, p, spent, limit)...)
	}
	return alerts, nil
}

func budgetAlerts(r request, p core.Period, spent, limit float64) []core.Alert {
	projected := spent + r.amount
	pct := projected * 100 / limit

	payload := core.AlertPayload{
		Period:     p,
		Percentage: core.RoundAmount(pct),
		Amount:     r.amount,
		Spent:      core.RoundAmount(spent),
		Projected:  core.RoundAmount(projected),
		Limit:      limit,
	}

	var alerts []core.Alert
	for _, t := range r.cfg.AlertThresholds {
		threshold := float64(t)
		if pct < threshold || pct >= threshold+bandWidth {
			continue
		}
		priority := core.PriorityMedium
		if pct >= highWarningPct {
			priority = core.PriorityHigh
		}
		warning := payload
		warning.Message = budgetWarningMessage(p, pct, projected, limit)
		alerts = append(alerts, core.NewAlert(r.userID, core.AlertBudgetWarning, priority, string(p), warning, r.now))
	}

	if projected > limit {
		exceeded := payload
		exceeded.Message = budgetExceededMessage(p, projected, limit)
		alerts = append(alerts, core.NewAlert(r.userID, core.AlertBudgetExceeded, core.PriorityCritical, string(p), exceeded, r.now))
	}
	return alerts
}
