package alerts

import (
	"context"
	"time"

	"gastos/internal/core"
)

const (
	PatternUnusualTime      = "unusual_time"
	PatternFrequentSpending = "frequent_spending"

	patternWindow       = 60 * 24 * time.Hour
	minSameHourHistory  = 2
	unusualTimeMinimum  = 100
	burstWindow         = 2 * time.Hour
	burstMinTransaction = 5
)

// detectPattern looks for spending at an hour the user rarely spends and for
// bursts of transactions. Hours are taken in the user's timezone. Both kinds
// share the general scope key, so at most one survives suppression.
func (e *Engine) detectPattern(ctx context.Context, r request) ([]core.Alert, error) {
	txs, err := e.query(ctx, r.userID, "", patternWindow, r.now)
	if err != nil {
		return nil, err
	}

	loc := r.cfg.Location()
	hour := r.now.In(loc).Hour()
	burstSince := r.now.Add(-burstWindow)

	sameHour, recent := 0, 0
	recentTotal := 0.0
	for _, tx := range txs {
		if tx.Timestamp.In(loc).Hour() == hour {
			sameHour++
		}
		if !tx.Timestamp.Before(burstSince) {
			recent++
			recentTotal += tx.Amount
		}
	}

	var alerts []core.Alert
	if sameHour < minSameHourHistory && r.amount > unusualTimeMinimum {
		alerts = append(alerts, core.NewAlert(r.userID, core.AlertSpendingPattern, core.PriorityLow, "", core.AlertPayload{
			Message: unusualTimeMessage(hour, r.amount),
			Pattern: PatternUnusualTime,
			Amount:  r.amount,
			Count:   sameHour,
		}, r.now))
	}
	if recent >= burstMinTransaction {
		count := recent + 1
		total := recentTotal + r.amount
		alerts = append(alerts, core.NewAlert(r.userID, core.AlertSpendingPattern, core.PriorityMedium, "", core.AlertPayload{
			Message: frequentSpendingMessage(count, total),
			Pattern: PatternFrequentSpending,
			Amount:  r.amount,
			Total:   core.RoundAmount(total),
			Count:   count,
		}, r.now))
	}
	return alerts, nil
}
