package alerts

import (
	"context"

	"gastos/internal/core"
)

// Summary builds a daily summary of the trailing 24 hours. Unlike Evaluate it
// reports storage errors and bypasses suppression, since it is requested
// explicitly.
func (e *Engine) Summary(ctx context.Context, userID string) (core.Alert, error) {
	now := e.now()
	cfg, err := e.userConfig(ctx, userID)
	if err != nil {
		return core.Alert{}, err
	}

	qctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	txs, err := e.query(qctx, userID, "", core.Daily.Window(), now)
	if err != nil {
		return core.Alert{}, err
	}

	total := sum(txs)
	payload := core.AlertPayload{
		Message: dailySummaryMessage(len(txs), total, cfg.DailyLimit),
		Period:  core.Daily,
		Total:   core.RoundAmount(total),
		Limit:   cfg.DailyLimit,
		Count:   len(txs),
	}
	if cfg.DailyLimit > 0 {
		payload.Percentage = core.RoundAmount(total * 100 / cfg.DailyLimit)
	}
	return core.NewAlert(userID, core.AlertDailySummary, core.PriorityLow, string(core.Daily), payload, now), nil
}
