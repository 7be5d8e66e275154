package alerts

import (
	"fmt"

	"gastos/internal/core"
)

func periodLabel(p core.Period) string {
	switch p {
	case core.Daily:
		return "diario"
	case core.Weekly:
		return "semanal"
	case core.Monthly:
		return "mensual"
	default:
		return string(p)
	}
}

func budgetWarningMessage(p core.Period, pct, projected, limit float64) string {
	return fmt.Sprintf("Llevas %.0f%% de tu presupuesto %s ($%.2f de $%.2f)",
		pct, periodLabel(p), projected, limit)
}

func budgetExceededMessage(p core.Period, projected, limit float64) string {
	return fmt.Sprintf("Superaste tu presupuesto %s: $%.2f de $%.2f",
		periodLabel(p), projected, limit)
}

func unusualSpendingMessage(category string, amount, average float64) string {
	return fmt.Sprintf("Gasto inusual en %s: $%.2f contra un promedio de $%.2f",
		category, amount, average)
}

func categoryLimitMessage(category string, total, projected float64) string {
	return fmt.Sprintf("Tu gasto en %s pasaría de $%.2f a $%.2f en 30 días",
		category, total, projected)
}

func unusualTimeMessage(hour int, amount float64) string {
	return fmt.Sprintf("Gasto de $%.2f a una hora poco habitual (%02d:00)", amount, hour)
}

func frequentSpendingMessage(count int, total float64) string {
	return fmt.Sprintf("Llevas %d gastos en las últimas 2 horas, $%.2f en total", count, total)
}

func dailySummaryMessage(count int, total, limit float64) string {
	if count == 0 {
		return "Hoy no registraste gastos"
	}
	return fmt.Sprintf("Resumen del día: %d gastos por $%.2f de $%.2f", count, total, limit)
}
