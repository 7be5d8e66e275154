package services

import (
	"fmt"
	"strings"
)

// NotRecognizedReply is sent when a message contains no expense.
const NotRecognizedReply = `No encontré un gasto en tu mensaje. Prueba con algo como "gasté 200 en comida".`

// Reply renders the confirmation text for an outcome: one line per recorded
// expense followed by the alert messages.
func Reply(o Outcome) string {
	if !o.Recognized || len(o.Recorded) == 0 {
		return NotRecognizedReply
	}

	var b strings.Builder
	for i, r := range o.Recorded {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Registré $%.2f en %s (%s)",
			r.Transaction.Amount, r.Transaction.Category, r.Transaction.Description)
	}
	for _, a := range o.Alerts() {
		b.WriteString("\n")
		b.WriteString(a.Payload.Message)
	}
	return b.String()
}
