package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gastos/internal/core"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Show the alerts a candidate expense would trigger",
		Long: `Evaluate budget, category and pattern alerts for an expense that has not
been recorded yet. Alerts fired here count for suppression only within this
process.

Example:
  gastos evaluate --user u1 --amount 300 --category transporte`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			amount, _ := cmd.Flags().GetFloat64("amount")
			category, _ := cmd.Flags().GetString("category")
			if user == "" {
				return errors.New("--user is required")
			}
			if amount <= 0 || amount > core.MaxAmount {
				return fmt.Errorf("--amount must be in (0, %d]", core.MaxAmount)
			}

			app, cleanup, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			alerts := app.Alerts.Evaluate(cmd.Context(), user, amount, category)
			if len(alerts) == 0 {
				fmt.Println("Sin alertas.")
				return nil
			}
			printAlerts(alerts)
			return nil
		},
	}
	cmd.Flags().String("user", "", "user id")
	cmd.Flags().Float64("amount", 0, "expense amount")
	cmd.Flags().String("category", core.OtherCategory, "expense category")
	return cmd
}

func printAlerts(alerts []core.Alert) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "PRIORITY\tTYPE\tSCOPE\tMESSAGE")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Priority, a.Type, a.ScopeKey, a.Payload.Message)
	}
}
