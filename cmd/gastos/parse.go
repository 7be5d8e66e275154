package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gastos/internal/parser"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Extract expenses from a chat message",
		Long: `Run the message parser on a chat message and print every expense found.

Examples:
  gastos parse "gasté 300 en uber"
  gastos parse "100 en tacos, 50 en refresco"
  gastos parse --single "pagué 45,50 de café"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			single, _ := cmd.Flags().GetBool("single")
			p := parser.New(parser.WithLogger(logger))

			if !p.IsExpenseCandidate(text) {
				fmt.Println("No parece un gasto.")
				return nil
			}

			expenses := p.ParseMultiple(text)
			if single {
				expenses = expenses[:0]
				if exp, ok := p.Parse(text); ok {
					expenses = append(expenses, exp)
				}
			}
			if len(expenses) == 0 {
				fmt.Println("No se encontró ningún gasto.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "AMOUNT\tDESCRIPTION\tRULE\tSEGMENT")
			for _, e := range expenses {
				fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", e.Amount, e.Description, e.PatternID, e.OriginalText)
			}
			return nil
		},
	}
	cmd.Flags().Bool("single", false, "parse the whole text as one expense")
	return cmd
}
