package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func keywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Review learned keywords and apply them",
		Long: `The categorizer records frequent tokens as keyword candidates but never
applies them on its own. Review them with "candidates" and apply the good
ones with "promote".`,
	}
	cmd.AddCommand(candidatesCmd())
	cmd.AddCommand(promoteCmd())
	cmd.AddCommand(setKeywordsCmd())
	return cmd
}

func candidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates [category]",
		Short: "List learned keyword candidates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := ""
			if len(args) == 1 {
				category = args[0]
			}

			app, cleanup, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			candidates, err := app.Categories.Candidates(cmd.Context(), category)
			if err != nil {
				return fmt.Errorf("failed to list candidates: %w", err)
			}
			if len(candidates) == 0 {
				fmt.Println("Sin candidatos.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "CATEGORY\tTOKEN\tMAX FREQ\tSEEN\tUSERS\tLAST SEEN")
			for _, c := range candidates {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					c.Category, c.Token, c.MaxFrequency, c.Observations, c.Users, c.LastSeen.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <category> <token>",
		Short: "Add a keyword to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := app.Categories.Promote(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("%q agregado a %s\n", args[1], args[0])
			return nil
		},
	}
}

func setKeywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <category> <keyword>...",
		Short: "Replace a category's keywords",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := app.Categories.SetKeywords(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			fmt.Printf("%s: %d palabras clave\n", args[0], len(args)-1)
			return nil
		},
	}
}
