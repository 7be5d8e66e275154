package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect and refresh the category directory",
	}
	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(syncCategoriesCmd())
	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories and their keywords",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			categories, err := app.Categories.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "NAME\tKEYWORDS")
			for _, c := range categories {
				fmt.Fprintf(w, "%s\t%s\n", c.Name, strings.Join(c.Keywords, ", "))
			}
			return nil
		},
	}
}

func syncCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy the category directory from the configured spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cfg.SheetsEnabled() {
				return fmt.Errorf("GOOGLE_SPREADSHEET_ID is not configured")
			}
			app, cleanup, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := app.Categories.Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%d categorías sincronizadas\n", n)
			return nil
		},
	}
}
