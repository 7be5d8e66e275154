package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize <description>",
		Short: "Assign a category to an expense description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")

			app, cleanup, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Println(app.Categorizer.Categorize(cmd.Context(), strings.Join(args, " "), user))
			return nil
		},
	}
	cmd.Flags().String("user", "", "user whose history and learning apply")
	return cmd
}
