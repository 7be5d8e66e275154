package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a user's spending over the last 24 hours",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			if user == "" {
				return errors.New("--user is required")
			}

			app, cleanup, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			alert, err := app.Alerts.Summary(cmd.Context(), user)
			if err != nil {
				return fmt.Errorf("summary: %w", err)
			}
			fmt.Println(alert.Payload.Message)
			return nil
		},
	}
	cmd.Flags().String("user", "", "user id")
	return cmd
}
