package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gastos/internal/amqp"
	"gastos/internal/services"
)

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <text>",
		Short: "Handle a chat message end to end and store its expenses",
		Long: `Parse, categorize, evaluate alerts and store every expense in the message,
then print the reply the user would receive.

Example:
  gastos record --user u1 "gasté 300 en uber y 45 en café"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			if user == "" {
				return errors.New("--user is required")
			}

			app, cleanup, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := app.Expenses.HandleMessage(cmd.Context(), services.Message{
				UserID: user,
				Text:   strings.Join(args, " "),
				Source: "cli",
			})
			if err != nil {
				return err
			}
			fmt.Println(services.Reply(out))
			return nil
		},
	}
	cmd.Flags().String("user", "", "user id")
	return cmd
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Enqueue a chat message for the worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			if user == "" {
				return errors.New("--user is required")
			}
			if !cfg.AMQPEnabled() {
				return errors.New("AMQP_URL is not configured")
			}

			client, err := dialBroker(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			msg := amqp.NewChatMessage(user, strings.Join(args, " "), "cli")
			if err := client.PublishChatMessage(cmd.Context(), msg); err != nil {
				return err
			}
			fmt.Println(msg.ID)
			return nil
		},
	}
	cmd.Flags().String("user", "", "user id")
	return cmd
}
