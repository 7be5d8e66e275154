// Command gastos runs the expense parser, categorizer and alert engine from
// the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gastos/internal/amqp"
	"gastos/internal/cli"
	"gastos/internal/config"
	"gastos/internal/log"
)

var (
	cfg    *config.Config
	logger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "gastos",
		Short: "Expense tracking from Spanish chat messages",
		Long: `gastos extracts expenses from free-form Spanish chat text, assigns each one
a category and evaluates budget, category and spending pattern alerts.

Storage, broker and cache settings come from the environment (see .env).`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(categorizeCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(keywordsCmd())
}

func main() {
	ctx, cancel := cli.SignalContext(log.New(log.Config{Output: os.Stderr}))
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	cfg = config.Load()
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger = cli.SetupLogger(cfg, log.ComponentCLI)
	return nil
}

// openApp wires the engines over the configured backend. With withBroker set
// and AMQP configured, keyword changes are announced to running workers.
func openApp(ctx context.Context, withBroker bool) (*cli.App, func(), error) {
	var opts []cli.Option
	var client *amqp.Client
	if withBroker && cfg.AMQPEnabled() {
		var err error
		client, err = dialBroker(ctx)
		if err != nil {
			logger.Warn("Broker unavailable, keyword changes will not be announced", log.FieldError, err)
		} else {
			opts = append(opts, cli.WithKeywordEvents(client))
		}
	}

	app, err := cli.Bootstrap(ctx, cfg, logger, opts...)
	if err != nil {
		if client != nil {
			client.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
		if client != nil {
			client.Close()
		}
	}
	return app, cleanup, nil
}

func dialBroker(ctx context.Context) (*amqp.Client, error) {
	return amqp.NewClient(ctx, amqp.Config{
		URL:           cfg.AMQPURL,
		Exchange:      cfg.AMQPExchange,
		MessagesQueue: cfg.AMQPMessagesQueue,
		RepliesQueue:  cfg.AMQPRepliesQueue,
		AlertsQueue:   cfg.AMQPAlertsQueue,
		EventsQueue:   cfg.AMQPEventsQueue,
		Prefetch:      cfg.AMQPPrefetch,
		DialAttempts:  3,
	}, logger)
}
