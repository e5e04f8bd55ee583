package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/application/usecase"
	"github.com/dreschagin/monitoring-reports/internal/bootstrap"
	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/pkg/config"
)

// drainTimeout bounds the wait for queued emails before exit.
const drainTimeout = 10 * time.Minute

func main() {
	rootCmd := &cobra.Command{
		Use:           "report-run",
		Short:         "One-shot dispatch and generation of monitoring reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(dispatchCommand(), generateCommand(), definitionsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dispatchCommand() *cobra.Command {
	var (
		cadence string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run one dispatch cycle and wait for queued emails",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				result, err := app.Dispatcher.Execute(ctx, dto.DispatchCommand{Cadence: cadence, Force: force})
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	cmd.Flags().StringVar(&cadence, "cadence", "monthly", "Cadence to dispatch: weekly or monthly")
	cmd.Flags().BoolVar(&force, "force", false, "Dispatch even if the period was already sent")

	return cmd
}

func generateCommand() *cobra.Command {
	var (
		file string
		send bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a report from a definition file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read definition: %w", err)
			}
			var def entity.ReportDefinition
			if err := json.Unmarshal(data, &def); err != nil {
				return fmt.Errorf("parse definition %s: %w", file, err)
			}

			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				result, err := app.Generator.Execute(ctx, usecase.GenerateReportCommand{
					Definition: &def,
					Send:       send,
				})
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a JSON report definition")
	cmd.Flags().BoolVar(&send, "send", false, "Email the report to the definition recipients")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func definitionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "definitions",
		Short: "List stored definitions and their dispatch state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.Definitions.Execute(ctx)
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
}

// withApp builds the application, runs fn and waits for the delivery queue
// to drain before releasing resources.
func withApp(parent context.Context, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return err
	}
	app.Delivery.Start(ctx)

	runErr := fn(ctx, app)

	closeCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if pending := app.Delivery.Pending(); pending > 0 {
		app.Logger.Info("Waiting for queued emails", "pending", pending)
	}
	app.Close(closeCtx)

	return runErr
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
