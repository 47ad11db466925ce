package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/calloway/dispatchline/internal/server"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and queue drain",
		Long:  "Serves the intake and SMS webhooks and drains the notification queue on the configured cron schedule. Blocks until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dispatchline.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// In-process drain on a 5-field cron schedule. The /cron/drain endpoint
	// stays available for external schedulers; claiming makes overlap safe.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	runner := cron.New(cron.WithParser(parser))
	_, err = runner.AddFunc(a.cfg.Drain.Cron, func() {
		res, err := a.scheduler.DrainDue(ctx, time.Now(), a.cfg.Drain.BatchSize)
		if err != nil {
			log.Printf("serve: drain: %v", err)
			return
		}
		if res.Sent > 0 || res.Requeued > 0 || res.Failed > 0 {
			log.Printf("serve: drain sent=%d requeued=%d failed=%d", res.Sent, res.Requeued, res.Failed)
		}
	})
	if err != nil {
		return fmt.Errorf("serve: drain schedule %q: %w", a.cfg.Drain.Cron, err)
	}
	runner.Start()
	defer runner.Stop()

	return server.Start(ctx, server.StartOpts{
		DB:          a.db,
		Config:      a.cfg,
		Scheduler:   a.scheduler,
		Interpreter: a.interpreter,
		Out:         cmd.OutOrStdout(),
	})
}
