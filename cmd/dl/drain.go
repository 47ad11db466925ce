package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDrainCmd() *cobra.Command {
	var (
		configPath string
		batch      int
	)

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Run one drain pass over the notification queue",
		Long:  "Sends every queued notification whose send time has arrived, then exits. Useful from an external scheduler instead of the in-process cron.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrain(cmd, configPath, batch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dispatchline.yaml", "path to config file")
	cmd.Flags().IntVar(&batch, "batch", 0, "max entries per pass (default: config batch_size)")
	return cmd
}

func runDrain(cmd *cobra.Command, configPath string, batch int) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	if batch <= 0 {
		batch = a.cfg.Drain.BatchSize
	}

	res, err := a.scheduler.DrainDue(cmd.Context(), time.Now(), batch)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Drained: %d sent, %d requeued, %d failed, %d skipped\n",
		res.Sent, res.Requeued, res.Failed, res.Skipped)
	return nil
}
