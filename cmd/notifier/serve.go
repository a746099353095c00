package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the notifier on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd.Context())
			if err != nil {
				return err
			}
			spec := d.cfg.Notifier.CronSpec
			if spec == "" {
				return fmt.Errorf("NOTIFIER_CRON_SPEC is required for serve mode")
			}

			engine := cron.New()
			_, err = engine.AddFunc(spec, func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				if _, err := d.job.Run(ctx); err != nil {
					d.log.Error().Err(err).Msg("scheduled notification run failed")
				}
			})
			if err != nil {
				return fmt.Errorf("invalid cron spec %q: %w", spec, err)
			}

			engine.Start()
			d.log.Info().Str("cron_spec", spec).Msg("notifier scheduler started")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			s := <-sigCh
			d.log.Info().Str("signal", s.String()).Msg("stopping notifier scheduler")

			// waits for a running job before returning
			<-engine.Stop().Done()
			d.log.Info().Msg("notifier scheduler stopped")
			return nil
		},
	}
}
