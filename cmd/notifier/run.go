package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"costwatch/internal/report"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var (
		dateFlag string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one notification pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := buildDeps(ctx)
			if err != nil {
				return err
			}

			if dateFlag != "" {
				day, perr := time.Parse("2006-01-02", dateFlag)
				if perr != nil {
					return fmt.Errorf("invalid --date %q: %w", dateFlag, perr)
				}
				if dryRun {
					return dryRunFor(cmd, d, day)
				}
				// the job derives the report date as "yesterday", so pin
				// the clock one day past the requested date
				pinned := day.AddDate(0, 0, 1)
				d.job.WithNow(func() time.Time { return pinned })
			} else if dryRun {
				yesterday := time.Now().UTC().AddDate(0, 0, -1)
				return dryRunFor(cmd, d, yesterday)
			}

			res, err := d.job.Run(ctx)
			if err != nil {
				// propagate so the invoking scheduler's alerting fires
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "report date (YYYY-MM-DD), default yesterday UTC")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "query and print the report without sending or recording")
	return cmd
}

func dryRunFor(cmd *cobra.Command, d *deps, day time.Time) error {
	rep, err := d.source.DailyCosts(cmd.Context(), day)
	if err != nil {
		return err
	}
	msg := report.Render(rep)
	fmt.Fprintf(os.Stdout, "Subject: %s\n\n%s", msg.Subject, msg.Text)
	return nil
}
