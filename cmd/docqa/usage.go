package main

import (
	"time"

	"github.com/spf13/cobra"

	domusage "github.com/kailas-cloud/docqa/internal/domain/usage"
)

func newUsageCommand(opts *globalOptions) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show embedding token usage against the budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := wire(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			report := app.usage.GetReport(cmd.Context(), domusage.ParsePeriod(period))
			p := newPrinter(cmd.OutOrStdout())
			p.printf("Period:    %s (%s to %s)\n", report.Period(),
				time.UnixMilli(report.PeriodStart()).UTC().Format(time.DateOnly),
				time.UnixMilli(report.PeriodEnd()).UTC().Format(time.DateOnly))
			p.printf("Used:      %d tokens\n", report.TokensUsed())
			if report.TokensLimit() == 0 {
				p.printf("Limit:     unlimited\n")
				return nil
			}
			p.printf("Limit:     %d tokens\n", report.TokensLimit())
			p.printf("Remaining: %d tokens\n", report.TokensRemaining())
			if report.Exhausted() {
				p.printf("%s\n", p.paint(ansiRed, "Budget exhausted"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(domusage.PeriodMonth), "Aggregation period: day or month")
	return cmd
}
