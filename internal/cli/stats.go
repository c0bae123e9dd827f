package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/vsundar/flowtrace/pkg/errors"
	"github.com/vsundar/flowtrace/pkg/stats"
)

// statsCommand creates the stats command for the metrics push job.
func (c *CLI) statsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Push per-queue traffic metrics to the Pushgateway",
		Long: `Push per-queue traffic metrics to the Pushgateway.

Reads the most recent statistics interval from every manager and pushes
enqueue/dequeue volume and rate gauges, one grouping per manager.
Intended to run from cron at the broker's statistics interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStats(cmd.Context())
		},
	}

	return cmd
}

// runStats scrapes all managers and reports the per-manager outcome.
func (c *CLI) runStats(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Stats.PushgatewayURL == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "stats requires pushgateway_url")
	}

	dir, cleanup, err := newDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	pusher := stats.NewGatewayPusher(cfg.Stats.PushgatewayURL, cfg.Stats.Job)
	collector := stats.NewCollector(dir, newQuerier(cfg), pusher, c.Logger)
	if cfg.Stats.Workers > 0 {
		collector.Workers = cfg.Stats.Workers
	}

	results, err := collector.Run(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	failed := 0
	queues := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			printError("%s: %v", res.Manager, res.Err)
			continue
		}
		queues += res.Queues
	}

	if failed > 0 {
		printWarning("Pushed metrics for %d managers, %d failed", len(results), failed)
	} else {
		printSuccess("Pushed metrics for %d managers", len(results))
	}
	printDetail("%d queues reported", queues)
	return nil
}
