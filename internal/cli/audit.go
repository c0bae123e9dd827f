package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsundar/flowtrace/pkg/audit"
	"github.com/vsundar/flowtrace/pkg/config"
	apperrors "github.com/vsundar/flowtrace/pkg/errors"
)

// auditCommand creates the audit command for the daily usage sweep.
func (c *CLI) auditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Record last-used timestamps for every queue",
		Long: `Record last-used timestamps for every queue on every manager.

Each run upserts one row per queue per day. Queues whose status reports
no timestamps at all are skipped, so a manager restart does not wipe the
history already recorded for that day.

Intended to run daily from cron against the store configured under
[audit].`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAudit(cmd.Context())
		},
	}

	return cmd
}

// runAudit sweeps all managers and reports the per-manager outcome.
func (c *CLI) runAudit(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	dir, cleanup, err := newDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := newAuditStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := audit.NewRunner(dir, newQuerier(cfg), store, c.Logger)
	if cfg.Audit.Workers > 0 {
		runner.Workers = cfg.Audit.Workers
	}

	results, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
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
		printWarning("Audited %d managers, %d failed", len(results), failed)
	} else {
		printSuccess("Audited %d managers", len(results))
	}
	printDetail("%d queue records upserted", queues)
	return nil
}

// newAuditStore builds the audit store selected in config.
func newAuditStore(ctx context.Context, cfg *config.Config) (audit.Store, error) {
	switch cfg.Audit.Store {
	case "mongo":
		if cfg.Audit.MongoURI == "" {
			return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "audit store mongo requires mongo_uri")
		}
		return audit.ConnectMongo(ctx, cfg.Audit.MongoURI, cfg.Audit.MongoDB)
	default:
		if cfg.Audit.PostgresDSN == "" {
			return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "audit store postgres requires postgres_dsn")
		}
		return audit.ConnectPostgres(ctx, cfg.Audit.PostgresDSN)
	}
}
