// Package cli implements the flowtrace command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vsundar/flowtrace/pkg/admin"
	"github.com/vsundar/flowtrace/pkg/admin/mqsc"
	"github.com/vsundar/flowtrace/pkg/buildinfo"
	"github.com/vsundar/flowtrace/pkg/cache"
	"github.com/vsundar/flowtrace/pkg/config"
	"github.com/vsundar/flowtrace/pkg/directory"
	"github.com/vsundar/flowtrace/pkg/trace"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "flowtrace"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config file location when set via
	// the --config flag.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Flowtrace resolves message flow paths across queue managers",
		Long:         `Flowtrace traces where a queue or topic actually delivers: it follows alias, remote, and subscription definitions hop by hop across queue managers and reports the full physical delivery path.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default "+config.DefaultPath()+")")

	// Register all subcommands
	root.AddCommand(c.traceCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.auditCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config
// =============================================================================

// loadConfig reads the configuration file honoring the --config flag.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// =============================================================================
// Wiring Factories
// =============================================================================

// newDirectory builds the manager directory from config: Postgres when a
// DSN is configured, otherwise the static manager list. The returned
// cleanup releases the backing pool and is safe to call once.
func newDirectory(ctx context.Context, cfg *config.Config) (directory.ListService, func(), error) {
	if cfg.Directory.DSN != "" {
		pg, err := directory.Connect(ctx, cfg.Directory.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}

	static := make(directory.Static, len(cfg.Directory.Managers))
	for _, m := range cfg.Directory.Managers {
		static[m.Name] = directory.Connection{
			Name:     m.Name,
			Host:     m.Host,
			Port:     m.Port,
			Channel:  m.Channel,
			User:     m.User,
			Password: m.Password,
		}
	}
	return static, func() {}, nil
}

// newQuerier builds the administrative client.
func newQuerier(cfg *config.Config) admin.Querier {
	return mqsc.New(cfg.AdminTimeout())
}

// newTraceCache builds the trace cache backend from config. Cache setup
// failures degrade to no caching rather than failing the command.
func newTraceCache(ctx context.Context, cfg *config.Config, logger *log.Logger, noCache bool) cache.Cache {
	if noCache || cfg.Cache.Backend == "none" {
		return cache.NewNullCache()
	}
	switch cfg.Cache.Backend {
	case "redis":
		c, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logger.Warn("redis cache unavailable, caching disabled", "error", err)
			return cache.NewNullCache()
		}
		return c
	default:
		c, err := cache.NewFileCache(cfg.CacheDir())
		if err != nil {
			logger.Warn("file cache unavailable, caching disabled", "error", err)
			return cache.NewNullCache()
		}
		return c
	}
}

// newKeyer scopes cache keys by environment when one is configured.
func newKeyer(cfg *config.Config) cache.Keyer {
	if cfg.Environment == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Environment+":")
}

// newRunner builds a trace runner wired per config. Callers own the
// returned runner and must Close it.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*trace.Runner, func(), error) {
	dir, cleanup, err := newDirectory(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	tracer := trace.New(dir, newQuerier(cfg), c.Logger)
	runner := trace.NewRunner(tracer, newTraceCache(ctx, cfg, c.Logger, noCache), newKeyer(cfg), c.Logger)
	runner.TTL = cfg.TraceTTL()
	return runner, cleanup, nil
}
