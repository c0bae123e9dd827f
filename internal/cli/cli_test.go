package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vsundar/flowtrace/pkg/cache"
	"github.com/vsundar/flowtrace/pkg/config"
	"github.com/vsundar/flowtrace/pkg/directory"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	want := []string{"trace", "render", "serve", "audit", "stats", "cache", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestNewDirectoryStatic(t *testing.T) {
	cfg := config.Default()
	cfg.Directory.Managers = []config.ManagerConfig{
		{Name: "QM1", Host: "mq1.example.com", Port: 1414, Channel: "ADMIN.SVRCONN"},
		{Name: "QM2", Host: "mq2.example.com", Port: 1415},
	}

	dir, cleanup, err := newDirectory(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newDirectory: %v", err)
	}
	defer cleanup()

	conn, err := dir.Lookup(context.Background(), "QM1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if conn.Host != "mq1.example.com" || conn.Channel != "ADMIN.SVRCONN" {
		t.Errorf("conn = %+v", conn)
	}

	// Entries without a channel get the default on lookup.
	conn, err = dir.Lookup(context.Background(), "QM2")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if conn.Channel != directory.DefaultChannel {
		t.Errorf("channel = %q", conn.Channel)
	}

	if _, err := dir.Lookup(context.Background(), "QM9"); err == nil {
		t.Error("unknown manager should not resolve")
	}
}

func TestNewTraceCacheSelection(t *testing.T) {
	logger := log.New(io.Discard)

	cfg := config.Default()
	cfg.Cache.Backend = "none"
	if _, ok := newTraceCache(context.Background(), cfg, logger, false).(*cache.NullCache); !ok {
		t.Error("backend none should select the null cache")
	}

	cfg = config.Default()
	if _, ok := newTraceCache(context.Background(), cfg, logger, true).(*cache.NullCache); !ok {
		t.Error("--no-cache should select the null cache")
	}

	cfg = config.Default()
	cfg.Cache.Dir = t.TempDir()
	if _, ok := newTraceCache(context.Background(), cfg, logger, false).(*cache.FileCache); !ok {
		t.Error("default backend should select the file cache")
	}
}

func TestNewKeyerScopesByEnvironment(t *testing.T) {
	cfg := config.Default()
	plain := newKeyer(cfg).TraceKey("QM1", "ORDERS", cache.TraceKeyOpts{Type: "queue"})

	cfg.Environment = "staging"
	scoped := newKeyer(cfg).TraceKey("QM1", "ORDERS", cache.TraceKeyOpts{Type: "queue"})

	if scoped == plain {
		t.Error("environment should change the key")
	}
	if scoped != "staging:"+plain {
		t.Errorf("scoped key = %q, want %q prefix", scoped, "staging:")
	}
}
