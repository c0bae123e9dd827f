package stats

import (
	"context"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vsundar/flowtrace/pkg/admin"
	"github.com/vsundar/flowtrace/pkg/directory"
)

// defaultWorkers bounds concurrent manager scrapes when unset.
const defaultWorkers = 4

// Result is one manager's collection outcome.
type Result struct {
	Manager string
	Queues  int
	Err     error
}

// Collector scrapes every manager in the directory and pushes one report
// each. Designed to run from cron at the broker's statistics interval.
type Collector struct {
	Directory directory.ListService
	Querier   admin.Querier
	Pusher    Pusher
	Logger    *log.Logger
	Workers   int
}

// NewCollector creates a stats collector.
func NewCollector(dir directory.ListService, querier admin.Querier, pusher Pusher, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{
		Directory: dir,
		Querier:   querier,
		Pusher:    pusher,
		Logger:    logger,
		Workers:   defaultWorkers,
	}
}

// Run collects and pushes statistics for all managers, returning one
// result per manager sorted by name. Only a directory listing failure
// fails the run as a whole.
func (c *Collector) Run(ctx context.Context) ([]Result, error) {
	conns, err := c.Directory.List(ctx)
	if err != nil {
		return nil, err
	}
	c.Logger.Info("stats collection started", "managers", len(conns))

	workers := c.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(conns) {
		workers = len(conns)
	}

	work := make(chan directory.Connection)
	results := make([]Result, 0, len(conns))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for conn := range work {
				res := c.collectManager(ctx, conn)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	for _, conn := range conns {
		work <- conn
	}
	close(work)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Manager < results[j].Manager })

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	c.Logger.Info("stats collection finished", "managers", len(results), "failed", failed)
	return results, nil
}

// collectManager reads one manager's statistics interval and pushes its
// report.
func (c *Collector) collectManager(ctx context.Context, conn directory.Connection) Result {
	res := Result{Manager: conn.Name}

	session, err := c.Querier.Connect(ctx, conn)
	if err != nil {
		c.Logger.Warn("stats connect failed", "manager", conn.Name, "error", err)
		res.Err = err
		return res
	}
	defer func() {
		if derr := session.Disconnect(); derr != nil {
			c.Logger.Warn("disconnect failed", "manager", conn.Name, "error", derr)
		}
	}()

	interval, err := session.InquireStatistics(ctx)
	if err != nil {
		res.Err = err
		return res
	}

	report := buildReport(conn.Name, interval)
	if err := c.Pusher.Push(ctx, report); err != nil {
		res.Err = err
		return res
	}

	// Total rollup is not a real queue.
	res.Queues = len(report.Queues) - 1
	c.Logger.Info("stats pushed",
		"manager", conn.Name, "queues", res.Queues, "interval_seconds", report.IntervalSeconds)
	return res
}
