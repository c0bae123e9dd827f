package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vsundar/flowtrace/pkg/admin"
	"github.com/vsundar/flowtrace/pkg/directory"
)

// defaultWorkers bounds concurrent manager audits when unset.
const defaultWorkers = 4

// Result is one manager's audit outcome.
type Result struct {
	Manager string
	Queues  int
	Err     error
}

// Runner audits every manager in the directory. Managers are independent,
// so they are processed by a bounded worker pool; one unreachable manager
// only fails its own result.
type Runner struct {
	Directory directory.ListService
	Querier   admin.Querier
	Store     Store
	Logger    *log.Logger
	Workers   int
}

// NewRunner creates an audit runner.
func NewRunner(dir directory.ListService, querier admin.Querier, store Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Directory: dir,
		Querier:   querier,
		Store:     store,
		Logger:    logger,
		Workers:   defaultWorkers,
	}
}

// Run audits all managers and returns one result per manager, sorted by
// manager name. Run fails outright only when the directory itself cannot
// be listed.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	conns, err := r.Directory.List(ctx)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("audit started", "managers", len(conns))

	workers := r.Workers
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
				res := r.auditManager(ctx, conn)
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
	r.Logger.Info("audit finished", "managers", len(results), "failed", failed)
	return results, nil
}

// auditManager collects and persists one manager's queue usage snapshot.
func (r *Runner) auditManager(ctx context.Context, conn directory.Connection) Result {
	res := Result{Manager: conn.Name}

	session, err := r.Querier.Connect(ctx, conn)
	if err != nil {
		r.Logger.Warn("audit connect failed", "manager", conn.Name, "error", err)
		res.Err = err
		return res
	}
	defer func() {
		if derr := session.Disconnect(); derr != nil {
			r.Logger.Warn("disconnect failed", "manager", conn.Name, "error", derr)
		}
	}()

	statuses, err := session.InquireQueueStatus(ctx)
	if err != nil {
		res.Err = err
		return res
	}

	records := buildRecords(conn.Name, statuses, time.Now())
	if len(records) == 0 {
		r.Logger.Info("no usable queue timestamps, skipping", "manager", conn.Name)
		return res
	}

	if err := r.Store.Upsert(ctx, records); err != nil {
		res.Err = err
		return res
	}
	res.Queues = len(records)
	r.Logger.Info("audit upserted", "manager", conn.Name, "queues", res.Queues)
	return res
}
