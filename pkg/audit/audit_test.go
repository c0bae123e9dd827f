package audit

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vsundar/flowtrace/pkg/admin"
	"github.com/vsundar/flowtrace/pkg/directory"
)

func TestBuildRecordsSkipsBlankTimestamps(t *testing.T) {
	now := time.Now()
	statuses := []admin.QueueStatus{
		{Queue: "ACTIVE", LastGetDate: "2026-08-24", LastGetTime: "10.00.00"},
		{Queue: "PUT.ONLY", LastPutDate: "2026-08-24", LastPutTime: "09.30.00"},
		{Queue: "RESTARTED"},
	}

	records := buildRecords("QM1", statuses, now)
	if len(records) != 2 {
		t.Fatalf("built %d records, want 2 (all-blank queue skipped)", len(records))
	}
	if records[0].Queue != "ACTIVE" || records[0].Manager != "QM1" {
		t.Errorf("record = %+v", records[0])
	}
	if records[1].LastPutDate != "2026-08-24" || records[1].LastGetDate != "" {
		t.Errorf("record = %+v", records[1])
	}
}

func TestRecordAuditDay(t *testing.T) {
	r := Record{AuditedAt: time.Date(2026, 8, 24, 23, 59, 0, 0, time.UTC)}
	if got := r.AuditDay(); got != "2026-08-24" {
		t.Errorf("AuditDay = %q", got)
	}
}

// fakeStore records upserts per manager.
type fakeStore struct {
	mu      sync.Mutex
	records map[string][]Record
	err     error
}

func (s *fakeStore) Upsert(_ context.Context, records []Record) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[string][]Record)
	}
	for _, r := range records {
		s.records[r.Manager] = append(s.records[r.Manager], r)
	}
	return nil
}

func (s *fakeStore) Close() {}

// fakeAuditQuerier serves scripted queue statuses per manager.
type fakeAuditQuerier struct {
	statuses   map[string][]admin.QueueStatus
	connectErr map[string]error
}

func (q *fakeAuditQuerier) Connect(_ context.Context, conn directory.Connection) (admin.Session, error) {
	if err := q.connectErr[conn.Name]; err != nil {
		return nil, err
	}
	return &fakeAuditSession{statuses: q.statuses[conn.Name]}, nil
}

type fakeAuditSession struct {
	statuses []admin.QueueStatus
}

func (s *fakeAuditSession) InquireQueue(context.Context, string) (admin.QueueAttributes, error) {
	return admin.QueueAttributes{}, admin.ErrNotFound
}

func (s *fakeAuditSession) InquireTopic(context.Context, string) (admin.TopicAttributes, error) {
	return admin.TopicAttributes{}, admin.ErrNotFound
}

func (s *fakeAuditSession) InquireSubscriptions(context.Context, string) ([]admin.SubscriptionRecord, error) {
	return nil, nil
}

func (s *fakeAuditSession) InquireChannels(context.Context, string) ([]admin.ChannelRecord, error) {
	return nil, nil
}

func (s *fakeAuditSession) InquireQueueStatus(context.Context) ([]admin.QueueStatus, error) {
	return s.statuses, nil
}

func (s *fakeAuditSession) InquireStatistics(context.Context) (admin.StatisticsInterval, error) {
	return admin.StatisticsInterval{}, nil
}

func (s *fakeAuditSession) Disconnect() error { return nil }

func TestRunnerAuditsAllManagers(t *testing.T) {
	dir := directory.Static{
		"QM1": {Name: "QM1", Host: "a", Port: 1414},
		"QM2": {Name: "QM2", Host: "b", Port: 1414},
		"QM3": {Name: "QM3", Host: "c", Port: 1414},
	}
	querier := &fakeAuditQuerier{
		statuses: map[string][]admin.QueueStatus{
			"QM1": {{Queue: "A", LastGetDate: "2026-08-24"}},
			"QM2": {{Queue: "B", LastPutDate: "2026-08-24"}, {Queue: "C", LastPutTime: "01.00.00"}},
			"QM3": {{Queue: "IDLE"}}, // all blank, skipped
		},
	}
	store := &fakeStore{}
	runner := NewRunner(dir, querier, store, log.New(io.Discard))

	results, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	// Results are sorted by manager name.
	for i, want := range []string{"QM1", "QM2", "QM3"} {
		if results[i].Manager != want {
			t.Errorf("results[%d].Manager = %s, want %s", i, results[i].Manager, want)
		}
		if results[i].Err != nil {
			t.Errorf("results[%d].Err = %v", i, results[i].Err)
		}
	}
	if results[0].Queues != 1 || results[1].Queues != 2 || results[2].Queues != 0 {
		t.Errorf("queue counts = %d/%d/%d", results[0].Queues, results[1].Queues, results[2].Queues)
	}
	if len(store.records["QM3"]) != 0 {
		t.Errorf("QM3 should not have been upserted: %+v", store.records["QM3"])
	}
}

func TestRunnerIsolatesFailures(t *testing.T) {
	dir := directory.Static{
		"QM1": {Name: "QM1", Host: "a", Port: 1414},
		"QM2": {Name: "QM2", Host: "b", Port: 1414},
	}
	querier := &fakeAuditQuerier{
		statuses: map[string][]admin.QueueStatus{
			"QM2": {{Queue: "B", LastPutDate: "2026-08-24"}},
		},
		connectErr: map[string]error{"QM1": errors.New("connection refused")},
	}
	store := &fakeStore{}
	runner := NewRunner(dir, querier, store, log.New(io.Discard))

	results, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if results[0].Err == nil {
		t.Error("QM1 should have failed")
	}
	if results[1].Err != nil || results[1].Queues != 1 {
		t.Errorf("QM2 result = %+v, should be unaffected by QM1 failure", results[1])
	}
}

func TestRunnerStoreFailure(t *testing.T) {
	dir := directory.Static{"QM1": {Name: "QM1", Host: "a", Port: 1414}}
	querier := &fakeAuditQuerier{
		statuses: map[string][]admin.QueueStatus{
			"QM1": {{Queue: "A", LastGetDate: "2026-08-24"}},
		},
	}
	store := &fakeStore{err: errors.New("db down")}
	runner := NewRunner(dir, querier, store, log.New(io.Discard))

	results, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if results[0].Err == nil {
		t.Error("store failure should surface in the manager's result")
	}
}
