package trace

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vsundar/flowtrace/pkg/admin"
	"github.com/vsundar/flowtrace/pkg/directory"
)

// fakeBroker holds the scripted object definitions for one manager.
type fakeBroker struct {
	connectErr error
	queues     map[string]admin.QueueAttributes
	topics     map[string]admin.TopicAttributes
	subs       []admin.SubscriptionRecord
	channels   []admin.ChannelRecord
}

// fakeQuerier serves scripted attribute sets and counts session lifecycles.
type fakeQuerier struct {
	brokers     map[string]*fakeBroker
	connects    int
	disconnects int
}

func (q *fakeQuerier) Connect(_ context.Context, conn directory.Connection) (admin.Session, error) {
	b, ok := q.brokers[conn.Name]
	if !ok {
		return nil, errors.New("no such broker")
	}
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	q.connects++
	return &fakeSession{querier: q, broker: b}, nil
}

type fakeSession struct {
	querier *fakeQuerier
	broker  *fakeBroker
}

func (s *fakeSession) InquireQueue(_ context.Context, name string) (admin.QueueAttributes, error) {
	attrs, ok := s.broker.queues[name]
	if !ok {
		return admin.QueueAttributes{}, admin.ErrNotFound
	}
	return attrs, nil
}

func (s *fakeSession) InquireTopic(_ context.Context, name string) (admin.TopicAttributes, error) {
	attrs, ok := s.broker.topics[name]
	if !ok {
		return admin.TopicAttributes{}, admin.ErrNotFound
	}
	return attrs, nil
}

func (s *fakeSession) InquireSubscriptions(_ context.Context, topicFilter string) ([]admin.SubscriptionRecord, error) {
	var subs []admin.SubscriptionRecord
	for _, sub := range s.broker.subs {
		if topicFilter == "*" || sub.Topic == topicFilter {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (s *fakeSession) InquireChannels(_ context.Context, transmitQueue string) ([]admin.ChannelRecord, error) {
	var channels []admin.ChannelRecord
	for _, ch := range s.broker.channels {
		if transmitQueue == "" || ch.TransmitQueue == transmitQueue {
			channels = append(channels, ch)
		}
	}
	return channels, nil
}

func (s *fakeSession) InquireQueueStatus(context.Context) ([]admin.QueueStatus, error) {
	return nil, nil
}

func (s *fakeSession) InquireStatistics(context.Context) (admin.StatisticsInterval, error) {
	return admin.StatisticsInterval{}, nil
}

func (s *fakeSession) Disconnect() error {
	s.querier.disconnects++
	return nil
}

func newTestTracer(brokers map[string]*fakeBroker) (*Tracer, *fakeQuerier) {
	dir := directory.Static{}
	for name := range brokers {
		dir[name] = directory.Connection{Name: name, Host: name + ".example.com", Port: 1414}
	}
	querier := &fakeQuerier{brokers: brokers}
	return New(dir, querier, log.New(io.Discard)), querier
}

func TestTraceInvalidStart(t *testing.T) {
	tracer, _ := newTestTracer(nil)

	tests := []struct {
		name  string
		start Ref
	}{
		{"missing manager", Ref{Object: "Q", Type: ObjectQueue}},
		{"missing object", Ref{Manager: "QM1", Type: ObjectQueue}},
		{"bad type", Ref{Manager: "QM1", Object: "Q", Type: "channel"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tracer.Trace(context.Background(), tt.start); err == nil {
				t.Error("expected error for invalid start ref")
			}
		})
	}
}

func TestTraceLocalQueue(t *testing.T) {
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QM1": {queues: map[string]admin.QueueAttributes{
			"ORDERS": {Name: "ORDERS", Type: admin.QueueTypeLocal},
		}},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM1", Object: "ORDERS", Type: ObjectQueue})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if graph.TraceID == "" {
		t.Error("trace ID not assigned")
	}
	if len(graph.Path) != 1 {
		t.Fatalf("path has %d nodes, want 1", len(graph.Path))
	}
	node := graph.Path[0]
	if node.Error != "" || node.Detail == nil {
		t.Fatalf("unexpected node: %+v", node)
	}
	if node.Detail.Kind != KindLocal {
		t.Errorf("Kind = %q, want %q", node.Detail.Kind, KindLocal)
	}
}

func TestTraceAliasToLocalWithChannel(t *testing.T) {
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QM1": {
			queues: map[string]admin.QueueAttributes{
				"ORDERS.ALIAS": {Name: "ORDERS.ALIAS", Type: admin.QueueTypeAlias, BaseObject: "ORDERS"},
				"ORDERS":       {Name: "ORDERS", Type: admin.QueueTypeLocal, TransmitQueue: "QM2.XMIT"},
			},
			channels: []admin.ChannelRecord{
				{Name: "TO.QM2", Type: "SDR", TransmitQueue: "QM2.XMIT", ConnectionName: "mq2.example.com(1414)"},
			},
		},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM1", Object: "ORDERS.ALIAS", Type: ObjectQueue})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}

	// The alias node carries the fully resolved base detail; the base hop
	// itself lands on an already-visited manager and terminates as a loop.
	if len(graph.Path) != 2 {
		t.Fatalf("path has %d nodes, want 2", len(graph.Path))
	}
	d := graph.Path[0].Detail
	if d == nil {
		t.Fatalf("alias node has no detail: %+v", graph.Path[0])
	}
	if d.Kind != KindAlias || d.BaseObjectName != "ORDERS" {
		t.Errorf("alias detail = %+v", d)
	}
	if d.BaseObjectType != "queue" || d.BaseQueueType != KindLocal {
		t.Errorf("base resolution = %q/%q, want queue/Local", d.BaseObjectType, d.BaseQueueType)
	}
	if d.TransmissionQueue != "QM2.XMIT" {
		t.Errorf("TransmissionQueue = %q", d.TransmissionQueue)
	}
	if d.Channel == nil || d.Channel.Name != "TO.QM2" || d.Channel.Type != "SDR" || d.Channel.ConnectionName != "mq2.example.com(1414)" {
		t.Errorf("channel detail = %+v", d.Channel)
	}
	if graph.Path[1].Note == "" {
		t.Errorf("base hop should terminate as a loop marker, got %+v", graph.Path[1])
	}
}

func TestTraceAliasToTopic(t *testing.T) {
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QM1": {
			queues: map[string]admin.QueueAttributes{
				"EVENTS.ALIAS": {Name: "EVENTS.ALIAS", Type: admin.QueueTypeAlias, BaseObject: "EVENTS"},
			},
			topics: map[string]admin.TopicAttributes{
				"EVENTS": {Name: "EVENTS", TopicString: "/events"},
			},
		},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM1", Object: "EVENTS.ALIAS", Type: ObjectQueue})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	d := graph.Path[0].Detail
	if d == nil || d.BaseObjectType != "topic" {
		t.Fatalf("alias node = %+v, want base resolved as topic", graph.Path[0])
	}
	// The topic hop is on the same manager, so it terminates as a loop.
	if len(graph.Path) != 2 || graph.Path[1].Note == "" {
		t.Errorf("path = %+v, want alias node plus loop marker", graph.Path)
	}
}

func TestTraceRemoteCycle(t *testing.T) {
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QMA": {queues: map[string]admin.QueueAttributes{
			"TO.B": {Name: "TO.B", Type: admin.QueueTypeRemote, RemoteManager: "QMB", RemoteQueue: "TO.A"},
		}},
		"QMB": {queues: map[string]admin.QueueAttributes{
			"TO.A": {Name: "TO.A", Type: admin.QueueTypeRemote, RemoteManager: "QMA", RemoteQueue: "TO.B"},
		}},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QMA", Object: "TO.B", Type: ObjectQueue})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}

	// One resolved node per manager plus exactly one trailing loop marker.
	if len(graph.Path) != 3 {
		t.Fatalf("path has %d nodes, want 3: %+v", len(graph.Path), graph.Path)
	}
	for i, manager := range []string{"QMA", "QMB"} {
		node := graph.Path[i]
		if node.Error != "" || node.Detail == nil || node.Detail.Kind != KindRemote {
			t.Errorf("node %d = %+v, want error-free Remote node", i, node)
		}
		if node.Manager != manager {
			t.Errorf("node %d manager = %s, want %s", i, node.Manager, manager)
		}
	}
	loop := graph.Path[2]
	if loop.Note != "Loop detected at QMA, stopping trace" {
		t.Errorf("loop note = %q", loop.Note)
	}
	if graph.Path[0].Detail.NextHop != "TO.A on QMB" {
		t.Errorf("NextHop = %q", graph.Path[0].Detail.NextHop)
	}
}

func TestTraceTopicFanOut(t *testing.T) {
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QM1": {
			topics: map[string]admin.TopicAttributes{
				"PRICES": {Name: "PRICES", TopicString: "/market/prices"},
			},
			subs: []admin.SubscriptionRecord{
				{Name: "SUB.A", Topic: "PRICES", Destination: "FEED.A", DestinationManager: "QM2"},
				{Name: "SUB.B", Topic: "PRICES", Destination: "FEED.B", DestinationManager: "QM3"},
				{Name: "SUB.C", Topic: "PRICES", Destination: "FEED.C", DestinationManager: ""},
				{Name: "OTHER", Topic: "TRADES", Destination: "X", DestinationManager: "QM2"},
			},
			queues: map[string]admin.QueueAttributes{
				"FEED.C": {Name: "FEED.C", Type: admin.QueueTypeLocal},
			},
		},
		"QM2": {queues: map[string]admin.QueueAttributes{
			"FEED.A": {Name: "FEED.A", Type: admin.QueueTypeLocal},
		}},
		"QM3": {queues: map[string]admin.QueueAttributes{
			"FEED.B": {Name: "FEED.B", Type: admin.QueueTypeLocal},
		}},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM1", Object: "PRICES", Type: ObjectTopic})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}

	topic := graph.Path[0]
	if topic.Detail == nil || topic.Detail.Kind != KindTopic {
		t.Fatalf("first node = %+v, want topic node", topic)
	}
	if topic.Detail.TopicString != "/market/prices" {
		t.Errorf("TopicString = %q", topic.Detail.TopicString)
	}
	if len(topic.Detail.Subscriptions) != 3 {
		t.Fatalf("topic lists %d subscriptions, want 3 (filter must exclude other topics)", len(topic.Detail.Subscriptions))
	}
	// Blank destination manager defaults to the topic's own manager.
	if got := topic.Detail.Subscriptions[2].DestinationManager; got != "QM1" {
		t.Errorf("SUB.C destination manager = %q, want QM1", got)
	}
	if len(topic.Detail.NextHops) != 3 {
		t.Errorf("NextHops = %v, want 3 entries", topic.Detail.NextHops)
	}

	// Three follow-up hops: two resolve on fresh managers, the third lands
	// back on QM1 and terminates as a loop marker.
	if len(graph.Path) != 4 {
		t.Fatalf("path has %d nodes, want 4: %+v", len(graph.Path), graph.Path)
	}
	if graph.Path[1].Manager != "QM2" || graph.Path[1].Detail == nil {
		t.Errorf("node 1 = %+v, want resolved FEED.A on QM2", graph.Path[1])
	}
	if graph.Path[2].Manager != "QM3" || graph.Path[2].Detail == nil {
		t.Errorf("node 2 = %+v, want resolved FEED.B on QM3", graph.Path[2])
	}
	if graph.Path[3].Note == "" {
		t.Errorf("node 3 = %+v, want loop marker", graph.Path[3])
	}
}

func TestTraceMissingObject(t *testing.T) {
	tracer, querier := newTestTracer(map[string]*fakeBroker{
		"QM1": {queues: map[string]admin.QueueAttributes{}},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM1", Object: "GHOST", Type: ObjectQueue})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if len(graph.Path) != 1 {
		t.Fatalf("path has %d nodes, want 1", len(graph.Path))
	}
	node := graph.Path[0]
	if node.Error != "Queue GHOST not found on QM1" {
		t.Errorf("error = %q", node.Error)
	}
	if node.Detail != nil {
		t.Errorf("error node carries detail: %+v", node.Detail)
	}
	// The failed session must still have been torn down.
	if querier.connects != 1 || querier.disconnects != 1 {
		t.Errorf("connects/disconnects = %d/%d, want 1/1", querier.connects, querier.disconnects)
	}
}

func TestTraceUnknownManager(t *testing.T) {
	tracer, _ := newTestTracer(nil)

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM9", Object: "Q", Type: ObjectQueue})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if len(graph.Path) != 1 {
		t.Fatalf("path has %d nodes, want 1", len(graph.Path))
	}
	if graph.Path[0].Error != "No connection details found for QM9" {
		t.Errorf("error = %q", graph.Path[0].Error)
	}
}

func TestTraceConnectFailure(t *testing.T) {
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QM1": {connectErr: errors.New("connection refused")},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM1", Object: "Q", Type: ObjectQueue})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if graph.Path[0].Error != "Failed to connect to QM1" {
		t.Errorf("error = %q", graph.Path[0].Error)
	}
}

func TestTraceUnreachableRemoteManager(t *testing.T) {
	// The remote hop is enqueued unconditionally even though QM2 is absent
	// from the directory; it degrades to a node-scoped error.
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QM1": {queues: map[string]admin.QueueAttributes{
			"TO.QM2": {Name: "TO.QM2", Type: admin.QueueTypeRemote, RemoteManager: "QM2", RemoteQueue: "ORDERS"},
		}},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM1", Object: "TO.QM2", Type: ObjectQueue})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if len(graph.Path) != 2 {
		t.Fatalf("path has %d nodes, want 2: %+v", len(graph.Path), graph.Path)
	}
	if graph.Path[0].Detail == nil || graph.Path[0].Detail.Kind != KindRemote {
		t.Errorf("node 0 = %+v", graph.Path[0])
	}
	if graph.Path[1].Error != "No connection details found for QM2" {
		t.Errorf("node 1 error = %q", graph.Path[1].Error)
	}
}

func TestTraceUnsupportedQueueType(t *testing.T) {
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QM1": {queues: map[string]admin.QueueAttributes{
			"MODEL.Q": {Name: "MODEL.Q", Type: admin.QueueTypeUnknown},
		}},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM1", Object: "MODEL.Q", Type: ObjectQueue})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if len(graph.Path) != 1 || graph.Path[0].Detail == nil || graph.Path[0].Detail.Kind != KindUnsupported {
		t.Errorf("path = %+v", graph.Path)
	}
}

func TestTraceDedupsIdenticalHops(t *testing.T) {
	// Two subscriptions to the same destination must produce one hop.
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QM1": {
			topics: map[string]admin.TopicAttributes{
				"EVENTS": {Name: "EVENTS", TopicString: "/events"},
			},
			subs: []admin.SubscriptionRecord{
				{Name: "SUB.1", Topic: "EVENTS", Destination: "SINK", DestinationManager: "QM2"},
				{Name: "SUB.2", Topic: "EVENTS", Destination: "SINK", DestinationManager: "QM2"},
			},
		},
		"QM2": {queues: map[string]admin.QueueAttributes{
			"SINK": {Name: "SINK", Type: admin.QueueTypeLocal},
		}},
	})

	graph, err := tracer.Trace(context.Background(), Ref{Manager: "QM1", Object: "EVENTS", Type: ObjectTopic})
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if len(graph.Path) != 2 {
		t.Fatalf("path has %d nodes, want 2 (duplicate hop not deduplicated): %+v", len(graph.Path), graph.Path)
	}
	if subs := graph.Path[0].Detail.Subscriptions; len(subs) != 2 {
		t.Errorf("topic node lists %d subscriptions, want both recorded", len(subs))
	}
}

func TestTraceSessionsAlwaysClosed(t *testing.T) {
	tracer, querier := newTestTracer(map[string]*fakeBroker{
		"QMA": {queues: map[string]admin.QueueAttributes{
			"TO.B": {Name: "TO.B", Type: admin.QueueTypeRemote, RemoteManager: "QMB", RemoteQueue: "MISSING"},
		}},
		"QMB": {queues: map[string]admin.QueueAttributes{}},
	})

	if _, err := tracer.Trace(context.Background(), Ref{Manager: "QMA", Object: "TO.B", Type: ObjectQueue}); err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if querier.connects != querier.disconnects {
		t.Errorf("connects = %d, disconnects = %d; sessions leaked", querier.connects, querier.disconnects)
	}
	if querier.connects != 2 {
		t.Errorf("connects = %d, want 2", querier.connects)
	}
}

func TestParseObjectType(t *testing.T) {
	tests := []struct {
		in      string
		want    ObjectType
		wantErr bool
	}{
		{"queue", ObjectQueue, false},
		{"TOPIC", ObjectTopic, false},
		{" Queue ", ObjectQueue, false},
		{"channel", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseObjectType(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseObjectType(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseObjectType(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
