// Package admin defines the administrative query capability used to inspect
// queue managers.
//
// The traversal core depends only on the [Querier] and [Session] interfaces;
// it never touches a concrete protocol client. The mqsc subpackage provides
// an implementation that shells out to the vendor's runmqsc tooling, and
// tests substitute scripted fakes that return canned attribute sets.
//
// Every inquiry takes a context and must honor its deadline: a hung broker
// surfaces as a timeout error on that call, never as a stuck traversal.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/vsundar/flowtrace/pkg/directory"
)

// ErrNotFound is returned by InquireQueue and InquireTopic when the named
// object does not exist on the session's manager.
var ErrNotFound = errors.New("object not found")

// QueueType classifies a queue definition on its manager.
type QueueType int

const (
	// QueueTypeUnknown marks a queue type the resolver does not support.
	QueueTypeUnknown QueueType = iota
	// QueueTypeLocal is a locally hosted queue.
	QueueTypeLocal
	// QueueTypeAlias forwards to a base object by name.
	QueueTypeAlias
	// QueueTypeRemote is a definition whose real destination is a queue on
	// another manager.
	QueueTypeRemote
)

// String returns the display name of the queue type.
func (t QueueType) String() string {
	switch t {
	case QueueTypeLocal:
		return "Local"
	case QueueTypeAlias:
		return "Alias"
	case QueueTypeRemote:
		return "Remote"
	default:
		return "Unknown"
	}
}

// QueueAttributes is the raw attribute set returned by a queue inquiry.
// Fields other than Name and Type are populated only where the queue type
// defines them.
type QueueAttributes struct {
	Name          string
	Type          QueueType
	BaseObject    string // alias queues: name of the base queue or topic
	RemoteManager string // remote queues: destination manager
	RemoteQueue   string // remote queues: destination queue
	TransmitQueue string // staging queue for off-manager delivery, if any
}

// TopicAttributes is the raw attribute set returned by a topic inquiry.
type TopicAttributes struct {
	Name        string
	TopicString string
}

// SubscriptionRecord describes one active subscription on a manager.
type SubscriptionRecord struct {
	Name               string
	Topic              string
	Destination        string // destination queue
	DestinationManager string // blank means the subscription's own manager
}

// ChannelRecord describes one channel definition on a manager.
type ChannelRecord struct {
	Name           string
	Type           string
	TransmitQueue  string
	ConnectionName string
}

// QueueStatus carries the last-get/last-put timestamps reported for one
// queue, as broker-formatted date and time strings. All four fields blank
// usually means the manager restarted since the queue was last touched.
type QueueStatus struct {
	Queue       string
	LastGetDate string
	LastGetTime string
	LastPutDate string
	LastPutTime string
}

// QueueStatistics is one queue's activity totals over a statistics interval.
type QueueStatistics struct {
	Queue    string
	Enqueued int64 // puts, persistent and non-persistent combined
	Dequeued int64 // gets, persistent and non-persistent combined
}

// StatisticsInterval is one manager's statistics window with the broker's
// own interval boundaries.
type StatisticsInterval struct {
	Start  time.Time
	End    time.Time
	Queues []QueueStatistics
}

// Querier opens administrative sessions against queue managers.
// Implementations must be safe for concurrent use by independent
// traversals; each returned Session is used by one goroutine at a time.
type Querier interface {
	// Connect opens a session to the manager described by conn. It returns
	// an error when the manager is unreachable or rejects the credentials.
	Connect(ctx context.Context, conn directory.Connection) (Session, error)
}

// Session answers attribute queries against one open manager connection.
// Callers must Disconnect on every exit path so connections do not leak
// across hops.
type Session interface {
	// InquireQueue returns the attributes of the named queue, or
	// ErrNotFound when the manager has no such queue.
	InquireQueue(ctx context.Context, name string) (QueueAttributes, error)

	// InquireTopic returns the attributes of the named topic, or
	// ErrNotFound when the manager has no such topic.
	InquireTopic(ctx context.Context, name string) (TopicAttributes, error)

	// InquireSubscriptions returns active subscriptions whose topic matches
	// topicFilter. The filter "*" matches all subscriptions; any other
	// value is an exact topic-name match.
	InquireSubscriptions(ctx context.Context, topicFilter string) ([]SubscriptionRecord, error)

	// InquireChannels returns channels bound to the named transmission
	// queue, in the manager's reply order. An empty filter returns all
	// channels.
	InquireChannels(ctx context.Context, transmitQueue string) ([]ChannelRecord, error)

	// InquireQueueStatus returns last-get/last-put status for every queue
	// on the manager. Used by the usage audit.
	InquireQueueStatus(ctx context.Context) ([]QueueStatus, error)

	// InquireStatistics returns the most recent statistics interval
	// published by the manager. Used by the stats collector.
	InquireStatistics(ctx context.Context) (StatisticsInterval, error)

	// Disconnect closes the session. Safe to call once per session.
	Disconnect() error
}
