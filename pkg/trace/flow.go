package trace

import (
	"fmt"
	"strings"

	apperrors "github.com/vsundar/flowtrace/pkg/errors"
)

// ObjectType distinguishes the two kinds of traceable destination objects.
type ObjectType string

const (
	// ObjectQueue is a point-to-point destination.
	ObjectQueue ObjectType = "queue"
	// ObjectTopic is a publish/subscribe destination.
	ObjectTopic ObjectType = "topic"
)

// ParseObjectType converts user input into an ObjectType, accepting any case.
func ParseObjectType(s string) (ObjectType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queue":
		return ObjectQueue, nil
	case "topic":
		return ObjectTopic, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeInvalidObjectType, "object type must be \"queue\" or \"topic\", got %q", s)
	}
}

// Ref identifies one unit of traversal work: a named object on a named
// manager. Refs are value types; the traversal queue holds them directly and
// dedups enqueued work by exact (manager, object, type) equality.
type Ref struct {
	Manager string
	Object  string
	Type    ObjectType
}

// Validate checks the ref is structurally usable as a traversal seed.
func (r Ref) Validate() error {
	if r.Manager == "" {
		return apperrors.New(apperrors.ErrCodeInvalidManager, "manager name is required")
	}
	if r.Object == "" {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "object name is required")
	}
	if r.Type != ObjectQueue && r.Type != ObjectTopic {
		return apperrors.New(apperrors.ErrCodeInvalidObjectType, "object type must be \"queue\" or \"topic\", got %q", string(r.Type))
	}
	return nil
}

// String renders the ref as "OBJECT (type) on MANAGER".
func (r Ref) String() string {
	return fmt.Sprintf("%s (%s) on %s", r.Object, r.Type, r.Manager)
}

// Kind labels for resolved queue and topic nodes. These strings appear
// verbatim in serialized traces, so they are part of the output contract.
const (
	KindAlias       = "Alias"
	KindLocal       = "Local"
	KindRemote      = "Remote"
	KindTopic       = "Topic"
	KindUnsupported = "Unsupported queue type"
)

// Channel is the network binding selected for a transmission queue. When
// several channels serve the same transmission queue, the first one in the
// manager's reply order wins.
type Channel struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	ConnectionName string `json:"connection_name"`
}

// Subscription is one topic-to-destination binding recorded on a topic node.
// DestinationManager is always resolved; a subscription with no explicit
// destination manager belongs to the topic's own manager.
type Subscription struct {
	Name               string `json:"name"`
	Destination        string `json:"destination"`
	DestinationManager string `json:"destination_queue_manager"`
}

// Detail carries the kind-specific fields of a resolved node. Only the
// fields the kind defines are populated; everything else stays empty and is
// omitted from serialized output.
type Detail struct {
	Kind string `json:"type"`

	// Alias queues: the base object and what it resolved to.
	BaseObjectName string `json:"base_object_name,omitempty"`
	BaseObjectType string `json:"base_object_type,omitempty"` // "queue" or "topic"
	BaseQueueType  string `json:"base_queue_type,omitempty"`  // Local or Remote

	// Remote queues (directly or via an alias base).
	RemoteManager string `json:"remote_queue_manager,omitempty"`
	RemoteQueue   string `json:"remote_queue,omitempty"`

	// Off-manager delivery staging.
	TransmissionQueue string   `json:"transmission_queue,omitempty"`
	Channel           *Channel `json:"channel,omitempty"`

	// Topics.
	TopicString   string         `json:"topic_string,omitempty"`
	Subscriptions []Subscription `json:"subscriptions,omitempty"`

	// Human-readable pointers to the hops this node caused.
	NextHop  string   `json:"next_hop,omitempty"`
	NextHops []string `json:"next_hops,omitempty"`
}

// FlowNode is one entry in the trace result. Exactly one of three shapes:
// a resolved node (Detail set), an error node (Error set, no Detail), or a
// loop marker (Note set). Nodes are append-only; once recorded they are
// never revised by later hops.
type FlowNode struct {
	Manager string     `json:"queue_manager,omitempty"`
	Object  string     `json:"object_name,omitempty"`
	Type    ObjectType `json:"object_type,omitempty"`
	Detail  *Detail    `json:"details,omitempty"`
	Error   string     `json:"error,omitempty"`
	Note    string     `json:"note,omitempty"`
}

// FlowGraph is the accumulated result of one traversal: the starting triple
// plus every visited, failed, or loop-terminated node in discovery order.
// It is a trace, not a normalized graph; the same manager never resolves
// twice within one graph.
type FlowGraph struct {
	TraceID string     `json:"trace_id"`
	Manager string     `json:"starting_queue_manager"`
	Object  string     `json:"object_name"`
	Type    ObjectType `json:"object_type"`
	Path    []FlowNode `json:"flow_path"`
}

// Errors returns the error messages of all failed nodes, in discovery order.
// An empty slice means every reachable hop resolved cleanly.
func (g *FlowGraph) Errors() []string {
	var errs []string
	for _, n := range g.Path {
		if n.Error != "" {
			errs = append(errs, n.Error)
		}
	}
	return errs
}
