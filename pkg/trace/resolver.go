package trace

import (
	"context"
	"fmt"

	"github.com/vsundar/flowtrace/pkg/admin"
)

// resolveQueue classifies one queue's attributes into node detail plus the
// follow-up hops it implies. It never fails: secondary inquiries (channels,
// alias bases) that error degrade to missing detail rather than failing the
// node, since the queue itself was already resolved.
func (t *Tracer) resolveQueue(ctx context.Context, s admin.Session, manager string, attrs admin.QueueAttributes) (*Detail, []Ref) {
	switch attrs.Type {
	case admin.QueueTypeAlias:
		return t.resolveAlias(ctx, s, manager, attrs)

	case admin.QueueTypeLocal:
		d := &Detail{Kind: KindLocal}
		t.attachTransmission(ctx, s, d, attrs.TransmitQueue)
		return d, nil

	case admin.QueueTypeRemote:
		d := &Detail{
			Kind:          KindRemote,
			RemoteManager: attrs.RemoteManager,
			RemoteQueue:   attrs.RemoteQueue,
		}
		t.attachTransmission(ctx, s, d, attrs.TransmitQueue)

		// A remote queue always implies a next hop, even when the remote
		// manager later proves unreachable. Skipped only when the definition
		// itself is incomplete.
		var hops []Ref
		if attrs.RemoteManager != "" && attrs.RemoteQueue != "" {
			hops = append(hops, Ref{Manager: attrs.RemoteManager, Object: attrs.RemoteQueue, Type: ObjectQueue})
			d.NextHop = fmt.Sprintf("%s on %s", attrs.RemoteQueue, attrs.RemoteManager)
		}
		return d, hops

	default:
		return &Detail{Kind: KindUnsupported}, nil
	}
}

// resolveAlias records the alias and resolves its base object on the same
// manager: first as a queue, then as a topic if no such queue exists.
// Whichever succeeds shapes this node's detail and becomes a follow-up hop.
func (t *Tracer) resolveAlias(ctx context.Context, s admin.Session, manager string, attrs admin.QueueAttributes) (*Detail, []Ref) {
	d := &Detail{Kind: KindAlias, BaseObjectName: attrs.BaseObject}
	if attrs.BaseObject == "" {
		return d, nil
	}

	var hops []Ref
	base, err := s.InquireQueue(ctx, attrs.BaseObject)
	if err == nil {
		d.BaseObjectType = "queue"
		switch base.Type {
		case admin.QueueTypeLocal:
			d.BaseQueueType = KindLocal
			t.attachTransmission(ctx, s, d, base.TransmitQueue)
		case admin.QueueTypeRemote:
			d.BaseQueueType = KindRemote
			d.RemoteManager = base.RemoteManager
			d.RemoteQueue = base.RemoteQueue
			t.attachTransmission(ctx, s, d, base.TransmitQueue)
			if base.RemoteManager != "" && base.RemoteQueue != "" {
				hops = append(hops, Ref{Manager: base.RemoteManager, Object: base.RemoteQueue, Type: ObjectQueue})
				d.NextHop = fmt.Sprintf("%s on %s", base.RemoteQueue, base.RemoteManager)
			}
		}
		hops = append(hops, Ref{Manager: manager, Object: attrs.BaseObject, Type: ObjectQueue})
		return d, hops
	}

	if _, terr := s.InquireTopic(ctx, attrs.BaseObject); terr == nil {
		d.BaseObjectType = "topic"
		hops = append(hops, Ref{Manager: manager, Object: attrs.BaseObject, Type: ObjectTopic})
		return d, hops
	}

	t.Logger.Warn("alias base did not resolve as queue or topic",
		"manager", manager, "base", attrs.BaseObject, "error", err)
	return d, nil
}

// resolveTopic records the topic string and fans out over its active
// subscriptions, one follow-up hop per subscription with a destination.
// A blank destination manager means the topic's own manager.
func (t *Tracer) resolveTopic(ctx context.Context, s admin.Session, manager, name string, attrs admin.TopicAttributes) (*Detail, []Ref) {
	d := &Detail{Kind: KindTopic, TopicString: attrs.TopicString}

	subs, err := s.InquireSubscriptions(ctx, name)
	if err != nil {
		t.Logger.Warn("subscription inquiry failed", "manager", manager, "topic", name, "error", err)
		return d, nil
	}

	var hops []Ref
	for _, sub := range subs {
		destManager := sub.DestinationManager
		if destManager == "" {
			destManager = manager
		}
		d.Subscriptions = append(d.Subscriptions, Subscription{
			Name:               sub.Name,
			Destination:        sub.Destination,
			DestinationManager: destManager,
		})
		if sub.Destination != "" {
			hops = append(hops, Ref{Manager: destManager, Object: sub.Destination, Type: ObjectQueue})
			d.NextHops = append(d.NextHops, fmt.Sprintf("%s on %s", sub.Destination, destManager))
		}
	}
	return d, hops
}

// attachTransmission records the transmission queue and the first channel
// bound to it. Multiple bound channels are a configuration ambiguity; the
// first in the manager's reply order wins.
func (t *Tracer) attachTransmission(ctx context.Context, s admin.Session, d *Detail, transmitQueue string) {
	if transmitQueue == "" {
		return
	}
	d.TransmissionQueue = transmitQueue

	channels, err := s.InquireChannels(ctx, transmitQueue)
	if err != nil {
		t.Logger.Warn("channel inquiry failed", "transmission_queue", transmitQueue, "error", err)
		return
	}
	if len(channels) == 0 {
		return
	}
	d.Channel = &Channel{
		Name:           channels[0].Name,
		Type:           channels[0].Type,
		ConnectionName: channels[0].ConnectionName,
	}
}
