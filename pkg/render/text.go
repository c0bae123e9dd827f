package render

import (
	"fmt"
	"strings"

	"github.com/vsundar/flowtrace/pkg/trace"
)

// ToText renders the trace as an indented tree, one top-level entry per
// flow node in discovery order. The output is plain text; terminal styling
// belongs to the CLI layer.
func ToText(g *trace.FlowGraph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trace %s: %s (%s) starting on %s\n", g.TraceID, g.Object, g.Type, g.Manager)

	if len(g.Path) == 0 {
		b.WriteString("  (empty trace)\n")
		return b.String()
	}

	for i, node := range g.Path {
		fmt.Fprintf(&b, "%d. %s", i+1, nodeID(node.Manager, node.Object))
		if node.Type != "" {
			fmt.Fprintf(&b, " [%s]", node.Type)
		}
		b.WriteByte('\n')

		switch {
		case node.Note != "":
			fmt.Fprintf(&b, "   note: %s\n", node.Note)
		case node.Error != "":
			fmt.Fprintf(&b, "   error: %s\n", node.Error)
		case node.Detail != nil:
			writeDetail(&b, node.Detail)
		}
	}
	return b.String()
}

func writeDetail(b *strings.Builder, d *trace.Detail) {
	fmt.Fprintf(b, "   kind: %s\n", d.Kind)
	if d.BaseObjectName != "" {
		fmt.Fprintf(b, "   base object: %s", d.BaseObjectName)
		if d.BaseObjectType != "" {
			fmt.Fprintf(b, " (%s", d.BaseObjectType)
			if d.BaseQueueType != "" {
				fmt.Fprintf(b, ", %s", d.BaseQueueType)
			}
			b.WriteString(")")
		}
		b.WriteByte('\n')
	}
	if d.RemoteQueue != "" || d.RemoteManager != "" {
		fmt.Fprintf(b, "   remote: %s on %s\n", d.RemoteQueue, d.RemoteManager)
	}
	if d.TransmissionQueue != "" {
		fmt.Fprintf(b, "   transmission queue: %s\n", d.TransmissionQueue)
	}
	if d.Channel != nil {
		fmt.Fprintf(b, "   channel: %s (%s) -> %s\n", d.Channel.Name, d.Channel.Type, d.Channel.ConnectionName)
	}
	if d.TopicString != "" {
		fmt.Fprintf(b, "   topic string: %s\n", d.TopicString)
	}
	for _, sub := range d.Subscriptions {
		fmt.Fprintf(b, "   subscription %s -> %s on %s\n", sub.Name, sub.Destination, sub.DestinationManager)
	}
	if d.NextHop != "" {
		fmt.Fprintf(b, "   next hop: %s\n", d.NextHop)
	}
	for _, hop := range d.NextHops {
		fmt.Fprintf(b, "   next hop: %s\n", hop)
	}
}
