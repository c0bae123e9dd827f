package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/vsundar/flowtrace/pkg/trace"
)

// ToDOT converts a flow graph to Graphviz DOT source. Nodes are the trace's
// flow nodes; edges are re-derived from the kind-specific details (alias
// bases, remote destinations, subscription fan-out), with channel names as
// edge labels where a channel was resolved.
func ToDOT(g *trace.FlowGraph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph flow {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	fmt.Fprintf(&buf, "  label=%q;\n", fmt.Sprintf("%s (%s) from %s", g.Object, g.Type, g.Manager))
	buf.WriteString("\n")

	loops := 0
	for _, node := range g.Path {
		switch {
		case node.Note != "":
			loops++
			fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey];\n",
				fmt.Sprintf("loop_%d", loops), node.Note)
		case node.Error != "":
			fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=mistyrose, color=red];\n",
				nodeID(node.Manager, node.Object), fmt.Sprintf("%s\n%s", nodeID(node.Manager, node.Object), node.Error))
		default:
			label := nodeID(node.Manager, node.Object)
			if node.Detail != nil {
				label = fmt.Sprintf("%s\n%s", label, node.Detail.Kind)
			}
			fmt.Fprintf(&buf, "  %q [label=%q];\n", nodeID(node.Manager, node.Object), label)
		}
	}

	buf.WriteString("\n")
	for _, node := range g.Path {
		if node.Detail == nil {
			continue
		}
		from := nodeID(node.Manager, node.Object)
		d := node.Detail

		if d.BaseObjectName != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=\"alias\"];\n", from, nodeID(node.Manager, d.BaseObjectName))
		}
		if d.RemoteManager != "" && d.RemoteQueue != "" {
			label := "remote"
			if d.Channel != nil {
				label = d.Channel.Name
			}
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", from, nodeID(d.RemoteManager, d.RemoteQueue), label)
		}
		for _, sub := range d.Subscriptions {
			if sub.Destination == "" {
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", from, nodeID(sub.DestinationManager, sub.Destination), sub.Name)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	svg, err := renderDOT(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(svg), nil
}

// RenderPNG renders DOT source to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return renderDOT(dot, graphviz.PNG)
}

func renderDOT(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the svg element so the image scales cleanly in
// browsers regardless of the point-based sizing Graphviz emits.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
