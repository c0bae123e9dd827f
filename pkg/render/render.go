// Package render turns flow graphs into presentable output.
//
// Supported formats:
//
//   - text: indented tree for terminals
//   - json: the serialized flow graph (same format flowio round-trips)
//   - dot:  Graphviz DOT source with edges re-derived from node details
//   - svg, png: rasterized DOT via Graphviz
//
// The flow graph itself is a trace in discovery order; rendering is the only
// place edges are reconstructed from the per-node details.
package render

import (
	"bytes"
	"fmt"
	"strings"

	apperrors "github.com/vsundar/flowtrace/pkg/errors"
	"github.com/vsundar/flowtrace/pkg/flowio"
	"github.com/vsundar/flowtrace/pkg/trace"
)

// Format identifies an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
)

// ParseFormat converts user input into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatDOT:
		return FormatDOT, nil
	case FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeInvalidFormat, "unknown format %q (want text, json, dot, svg, or png)", s)
	}
}

// Render produces the graph in the requested format.
func Render(g *trace.FlowGraph, format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(ToText(g)), nil
	case FormatJSON:
		var buf bytes.Buffer
		if err := flowio.WriteJSON(g, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatDOT:
		return []byte(ToDOT(g)), nil
	case FormatSVG:
		return RenderSVG(ToDOT(g))
	case FormatPNG:
		return RenderPNG(ToDOT(g))
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidFormat, "unknown format %q", string(format))
	}
}

// nodeID is the DOT/display identity of a flow node: "OBJECT @ MANAGER".
func nodeID(manager, object string) string {
	if object == "" {
		return manager
	}
	return fmt.Sprintf("%s @ %s", object, manager)
}
