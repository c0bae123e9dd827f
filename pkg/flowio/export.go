// Package flowio provides JSON import and export for flow graphs.
//
// The format is the flow graph's own serialized shape: the starting triple
// plus the "flow_path" array in discovery order. Exported traces can be
// archived, diffed between configuration changes, or re-imported for
// rendering without re-querying any manager.
package flowio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vsundar/flowtrace/pkg/trace"
)

// WriteJSON encodes a flow graph as indented JSON and writes it to w.
// The output can be re-imported with [ReadJSON] for round-trip processing.
func WriteJSON(g *trace.FlowGraph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a flow graph to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(g *trace.FlowGraph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}
