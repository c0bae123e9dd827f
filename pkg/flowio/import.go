package flowio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "github.com/vsundar/flowtrace/pkg/errors"
	"github.com/vsundar/flowtrace/pkg/trace"
)

// ReadJSON decodes a flow graph from r.
//
// The input must carry the starting triple ("starting_queue_manager",
// "object_name", "object_type") and a "flow_path" array; a trace with no
// identifiable origin is rejected. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*trace.FlowGraph, error) {
	var g trace.FlowGraph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode flow graph")
	}
	if err := validate(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ImportJSON reads a JSON file at path and returns the decoded flow graph.
// It returns the same validation errors as [ReadJSON].
func ImportJSON(path string) (*trace.FlowGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	g, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func validate(g *trace.FlowGraph) error {
	if g.Manager == "" {
		return apperrors.New(apperrors.ErrCodeInvalidFormat, "missing starting_queue_manager")
	}
	if g.Object == "" {
		return apperrors.New(apperrors.ErrCodeInvalidFormat, "missing object_name")
	}
	if _, err := trace.ParseObjectType(string(g.Type)); err != nil {
		return err
	}
	if g.Path == nil {
		g.Path = []trace.FlowNode{}
	}
	return nil
}
