package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vsundar/flowtrace/pkg/render"
	"github.com/vsundar/flowtrace/pkg/trace"
)

// traceCommand creates the trace command, the tool's main entry point.
func (c *CLI) traceCommand() *cobra.Command {
	var (
		manager   string
		objType   string
		formatStr string
		output    string
		refresh   bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "trace [object]",
		Short: "Resolve the delivery path of a queue or topic",
		Long: `Resolve the physical delivery path of a queue or topic.

Starting from the named object on the given queue manager, the trace
follows alias bases, remote definitions, and topic subscriptions hop by
hop until every path ends on a local queue, a dead end, or a loop.

Broken hops do not abort the trace; they appear in the path as error
nodes so one unreachable manager still leaves the rest of the topology
visible.

Results are cached; use --refresh to force re-resolution.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := trace.ParseObjectType(objType)
			if err != nil {
				return err
			}
			format, err := render.ParseFormat(formatStr)
			if err != nil {
				return err
			}
			start := trace.Ref{Manager: manager, Object: args[0], Type: typ}
			return c.runTrace(cmd.Context(), start, format, output, refresh, noCache)
		},
	}

	cmd.Flags().StringVarP(&manager, "manager", "m", "", "starting queue manager (required)")
	cmd.Flags().StringVarP(&objType, "type", "t", "queue", "object type: queue (default), topic")
	cmd.Flags().StringVarP(&formatStr, "format", "f", "text", "output format: text (default), json, dot, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and re-resolve")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	_ = cmd.MarkFlagRequired("manager")

	return cmd
}

// runTrace resolves the path and writes the rendered result.
func (c *CLI) runTrace(ctx context.Context, start trace.Ref, format render.Format, output string, refresh, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	runner, cleanup, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer cleanup()
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Tracing %s on %s...", start.Object, start.Manager))
	spinner.Start()

	graph, cached, err := runner.Run(ctx, start, trace.RunOptions{Refresh: refresh})
	if err != nil {
		spinner.StopWithError("Trace failed")
		return fmt.Errorf("trace: %w", err)
	}
	spinner.Stop()

	data, err := render.Render(graph, format)
	if err != nil {
		return err
	}

	if output != "" {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		printSuccess("Traced %s on %s", start.Object, start.Manager)
		printFile(output)
	} else {
		fmt.Print(string(data))
	}

	printTraceStats(len(graph.Path), len(graph.Errors()), cached)
	for _, msg := range graph.Errors() {
		printWarning("%s", msg)
	}
	if output == "" && format == render.FormatText {
		printNextStep("Save and render", fmt.Sprintf("%s trace %s -m %s -f svg -o flow.svg", appName, start.Object, start.Manager))
	}
	return nil
}
