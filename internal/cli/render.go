package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vsundar/flowtrace/pkg/flowio"
	"github.com/vsundar/flowtrace/pkg/render"
)

// renderCommand creates the render command for re-rendering saved traces.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatStr string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "render [trace.json]",
		Short: "Render a saved trace to another format",
		Long: `Render a saved trace to another format.

The render command takes a trace file (produced by 'trace -f json -o')
and re-renders it without touching any queue manager. Useful for turning
an archived trace into a diagram, or for rendering on a machine without
broker access.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(formatStr)
			if err != nil {
				return err
			}
			return c.runRender(args[0], format, output)
		},
	}

	cmd.Flags().StringVarP(&formatStr, "format", "f", "text", "output format: text (default), json, dot, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout, or derived for svg/png)")

	return cmd
}

// runRender loads the saved trace and renders it.
func (c *CLI) runRender(input string, format render.Format, output string) error {
	graph, err := flowio.ImportJSON(input)
	if err != nil {
		return fmt.Errorf("load trace %s: %w", input, err)
	}

	data, err := render.Render(graph, format)
	if err != nil {
		return err
	}

	// Binary and image formats get a derived filename rather than stdout.
	if output == "" && (format == render.FormatSVG || format == render.FormatPNG) {
		output = strings.TrimSuffix(input, ".json") + "." + string(format)
	}

	if output == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Rendered %s", input)
	printFile(output)
	return nil
}
