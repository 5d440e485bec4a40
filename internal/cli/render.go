package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/hlsched/pkg/pipeline"
	"github.com/matzehuels/hlsched/pkg/report"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		o          scheduleOpts
		formatsStr string
		output     string
		bare       bool
	)

	cmd := &cobra.Command{
		Use:   "render <problem>",
		Short: "Draw the scheduled DFG as DOT, SVG, PNG or PDF",
		Long: `Draw the scheduled DFG as DOT, SVG, PNG or PDF.

The problem is scheduled first (or taken from the cache). Operations that start
in the same cycle share a rank, so the diagram reads top to bottom in time.
--bare draws the data-flow graph without scheduling it.

SVG is rendered with Graphviz; PNG and PDF additionally require rsvg-convert.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			if len(formats) == 0 {
				formats = []string{pipeline.FormatSVG}
			}
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			if bare {
				return c.runRenderBare(cmd.Context(), args[0], &o, formats, output)
			}

			opts, err := c.pipelineOptions(&o)
			if err != nil {
				return err
			}
			opts.Formats = formats
			res, err := c.runSchedule(cmd.Context(), args[0], &o, opts)
			if res == nil {
				return err
			}
			if werr := writeArtifacts(res.Artifacts, formats, args[0], output); werr != nil {
				return werr
			}
			printStats(res.Stats.Operations, res.Stats.Edges, res.CacheInfo.RenderHit)
			return err
		},
	}

	o.register(cmd)
	o.skipVerify = true
	cmd.Flags().StringVarP(&formatsStr, "output-format", "f", "", "output format(s): svg (default), dot, png, pdf (comma-separated)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&o.detailed, "detailed", false, "add latency, unit and metadata lines to node labels")
	cmd.Flags().BoolVar(&bare, "bare", false, "draw the unscheduled data-flow graph")

	return cmd
}

func (c *CLI) runRenderBare(ctx context.Context, input string, o *scheduleOpts, formats []string, output string) error {
	lib, err := c.library(o.lib)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	p, err := c.loadProblem(input, o.format, lib)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}
	g, err := p.Graph(func(f string, args ...any) { c.Logger.Warnf(f, args...) })
	if err != nil {
		return err
	}
	artifacts, err := pipeline.RenderDOT(ctx, report.ToDOT(g, nil, nil, report.DOTOptions{Detailed: o.detailed}), formats)
	if err != nil {
		return err
	}
	return writeArtifacts(artifacts, formats, input, output)
}

// basePath derives the output path without extension: output with a known
// format extension stripped, or input without its extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeArtifacts writes one file per format. A single format goes to
// output verbatim when it is set.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) error {
	base := basePath(output, input)
	for _, f := range formats {
		data, ok := artifacts[f]
		if !ok {
			return fmt.Errorf("no %s output produced", f)
		}
		path := base + "." + f
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}
