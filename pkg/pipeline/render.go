package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/hlsched/pkg/report"
)

// RenderDOT turns a DOT schedule diagram into the requested formats. The
// SVG is rendered once and shared by the PNG and PDF conversions.
func RenderDOT(ctx context.Context, dot string, formats []string) (map[string][]byte, error) {
	artifacts := make(map[string][]byte)
	var svg []byte

	for _, format := range formats {
		var data []byte
		var err error

		if format != FormatDOT && svg == nil {
			if svg, err = report.RenderSVG(ctx, dot); err != nil {
				return nil, fmt.Errorf("render svg: %w", err)
			}
		}
		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data = svg
		case FormatPNG:
			data, err = report.ToPNG(ctx, svg, DefaultPNGScale)
		case FormatPDF:
			data, err = report.ToPDF(ctx, svg)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
