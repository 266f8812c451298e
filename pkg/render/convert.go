package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// converter is the external tool used for raster and PDF output.
const converter = "rsvg-convert"

// ToPDF converts SVG to PDF with rsvg-convert from librsvg.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return convert(ctx, svg, "pdf")
}

// ToPNG converts SVG to PNG at the given scale; 2 doubles the resolution.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	return convert(ctx, svg, "png", "-z", fmt.Sprintf("%.2f", scale))
}

func convert(ctx context.Context, svg []byte, format string, extra ...string) ([]byte, error) {
	if _, err := exec.LookPath(converter); err != nil {
		return nil, fmt.Errorf("%s output needs %s (brew install librsvg, apt install librsvg2-bin)", format, converter)
	}

	cmd := exec.CommandContext(ctx, converter, append([]string{"-f", format}, extra...)...)
	cmd.Stdin = bytes.NewReader(svg)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", converter, err, stderr.String())
	}
	return out.Bytes(), nil
}
