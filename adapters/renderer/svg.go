package renderer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	svg "github.com/ajstarks/svgo"
)

// SVGRenderer renders a schematic view of an evaluated artifact's bounding
// box, grounded on _examples/dshills-dungo/pkg/export/svg.go's
// canvas-to-buffer-then-file shape (background rect, margin-aware layout,
// optional title/stats header).
type SVGRenderer struct{}

var _ Renderer = SVGRenderer{}

// Render writes one PNG-adjacent SVG image summarizing artifactPath's
// evaluated geometry (bounding box and watertight status, when opts.Metrics
// is set) to opts.OutputDir, returning its path.
func (SVGRenderer) Render(ctx context.Context, artifactPath string, opts Options) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("renderer: OutputDir required")
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	canvas := svg.New(buf)
	canvas.Start(opts.Width, opts.Height)
	canvas.Rect(0, 0, opts.Width, opts.Height, "fill:#1a1a2e")

	title := opts.Title
	if title == "" {
		title = filepath.Base(artifactPath)
	}
	canvas.Text(opts.Width/2, 30, title, "text-anchor:middle;fill:#eaeaea;font-size:18px")

	if opts.Metrics != nil {
		drawBoundingBox(canvas, opts)
	} else {
		canvas.Text(opts.Width/2, opts.Height/2, "no geometry available", "text-anchor:middle;fill:#888;font-size:14px")
	}

	canvas.End()

	outPath := filepath.Join(opts.OutputDir, artifactBaseName(artifactPath)+".svg")
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return []string{outPath}, nil
}

func artifactBaseName(artifactPath string) string {
	base := filepath.Base(artifactPath)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

func drawBoundingBox(canvas *svg.SVG, opts Options) {
	gm := opts.Metrics
	margin := 80
	drawW := opts.Width - 2*margin
	drawH := opts.Height - 2*margin - 60

	maxDim := gm.BoundingBox.SizeX
	if gm.BoundingBox.SizeY > maxDim {
		maxDim = gm.BoundingBox.SizeY
	}
	if maxDim <= 0 {
		maxDim = 1
	}
	scale := float64(drawW) / maxDim
	if float64(drawH)/maxDim < scale {
		scale = float64(drawH) / maxDim
	}

	w := int(gm.BoundingBox.SizeX * scale)
	h := int(gm.BoundingBox.SizeY * scale)
	x := (opts.Width - w) / 2
	y := margin + 60

	style := "fill:#2a4a6a;stroke:#8fd3ff;stroke-width:2"
	if !gm.IsWatertight {
		style = "fill:#5a2a2a;stroke:#ff8f8f;stroke-width:2"
	}
	canvas.Rect(x, y, w, h, style)

	status := "watertight"
	if !gm.IsWatertight {
		status = "not watertight"
	}
	label := fmt.Sprintf("%.1f x %.1f x %.1f mm (%s)", gm.BoundingBox.SizeX, gm.BoundingBox.SizeY, gm.BoundingBox.SizeZ, status)
	canvas.Text(opts.Width/2, y+h+30, label, "text-anchor:middle;fill:#cccccc;font-size:13px")
}
