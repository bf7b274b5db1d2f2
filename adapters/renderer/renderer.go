// Package renderer narrows the out-of-scope image renderer collaborator to
// the port spec §6 describes: it "takes an artifact path and returns a
// typed result record" — here, the set of rendered image paths written to
// OutputDir.
package renderer

import (
	"context"

	"github.com/cadforge/pipeline/design"
)

// Options configures one render pass. Metrics, when non-nil, lets a
// renderer draw the evaluated geometry's bounding box and watertight status
// even though the generic port contract (§6) only passes an artifact path —
// callers that already hold a SandboxEval attach it here rather than have
// the renderer re-derive geometry from the artifact file itself, which is
// out of this pipeline's scope.
type Options struct {
	OutputDir string
	Width     int
	Height    int
	Title     string
	Metrics   *design.GeometryMetrics
}

// DefaultOptions returns sensible render defaults.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 600}
}

// Renderer renders a geometry artifact to one or more images, returning
// their file paths.
type Renderer interface {
	Render(ctx context.Context, artifactPath string, opts Options) ([]string, error)
}
