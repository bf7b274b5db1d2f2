// Package analyzer narrows the out-of-scope mesh analyzer / DFM checker /
// FEA stub collaborators to the typed ports spec §6 describes: "each takes
// an artifact path and returns a typed result record."
package analyzer

import (
	"context"

	"github.com/cadforge/pipeline/design"
)

// DFMResult is the DFM checker's typed result.
type DFMResult struct {
	Issues []string
	Extras map[string]any
}

// FEAResult is the FEA stub's typed result.
type FEAResult struct {
	RiskLevel string
	RiskScore float64
}

// Analyzer bundles the three out-of-scope geometry collaborators behind one
// port, since the sandbox evaluator node (§4.7) calls all three in sequence
// for each valid proposal's artifact.
type Analyzer interface {
	AnalyzeGeometry(ctx context.Context, artifactPath string) (design.GeometryMetrics, error)
	CheckDFM(ctx context.Context, artifactPath string) (DFMResult, error)
	RunFEA(ctx context.Context, artifactPath string) (FEAResult, error)
	// GeometricDiff compares artifactPath against a prior-round winner's
	// artifact, when one exists (§4.7 "If a prior-round winner artifact
	// exists, requests a geometric diff").
	GeometricDiff(ctx context.Context, artifactPath, priorArtifactPath string) (map[string]float64, error)
}
