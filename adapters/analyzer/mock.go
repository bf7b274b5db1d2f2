package analyzer

import (
	"context"

	"github.com/cadforge/pipeline/design"
)

// Mock is a scripted Analyzer for tests: every method returns the field
// value configured for it, regardless of input, unless Err is set.
type Mock struct {
	Geometry design.GeometryMetrics
	DFM      DFMResult
	FEA      FEAResult
	Diff     map[string]float64
	Err      error
}

var _ Analyzer = (*Mock)(nil)

func (m *Mock) AnalyzeGeometry(ctx context.Context, artifactPath string) (design.GeometryMetrics, error) {
	if m.Err != nil {
		return design.GeometryMetrics{}, m.Err
	}
	return m.Geometry, nil
}

func (m *Mock) CheckDFM(ctx context.Context, artifactPath string) (DFMResult, error) {
	if m.Err != nil {
		return DFMResult{}, m.Err
	}
	return m.DFM, nil
}

func (m *Mock) RunFEA(ctx context.Context, artifactPath string) (FEAResult, error) {
	if m.Err != nil {
		return FEAResult{}, m.Err
	}
	return m.FEA, nil
}

func (m *Mock) GeometricDiff(ctx context.Context, artifactPath, priorArtifactPath string) (map[string]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Diff, nil
}
