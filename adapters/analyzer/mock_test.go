package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/cadforge/pipeline/design"
)

func TestMock_ReturnsConfiguredValues(t *testing.T) {
	m := &Mock{
		Geometry: design.GeometryMetrics{IsWatertight: true, Volume: 42},
		DFM:      DFMResult{Issues: []string{"thin wall"}},
		FEA:      FEAResult{RiskLevel: "low", RiskScore: 0.1},
		Diff:     map[string]float64{"volume_delta": 1.5},
	}
	ctx := context.Background()

	geom, err := m.AnalyzeGeometry(ctx, "a.stl")
	if err != nil || !geom.IsWatertight || geom.Volume != 42 {
		t.Errorf("AnalyzeGeometry() = %+v, %v", geom, err)
	}

	dfm, err := m.CheckDFM(ctx, "a.stl")
	if err != nil || len(dfm.Issues) != 1 {
		t.Errorf("CheckDFM() = %+v, %v", dfm, err)
	}

	fea, err := m.RunFEA(ctx, "a.stl")
	if err != nil || fea.RiskLevel != "low" {
		t.Errorf("RunFEA() = %+v, %v", fea, err)
	}

	diff, err := m.GeometricDiff(ctx, "a.stl", "b.stl")
	if err != nil || diff["volume_delta"] != 1.5 {
		t.Errorf("GeometricDiff() = %+v, %v", diff, err)
	}
}

func TestMock_ErrShortCircuitsEveryMethod(t *testing.T) {
	wantErr := errors.New("analyzer unreachable")
	m := &Mock{Err: wantErr}
	ctx := context.Background()

	if _, err := m.AnalyzeGeometry(ctx, "a.stl"); err != wantErr {
		t.Errorf("AnalyzeGeometry() error = %v, want %v", err, wantErr)
	}
	if _, err := m.CheckDFM(ctx, "a.stl"); err != wantErr {
		t.Errorf("CheckDFM() error = %v, want %v", err, wantErr)
	}
	if _, err := m.RunFEA(ctx, "a.stl"); err != wantErr {
		t.Errorf("RunFEA() error = %v, want %v", err, wantErr)
	}
	if _, err := m.GeometricDiff(ctx, "a.stl", "b.stl"); err != wantErr {
		t.Errorf("GeometricDiff() error = %v, want %v", err, wantErr)
	}
}
