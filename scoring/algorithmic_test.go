package scoring

import (
	"testing"

	"github.com/cadforge/pipeline/design"
)

func TestAlgorithmic_NilEval(t *testing.T) {
	b := Algorithmic(nil, map[string]float64{"width": 10})
	if b.Overall < 0 || b.Overall > 100 {
		t.Fatalf("Overall out of range: %v", b.Overall)
	}
	if b.DimensionScore != 50 {
		t.Errorf("expected neutral dimension score 50 for nil geometry, got %v", b.DimensionScore)
	}
}

func TestAlgorithmic_NoCriticalDimensions(t *testing.T) {
	eval := &design.SandboxEval{
		GeometryMetrics: &design.GeometryMetrics{
			IsWatertight: true,
			Volume:       50,
			BoundingBox:  design.BoundingBox{SizeX: 10, SizeY: 10, SizeZ: 1},
		},
	}
	b := Algorithmic(eval, nil)
	if b.DimensionScore != 50 {
		t.Errorf("expected neutral dimension score 50, got %v", b.DimensionScore)
	}
	if b.DimensionNote == "" {
		t.Error("expected a DimensionNote explaining the neutral score")
	}
}

func TestAlgorithmic_DimensionMatch(t *testing.T) {
	tests := []struct {
		name     string
		critical map[string]float64
		bb       design.BoundingBox
		want     float64
	}{
		{"exact_length_match", map[string]float64{"plate_length": 100}, design.BoundingBox{SizeX: 100}, 100},
		{"exact_width_match", map[string]float64{"plate_width": 50}, design.BoundingBox{SizeY: 50}, 100},
		{"exact_height_match", map[string]float64{"plate_height": 5}, design.BoundingBox{SizeZ: 5}, 100},
		{"diameter_maps_to_max_xy", map[string]float64{"hole_diameter": 20}, design.BoundingBox{SizeX: 20, SizeY: 12}, 100},
		{"fifty_percent_off", map[string]float64{"plate_length": 100}, design.BoundingBox{SizeX: 50}, 50},
		{"unmapped_suffix_ignored", map[string]float64{"weight_kg": 5}, design.BoundingBox{SizeX: 100}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &design.SandboxEval{GeometryMetrics: &design.GeometryMetrics{BoundingBox: tt.bb, IsWatertight: true, Volume: 1}}
			b := Algorithmic(eval, tt.critical)
			if b.DimensionScore != tt.want {
				t.Errorf("DimensionScore = %v, want %v", b.DimensionScore, tt.want)
			}
		})
	}
}

func TestAlgorithmic_VolumeSanity(t *testing.T) {
	tests := []struct {
		name   string
		volume float64
		bb     design.BoundingBox
		want   float64
	}{
		{"half_fill_is_perfect", 500, design.BoundingBox{SizeX: 10, SizeY: 10, SizeZ: 10}, 100},
		{"sparse_fill_scaled_down", 50, design.BoundingBox{SizeX: 10, SizeY: 10, SizeZ: 10}, 50},
		{"overfull_impossible_penalized", 1500, design.BoundingBox{SizeX: 10, SizeY: 10, SizeZ: 10}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &design.SandboxEval{GeometryMetrics: &design.GeometryMetrics{
				IsWatertight: true, Volume: tt.volume, BoundingBox: tt.bb,
			}}
			b := Algorithmic(eval, nil)
			if b.VolumeScore != tt.want {
				t.Errorf("VolumeScore = %v, want %v", b.VolumeScore, tt.want)
			}
		})
	}
}

func TestAlgorithmic_DFMScore(t *testing.T) {
	t.Run("not_watertight_penalized", func(t *testing.T) {
		eval := &design.SandboxEval{GeometryMetrics: &design.GeometryMetrics{IsWatertight: false}}
		b := Algorithmic(eval, nil)
		if b.DFMScore != 60 {
			t.Errorf("DFMScore = %v, want 60 (100-40)", b.DFMScore)
		}
	})

	t.Run("build_volume_violation_and_issues_and_high_risk", func(t *testing.T) {
		eval := &design.SandboxEval{
			GeometryMetrics: &design.GeometryMetrics{IsWatertight: true},
			DFMIssues:       []string{"build volume exceeded", "wall too thin"},
			RiskLevel:       "HIGH",
		}
		// 100 - 30 (build volume, also removed from issues count) - 10*1 (remaining issue) - 15 (high risk) = 45
		b := Algorithmic(eval, nil)
		if b.DFMScore != 45 {
			t.Errorf("DFMScore = %v, want 45", b.DFMScore)
		}
	})

	t.Run("clamped_at_zero", func(t *testing.T) {
		eval := &design.SandboxEval{
			DFMIssues: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
			RiskLevel: "high",
		}
		b := Algorithmic(eval, nil)
		if b.DFMScore != 0 {
			t.Errorf("DFMScore = %v, want clamped 0", b.DFMScore)
		}
	})
}

func TestAlgorithmic_OverallWeighting(t *testing.T) {
	eval := &design.SandboxEval{
		GeometryMetrics: &design.GeometryMetrics{
			IsWatertight: true,
			Volume:       500,
			BoundingBox:  design.BoundingBox{SizeX: 100, SizeY: 10, SizeZ: 10},
		},
	}
	b := Algorithmic(eval, map[string]float64{"plate_length": 100})
	want := 0.40*b.DimensionScore + 0.20*b.VolumeScore + 0.40*b.DFMScore
	if b.Overall != want {
		t.Errorf("Overall = %v, want %v (0.40*dim + 0.20*vol + 0.40*dfm)", b.Overall, want)
	}
}

func TestBlend(t *testing.T) {
	tests := []struct {
		name              string
		algorithmic, llm  float64
		want              float64
	}{
		{"both_full", 100, 100, 100},
		{"both_zero", 0, 0, 0},
		{"weighted_60_40", 80, 50, 0.60*80 + 0.40*50},
		{"clamped_above_100", 200, 200, 100},
		{"clamped_below_0", -50, -50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Blend(tt.algorithmic, tt.llm)
			if got != tt.want {
				t.Errorf("Blend(%v, %v) = %v, want %v", tt.algorithmic, tt.llm, got, tt.want)
			}
		})
	}
}
