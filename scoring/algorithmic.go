// Package scoring implements the deterministic, dependency-free algorithmic
// fidelity score (spec §4.9). It is intentionally stdlib-only: the spec
// itself requires this component be "deterministic, dependency-free."
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/cadforge/pipeline/design"
)

// Breakdown is the algorithmic score's sub-score breakdown (§4.9).
type Breakdown struct {
	DimensionScore float64
	DimensionNote  string
	VolumeScore    float64
	DFMScore       float64
	Overall        float64
}

// dimensionAxis maps a critical-dimension key's suffix to a bounding-box
// axis per the fixed table in §4.9.
func dimensionAxis(name string, bb design.BoundingBox) (float64, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "_length"), strings.HasSuffix(lower, "_x"):
		return bb.SizeX, true
	case strings.HasSuffix(lower, "_width"), strings.HasSuffix(lower, "_y"):
		return bb.SizeY, true
	case strings.HasSuffix(lower, "_height"), strings.HasSuffix(lower, "_z"):
		return bb.SizeZ, true
	case strings.HasSuffix(lower, "_diameter"):
		return math.Max(bb.SizeX, bb.SizeY), true
	default:
		return 0, false
	}
}

// dimensionMatch scores how closely the evaluated bounding box matches the
// critical dimensions (§4.9 "Dimension match").
func dimensionMatch(critical map[string]float64, bb design.BoundingBox) (float64, string) {
	if len(critical) == 0 {
		return 50, "no critical dimensions configured"
	}
	// Deterministic iteration order for reproducible reasoning/tie-break text.
	names := make([]string, 0, len(critical))
	for name := range critical {
		names = append(names, name)
	}
	sort.Strings(names)

	var total float64
	var mapped int
	for _, name := range names {
		expected := critical[name]
		actual, ok := dimensionAxis(name, bb)
		if !ok || expected == 0 {
			continue
		}
		mapped++
		score := math.Max(0, 1-math.Abs(actual-expected)/expected) * 100
		total += score
	}
	if mapped == 0 {
		return 50, "no dimensions mapped to a bounding-box axis"
	}
	return total / float64(mapped), ""
}

// volumeSanity scores the ratio of actual to bounding-box volume (§4.9
// "Volume sanity").
func volumeSanity(eval *design.SandboxEval) float64 {
	gm := eval.GeometryMetrics
	if gm == nil {
		return 50
	}
	if gm.IsWatertight && gm.Volume <= 0 {
		return 0
	}
	boxVolume := gm.BoundingBox.SizeX * gm.BoundingBox.SizeY * gm.BoundingBox.SizeZ
	if boxVolume <= 0 {
		return 50
	}
	ratio := gm.Volume / boxVolume
	switch {
	case ratio >= 0.10 && ratio <= 1.0:
		return 100
	case ratio < 0.10:
		return ratio / 0.10 * 100
	default:
		return math.Max(0, 100-(ratio-1.0)*100)
	}
}

// buildVolumeViolated reports whether any DFM issue or the report's extras
// flag a build-volume violation.
func buildVolumeViolated(eval *design.SandboxEval) bool {
	if v, ok := eval.DFMReport["build_volume_violated"]; ok {
		if b, ok := v.(bool); ok && b {
			return true
		}
	}
	for _, issue := range eval.DFMIssues {
		lower := strings.ToLower(issue)
		if strings.Contains(lower, "build volume") || strings.Contains(lower, "build-volume") {
			return true
		}
	}
	return false
}

// dfmScore scores manufacturability from watertightness, build-volume
// compliance, remaining DFM issues, and FEA risk (§4.9 "DFM score").
func dfmScore(eval *design.SandboxEval) float64 {
	score := 100.0
	gm := eval.GeometryMetrics
	if gm == nil || !gm.IsWatertight {
		score -= 40
	}
	issues := len(eval.DFMIssues)
	if buildVolumeViolated(eval) {
		score -= 30
		issues--
	}
	if issues > 0 {
		score -= 10 * float64(issues)
	}
	if strings.EqualFold(eval.RiskLevel, "high") {
		score -= 15
	}
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Algorithmic computes the deterministic algorithmic score for a proposal's
// SandboxEval against the design's critical dimensions (§4.9). It never
// errors: a nil or zero-value eval degrades gracefully, per §7.3
// "downstream scoring degrades gracefully (algorithmic score handles
// missing geometry by defaulting)".
func Algorithmic(eval *design.SandboxEval, critical map[string]float64) Breakdown {
	if eval == nil {
		eval = &design.SandboxEval{}
	}
	var bb design.BoundingBox
	if eval.GeometryMetrics != nil {
		bb = eval.GeometryMetrics.BoundingBox
	}

	dim, note := dimensionMatch(critical, bb)
	vol := volumeSanity(eval)
	dfm := dfmScore(eval)
	overall := 0.40*dim + 0.20*vol + 0.40*dfm

	return Breakdown{
		DimensionScore: dim,
		DimensionNote:  note,
		VolumeScore:    vol,
		DFMScore:       dfm,
		Overall:        clamp(overall, 0, 100),
	}
}

// Blend computes the blended fidelity score (§4.9, §3 FidelityScore
// invariant, P4): blended = 0.60*algorithmic + 0.40*llm, clamped to [0,100].
func Blend(algorithmic, llm float64) float64 {
	return clamp(0.60*algorithmic+0.40*llm, 0, 100)
}
