// Package design defines the persisted data model for one competitive
// design pipeline execution: the DesignRecord and everything it owns.
package design

import "time"

// Status is the lifecycle status of a DesignRecord. It is monotone along a
// finite lattice: draft -> supervising -> proposing -> debating ->
// evaluating -> judging -> merging -> (awaiting_approval) -> learning ->
// completed|failed.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusSupervising      Status = "supervising"
	StatusProposing        Status = "proposing"
	StatusDebating         Status = "debating"
	StatusEvaluating       Status = "evaluating"
	StatusJudging          Status = "judging"
	StatusMerging          Status = "merging"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusLearning         Status = "learning"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// ProposalStatus is the lifecycle status of a single Proposal.
type ProposalStatus string

const (
	ProposalPending    ProposalStatus = "pending"
	ProposalGenerating ProposalStatus = "generating"
	ProposalCompleted  ProposalStatus = "completed"
	ProposalFailed     ProposalStatus = "failed"
	ProposalSelected   ProposalStatus = "selected"
	ProposalRejected   ProposalStatus = "rejected"
)

// Critique is one model's evaluation of one proposal (§3, §4.8).
type Critique struct {
	CriticModel       string   `json:"critic_model"`
	TargetProposalID  string   `json:"target_proposal_id"`
	Strengths         []string `json:"strengths,omitempty"`
	Weaknesses        []string `json:"weaknesses,omitempty"`
	SuggestedFixes    []string `json:"suggested_fixes,omitempty"`
	FidelityConcerns  []string `json:"fidelity_concerns,omitempty"`
	RawText           string   `json:"raw_text,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// BoundingBox is the axis-aligned size of an evaluated artifact.
type BoundingBox struct {
	SizeX float64 `json:"size_x"`
	SizeY float64 `json:"size_y"`
	SizeZ float64 `json:"size_z"`
}

// GeometryMetrics is the typed core of an analyzer's geometric report, with
// an Extras side channel for forward-compatible unknown keys (§9: "tagged
// unions... carry unknown keys in a side-channel extras map").
type GeometryMetrics struct {
	IsWatertight bool            `json:"is_watertight"`
	Volume       float64         `json:"volume"`
	SurfaceArea  float64         `json:"surface_area"`
	BoundingBox  BoundingBox     `json:"bounding_box"`
	CenterOfMass [3]float64      `json:"center_of_mass"`
	Extras       map[string]any  `json:"extras,omitempty"`
}

// SandboxEval is the evaluation artifact produced by the sandbox, analyzer,
// DFM, FEA, and renderer collaborators for one proposal (§3).
type SandboxEval struct {
	ExecutionSuccess bool               `json:"execution_success"`
	ExecutionError   string             `json:"execution_error,omitempty"`
	ArtifactPath     string             `json:"artifact_path,omitempty"`
	ImagePaths       []string           `json:"image_paths,omitempty"`
	GeometryMetrics  *GeometryMetrics   `json:"geometry_metrics,omitempty"`
	DFMIssues        []string           `json:"dfm_issues,omitempty"`
	DFMReport        map[string]any     `json:"dfm_report,omitempty"`
	RiskLevel        string             `json:"risk_level,omitempty"`
	RiskScore        float64            `json:"risk_score,omitempty"`
	GeometricDiff    map[string]float64 `json:"geometric_diff,omitempty"`
}

// FidelityScore is the blended 0-100 score for one proposal (§3, §4.9).
// Invariant: BlendedScore = 0.60*AlgorithmicScore + 0.40*LLMScore, clamped
// to [0,100] (P4).
type FidelityScore struct {
	ProposalID             string  `json:"proposal_id"`
	AlgorithmicScore       float64 `json:"algorithmic_score"`
	LLMScore               float64 `json:"llm_score"`
	BlendedScore           float64 `json:"blended_score"`
	TextSimilarity         float64 `json:"text_similarity"`
	GeometricAccuracy      float64 `json:"geometric_accuracy"`
	ManufacturingViability float64 `json:"manufacturing_viability"`
	Reasoning              string  `json:"reasoning,omitempty"`
	Passed                 bool    `json:"passed"`
}

// Proposal is one worker's attempt within a Round (§3).
type Proposal struct {
	ID                string         `json:"id"`
	Model             string         `json:"model"`
	Code              string         `json:"code,omitempty"`
	Reasoning         string         `json:"reasoning,omitempty"`
	Status            ProposalStatus `json:"status"`
	CritiquesReceived []Critique     `json:"critiques_received,omitempty"`
	SandboxEval       *SandboxEval   `json:"sandbox_eval,omitempty"`
	Fidelity          *FidelityScore `json:"fidelity,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Round is one iteration of the refinement loop (§3).
type Round struct {
	RoundNumber   int        `json:"round_number"`
	Proposals     []Proposal `json:"proposals,omitempty"`
	WinnerID      string     `json:"winner_id,omitempty"`
	MergedCode    string     `json:"merged_code,omitempty"`
	HumanApproved *bool      `json:"human_approved,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Constraints holds the supervisor's extracted design constraints (§4.3).
type Constraints struct {
	KeyConstraints      []string           `json:"key_constraints,omitempty"`
	CriticalDimensions  map[string]float64 `json:"critical_dimensions,omitempty"`
	ManufacturingNotes  []string           `json:"manufacturing_notes,omitempty"`
	Extras              map[string]any     `json:"extras,omitempty"`
}

// ScoreEntry is one proposal's blended score within a version summary.
type ScoreEntry struct {
	ProposalID string  `json:"proposal_id"`
	Model      string  `json:"model"`
	Blended    float64 `json:"blended"`
}

// VersionSummary is the per-round summary the merger appends to
// VersionHistory (§4.10).
type VersionSummary struct {
	Round         int          `json:"round"`
	ProposalCount int          `json:"proposal_count"`
	PassingCount  int          `json:"passing_count"`
	WinnerID      string       `json:"winner_id,omitempty"`
	Scores        []ScoreEntry `json:"scores,omitempty"`
}

// ScoreSnapshot is the per-round fidelity snapshot appended to ScoreHistory.
type ScoreSnapshot struct {
	Round  int          `json:"round"`
	Scores []ScoreEntry `json:"scores,omitempty"`
}

// DesignRecord is the top-level persisted entity for one pipeline execution
// (§3). Invariants: Status is monotone along the lattice above;
// Rounds[i].RoundNumber == i+1; FinalCode non-empty implies
// Status in {completed, failed}; len(VersionHistory) equals the number of
// completed rounds (P3).
type DesignRecord struct {
	ID                  string           `json:"id"`
	Prompt              string           `json:"prompt"`
	Specification       string           `json:"specification,omitempty"`
	Constraints         Constraints      `json:"constraints"`
	Status              Status           `json:"status"`
	Rounds              []Round          `json:"rounds,omitempty"`
	FinalCode           string           `json:"final_code,omitempty"`
	FinalArtifactPath   string           `json:"final_artifact_path,omitempty"`
	VersionHistory      []VersionSummary `json:"version_history,omitempty"`
	ScoreHistory        []ScoreSnapshot  `json:"score_history,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// CurrentRound returns a pointer to the last (most recently opened) round,
// or nil if no round has been prepared yet.
func (d *DesignRecord) CurrentRound() *Round {
	if len(d.Rounds) == 0 {
		return nil
	}
	return &d.Rounds[len(d.Rounds)-1]
}
