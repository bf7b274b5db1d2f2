package design

import (
	"github.com/dshills/langgraph-go/graph/emit"
)

// InterruptPayload carries the human-approval request data across the
// suspend/resume boundary (§4.1 "Interrupt/resume", §4.12).
type InterruptPayload struct {
	DesignID     string `json:"design_id"`
	WinnerID     string `json:"winner_id"`
	Code         string `json:"code"`
	ArtifactPath string `json:"artifact_path"`
}

// ApprovalReply is the externally-supplied resume payload for the
// human-approval interrupt (§4.12).
type ApprovalReply struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

// PipelineState is the transient graph-execution value (§3 "PipelineState").
// It carries the DesignRecord plus the ephemeral reducer fields described in
// §4.1: overwrite fields, append fields, and transient (Send-overlay) fields.
//
// Record is handled as a single whole-object overwrite field: whichever node
// mutates the design record already holds (and returns) the authoritative
// latest copy, so the reducer simply replaces prev.Record with delta.Record
// when the delta carries one. See DESIGN.md "DesignRecord as a whole-object
// overwrite field".
type PipelineState struct {
	// Record is the durable DesignRecord snapshot. Overwrite field.
	Record DesignRecord

	// CurrentRound, WinnerCode, WinnerID, WinnerModel, PreviousArtifactPath,
	// and AccumulatedFeedback are overwrite fields (§4.1): latest write wins.
	CurrentRound         int
	WinnerCode           string
	WinnerID             string
	WinnerModel          string
	PreviousArtifactPath string
	AccumulatedFeedback  []string

	// Events, Critiques, ProposalResults, and FidelityResults are append
	// fields (§4.1): values accumulate in arrival order via a commutative
	// reducer. Critiques, ProposalResults, and FidelityResults are scoped to
	// the current round and cleared by prepare_round via
	// ClearRoundAccumulators.
	Events          []emit.Event
	Critiques       []Critique
	ProposalResults []Proposal
	FidelityResults []FidelityScore

	// WorkerModel and WorkerTarget are transient fields (§4.1): set only in
	// Send/fan-out overlays, never persisted, scoped to a single worker
	// invocation.
	WorkerModel  string
	WorkerTarget string

	// ClearRoundAccumulators is a transient signal set by prepare_round's
	// delta; the reducer resets the round-scoped append fields to nil before
	// folding in the rest of the delta.
	ClearRoundAccumulators bool

	// Interrupt, when non-nil, signals the executor to persist and suspend
	// (§4.1 "Interrupt/resume"). LearnerData is the learner's best-effort
	// output (§4.13), forwarded but never gating success.
	Interrupt   *InterruptPayload
	LearnerData string

	// Terminal marks that a node has produced a final completed/failed
	// status delta (§4.1 "Termination").
	Terminal bool
}

// Reduce is the graph.Reducer[PipelineState] instance (§4.1). It applies
// each node's delta onto the accumulated state using the per-field rules
// above. Grounded on examples/multi-llm-review/workflow/state.go's
// ReduceReviewState field-handling style (overwrite-if-nonzero,
// unconditional-append).
func Reduce(prev, delta PipelineState) PipelineState {
	next := prev

	if delta.ClearRoundAccumulators {
		next.Critiques = nil
		next.ProposalResults = nil
		next.FidelityResults = nil
	}

	if delta.Record.ID != "" {
		next.Record = delta.Record
	}
	if delta.CurrentRound != 0 {
		next.CurrentRound = delta.CurrentRound
	}
	if delta.WinnerCode != "" {
		next.WinnerCode = delta.WinnerCode
	}
	if delta.WinnerID != "" {
		next.WinnerID = delta.WinnerID
	}
	if delta.WinnerModel != "" {
		next.WinnerModel = delta.WinnerModel
	}
	if delta.PreviousArtifactPath != "" {
		next.PreviousArtifactPath = delta.PreviousArtifactPath
	}
	if delta.AccumulatedFeedback != nil {
		next.AccumulatedFeedback = delta.AccumulatedFeedback
	}

	next.Events = append(next.Events, delta.Events...)
	next.Critiques = append(next.Critiques, delta.Critiques...)
	next.ProposalResults = append(next.ProposalResults, delta.ProposalResults...)
	next.FidelityResults = append(next.FidelityResults, delta.FidelityResults...)

	// Transient fields carry only within the invocation that set them; a
	// worker's own delta may set them for its own bookkeeping, but they are
	// not meaningful once merged, so they are not propagated past the step
	// that produced them.
	next.WorkerModel = ""
	next.WorkerTarget = ""
	next.ClearRoundAccumulators = false

	if delta.Interrupt != nil {
		next.Interrupt = delta.Interrupt
	}
	if delta.LearnerData != "" {
		next.LearnerData = delta.LearnerData
	}
	if delta.Terminal {
		next.Terminal = true
	}

	return next
}
