package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/model"
	"github.com/cadforge/pipeline/jsonextract"
)

// MergerNode selects (or synthesizes) the round's winner from the fidelity
// scores (§4.10): zero passing rejects everything and accumulates feedback
// for the next round, exactly one passing promotes it directly, two or more
// passing asks the merger model to select or synthesize.
type MergerNode struct {
	deps *Deps
}

func NewMergerNode(deps *Deps) *MergerNode {
	return &MergerNode{deps: deps}
}

func (n *MergerNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	round := record.CurrentRound()
	if round == nil {
		return graph.NodeResult[design.PipelineState]{
			Err: &graph.NodeError{Message: "merger: no open round", NodeID: NodeMerger},
		}
	}

	startEvt := n.deps.emitEvent(record.ID, EvtMergerRunning, map[string]interface{}{"round": round.RoundNumber})

	passing := passingProposals(round)
	summary := design.VersionSummary{
		Round:         round.RoundNumber,
		ProposalCount: len(round.Proposals),
		PassingCount:  len(passing),
		Scores:        scoreEntries(round),
	}

	var delta design.PipelineState
	var events []emit.Event
	events = append(events, startEvt)

	switch {
	case len(passing) == 0:
		rejectAll(round)
		feedback := collectFeedback(round)
		record.VersionHistory = append(record.VersionHistory, summary)
		events = append(events, n.deps.emitEvent(record.ID, EvtMergerNoWinner, map[string]interface{}{"round": round.RoundNumber}))
		delta = design.PipelineState{
			Record:              record,
			AccumulatedFeedback: feedback,
		}

	case len(passing) == 1:
		winner := passing[0]
		markSelected(round, winner.ID)
		summary.WinnerID = winner.ID
		record.VersionHistory = append(record.VersionHistory, summary)
		delta = design.PipelineState{
			Record:               record,
			WinnerCode:           winner.Code,
			WinnerID:             winner.ID,
			WinnerModel:          winner.Model,
			PreviousArtifactPath: artifactPath(winner),
		}

	default:
		winnerID, winnerModel, winnerCode := n.resolveMultiple(ctx, record, passing)
		markSelected(round, winnerID)
		summary.WinnerID = winnerID
		record.VersionHistory = append(record.VersionHistory, summary)
		delta = design.PipelineState{
			Record:               record,
			WinnerCode:           winnerCode,
			WinnerID:             winnerID,
			WinnerModel:          winnerModel,
			PreviousArtifactPath: winnerArtifactByID(round, winnerID),
		}
	}

	events = append(events, n.deps.emitEvent(record.ID, EvtMergerCompleted, map[string]interface{}{
		"round":         round.RoundNumber,
		"passing_count": len(passing),
	}))
	delta.Events = events

	return graph.NodeResult[design.PipelineState]{
		Delta: delta,
		// Zero-value Route falls through to the conditional edges registered
		// in graph.go's BuildGraph for NodeMerger (§4.11): winner_code
		// non-empty routes to human_approval/learner, empty routes to
		// prepare_round (if budget remains) or finalize_failed.
	}
}

// resolveMultiple asks the merger model to select or synthesize among ≥2
// passing proposals, falling back to the highest blended score (tie-break:
// lowest id) on any parse failure or unknown selected id (§4.10, §8 P7).
func (n *MergerNode) resolveMultiple(ctx context.Context, record design.DesignRecord, passing []*design.Proposal) (winnerID, winnerModel, winnerCode string) {
	fallback := func() (string, string, string) {
		best := highestScoring(passing)
		return best.ID, best.Model, best.Code
	}

	if n.deps.MergerModel == nil {
		return fallback()
	}

	messages := []model.Message{
		llm.System("You are the merger. Respond with a single JSON object: {\"decision\": \"select\"|\"merge\", \"selected_proposal_id\"?: string, \"merged_code\"?: string, \"reasoning\": string}."),
		llm.User(buildMergerPrompt(record, passing)),
	}

	out := llm.SafeChat(ctx, n.deps.MergerModel, messages, nil)
	if llm.IsError(out) {
		return fallback()
	}

	parsed := jsonextract.Parse(out.Text)
	if !parsed.OK() {
		return fallback()
	}

	switch parsed.String("decision", "") {
	case "merge":
		merged := parsed.String("merged_code", "")
		if merged == "" {
			return fallback()
		}
		return "merged", "merged", merged
	case "select":
		id := parsed.String("selected_proposal_id", "")
		for _, p := range passing {
			if p.ID == id {
				return p.ID, p.Model, p.Code
			}
		}
		return fallback()
	default:
		return fallback()
	}
}

func buildMergerPrompt(record design.DesignRecord, passing []*design.Proposal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Specification:\n%s\n\nPassing proposals:\n", record.Specification)
	for _, p := range passing {
		blended := 0.0
		if p.Fidelity != nil {
			blended = p.Fidelity.BlendedScore
		}
		fmt.Fprintf(&b, "- id=%s model=%s blended_score=%.2f\n%s\n\n", p.ID, p.Model, blended, p.Code)
	}
	return b.String()
}

func passingProposals(round *design.Round) []*design.Proposal {
	var out []*design.Proposal
	for i := range round.Proposals {
		p := &round.Proposals[i]
		if p.Fidelity != nil && p.Fidelity.Passed {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// highestScoring returns the passing proposal with the greatest blended
// score, tie-broken by the lexicographically smaller id (§4.9, §8 P7).
func highestScoring(passing []*design.Proposal) *design.Proposal {
	best := passing[0]
	for _, p := range passing[1:] {
		if p.Fidelity.BlendedScore > best.Fidelity.BlendedScore {
			best = p
			continue
		}
		if p.Fidelity.BlendedScore == best.Fidelity.BlendedScore && p.ID < best.ID {
			best = p
		}
	}
	return best
}

func rejectAll(round *design.Round) {
	for i := range round.Proposals {
		if round.Proposals[i].Status == design.ProposalCompleted {
			round.Proposals[i].Status = design.ProposalRejected
		}
	}
}

func markSelected(round *design.Round, winnerID string) {
	round.WinnerID = winnerID
	for i := range round.Proposals {
		switch {
		case round.Proposals[i].ID == winnerID:
			round.Proposals[i].Status = design.ProposalSelected
		case round.Proposals[i].Status == design.ProposalCompleted:
			round.Proposals[i].Status = design.ProposalRejected
		}
	}
}

func collectFeedback(round *design.Round) []string {
	var feedback []string
	for _, p := range round.Proposals {
		if p.Reasoning != "" {
			feedback = append(feedback, p.Reasoning)
		}
		for _, c := range p.CritiquesReceived {
			feedback = append(feedback, c.Weaknesses...)
		}
	}
	return feedback
}

func scoreEntries(round *design.Round) []design.ScoreEntry {
	entries := make([]design.ScoreEntry, 0, len(round.Proposals))
	for _, p := range round.Proposals {
		if p.Fidelity == nil {
			continue
		}
		entries = append(entries, design.ScoreEntry{ProposalID: p.ID, Model: p.Model, Blended: p.Fidelity.BlendedScore})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ProposalID < entries[j].ProposalID })
	return entries
}

func artifactPath(p *design.Proposal) string {
	if p.SandboxEval == nil {
		return ""
	}
	return p.SandboxEval.ArtifactPath
}

func winnerArtifactByID(round *design.Round, winnerID string) string {
	if winnerID == "merged" {
		return ""
	}
	for i := range round.Proposals {
		if round.Proposals[i].ID == winnerID {
			return artifactPath(&round.Proposals[i])
		}
	}
	return ""
}
