package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"context"

	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/model"
	"github.com/cadforge/pipeline/jsonextract"
	"github.com/cadforge/pipeline/scoring"
)

// FidelityFanOutNode computes one blended FidelityScore per valid proposal
// (§4.9): a deterministic algorithmic sub-score from the SandboxEval plus a
// judge-model qualitative pass, blended 0.60/0.40. One worker per valid
// proposal, joined via the same internal pool pattern as the other fan-out
// stages.
type FidelityFanOutNode struct {
	deps *Deps
}

func NewFidelityFanOutNode(deps *Deps) *FidelityFanOutNode {
	return &FidelityFanOutNode{deps: deps}
}

func (n *FidelityFanOutNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	round := record.CurrentRound()
	if round == nil {
		return graph.NodeResult[design.PipelineState]{
			Err: &graph.NodeError{Message: "fidelity_fan_out: no open round", NodeID: NodeFidelityFanOut},
		}
	}

	valid := validProposals(round)

	var wg sync.WaitGroup
	sem := make(chan struct{}, n.deps.concurrency())
	results := make(chan design.FidelityScore, len(valid))
	var events []emit.Event

	for _, target := range valid {
		wg.Add(1)
		go func(p design.Proposal) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- n.score(ctx, record, p)
		}(*target)
	}

	wg.Wait()
	close(results)

	scores := make([]design.FidelityScore, 0, len(valid))
	for s := range results {
		scores = append(scores, s)
		events = append(events, n.deps.emitEvent(record.ID, EvtFidelitySettled, map[string]interface{}{
			"proposal_id": s.ProposalID,
			"blended":     s.BlendedScore,
			"passed":      s.Passed,
		}))
	}

	byID := make(map[string]design.FidelityScore, len(scores))
	for _, s := range scores {
		byID[s.ProposalID] = s
	}
	for i := range round.Proposals {
		if fs, ok := byID[round.Proposals[i].ID]; ok {
			cp := fs
			round.Proposals[i].Fidelity = &cp
		}
	}

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Record:          record,
			FidelityResults: scores,
			Events:          events,
		},
		Route: graph.Goto(NodeMerger),
	}
}

func (n *FidelityFanOutNode) score(ctx context.Context, record design.DesignRecord, p design.Proposal) design.FidelityScore {
	breakdown := scoring.Algorithmic(p.SandboxEval, record.Constraints.CriticalDimensions)

	fs := design.FidelityScore{
		ProposalID:             p.ID,
		AlgorithmicScore:       breakdown.Overall,
		ManufacturingViability: breakdown.DFMScore,
		GeometricAccuracy:      breakdown.DimensionScore,
	}

	if n.deps.JudgeModel == nil {
		fs.BlendedScore = scoring.Blend(fs.AlgorithmicScore, 0)
		fs.Passed = fs.BlendedScore >= n.deps.Config.FidelityThreshold
		return fs
	}

	messages := []model.Message{
		llm.System("You are the fidelity judge. Respond with a single JSON object containing \"llm_score\" (0-100), \"text_similarity\" (0-100), \"reasoning\" (string)."),
		llm.User(buildFidelityPrompt(record, p, breakdown)),
	}

	out := llm.SafeChat(ctx, n.deps.JudgeModel, messages, nil)

	var llmScore float64
	if !llm.IsError(out) {
		parsed := jsonextract.Parse(out.Text)
		llmScore = parsed.Float("llm_score", 0)
		fs.TextSimilarity = parsed.Float("text_similarity", 0)
		fs.Reasoning = parsed.String("reasoning", "")
	} else {
		fs.Reasoning = out.Text
	}

	fs.LLMScore = llmScore
	fs.BlendedScore = scoring.Blend(fs.AlgorithmicScore, fs.LLMScore)
	fs.Passed = fs.BlendedScore >= n.deps.Config.FidelityThreshold
	return fs
}

func buildFidelityPrompt(record design.DesignRecord, p design.Proposal, breakdown scoring.Breakdown) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Specification:\n%s\n\n", record.Specification)
	fmt.Fprintf(&b, "Proposal code (model %s):\n%s\n\n", p.Model, p.Code)
	fmt.Fprintf(&b, "Algorithmic sub-scores: dimension=%.2f volume=%.2f dfm=%.2f overall=%.2f (%s)\n",
		breakdown.DimensionScore, breakdown.VolumeScore, breakdown.DFMScore, breakdown.Overall, breakdown.DimensionNote)
	if p.SandboxEval != nil {
		fmt.Fprintf(&b, "Sandbox: execution_success=%v watertight=%v dfm_issues=%d risk=%s\n",
			p.SandboxEval.ExecutionSuccess,
			p.SandboxEval.GeometryMetrics != nil && p.SandboxEval.GeometryMetrics.IsWatertight,
			len(p.SandboxEval.DFMIssues), p.SandboxEval.RiskLevel)
		if len(p.SandboxEval.ImagePaths) > 0 {
			b.WriteString("Rendered preview images: ")
			b.WriteString(strings.Join(p.SandboxEval.ImagePaths, ", "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// sortScoresByProposalID gives deterministic, order-independent iteration
// over a round's score set for reporting (§8 P8).
func sortScoresByProposalID(scores []design.FidelityScore) []design.FidelityScore {
	out := append([]design.FidelityScore(nil), scores...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProposalID < out[j].ProposalID })
	return out
}
