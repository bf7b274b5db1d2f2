package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cadforge/pipeline/adapters/renderer"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
)

// SandboxNode executes every completed proposal's code in isolation,
// analyzes the resulting geometry, runs the DFM and FEA checks, renders
// preview images, and (when a prior-round winner artifact exists) requests
// a geometric diff against it (§4.7). Proposals run concurrently via an
// internal worker pool, grounded on ReviewBatchNode.Run() exactly as the
// proposal and critique fan-out stages are — see DESIGN.md "Fan-out
// mechanism".
type SandboxNode struct {
	deps *Deps
}

func NewSandboxNode(deps *Deps) *SandboxNode {
	return &SandboxNode{deps: deps}
}

func (n *SandboxNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	round := record.CurrentRound()
	if round == nil {
		return graph.NodeResult[design.PipelineState]{
			Err: &graph.NodeError{Message: "sandbox: no open round", NodeID: NodeSandbox},
		}
	}

	startEvt := n.deps.emitEvent(record.ID, EvtSandboxRunning, map[string]interface{}{"round": round.RoundNumber})

	type outcome struct {
		index int
		eval  design.SandboxEval
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, n.deps.concurrency())
	results := make(chan outcome, len(round.Proposals))

	for i, p := range round.Proposals {
		if p.Status != design.ProposalCompleted {
			continue
		}
		wg.Add(1)
		go func(idx int, proposal design.Proposal) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- outcome{index: idx, eval: n.evaluate(ctx, record, proposal)}
		}(i, p)
	}

	wg.Wait()
	close(results)

	for r := range results {
		eval := r.eval
		round.Proposals[r.index].SandboxEval = &eval
	}

	next := NodeFidelityFanOut
	if n.deps.Config.DebateEnabled && len(validProposals(round)) > 1 {
		// §4.8: "(debate_enabled ∧ |valid| > 1) → critique fan-out else →
		// fidelity fan-out".
		next = NodeCritiqueFanOut
	}

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Record: record,
			Events: []emit.Event{startEvt, n.deps.emitEvent(record.ID, EvtSandboxCompleted, map[string]interface{}{
				"round": round.RoundNumber,
			})},
		},
		Route: graph.Goto(next),
	}
}

// validProposals returns pointers into round.Proposals for every "valid"
// proposal per §4.6: status completed and code non-empty.
func validProposals(round *design.Round) []*design.Proposal {
	var out []*design.Proposal
	for i := range round.Proposals {
		p := &round.Proposals[i]
		if p.Status == design.ProposalCompleted && p.Code != "" {
			out = append(out, p)
		}
	}
	return out
}

func (n *SandboxNode) evaluate(ctx context.Context, record design.DesignRecord, proposal design.Proposal) design.SandboxEval {
	eval := design.SandboxEval{}

	if n.deps.Sandbox == nil {
		eval.ExecutionError = "no sandbox executor configured"
		return eval
	}

	outputPath := filepath.Join(n.deps.ArtifactDir, record.ID, proposal.ID+".artifact")
	result, err := n.deps.Sandbox.Execute(ctx, proposal.Code, outputPath)
	if err != nil {
		eval.ExecutionError = err.Error()
		return eval
	}

	eval.ExecutionSuccess = result.Success
	eval.ExecutionError = result.Error
	eval.ArtifactPath = result.ArtifactPath

	if !result.Success || !result.ArtifactProduced {
		return eval
	}

	if n.deps.Analyzer != nil {
		if gm, err := n.deps.Analyzer.AnalyzeGeometry(ctx, result.ArtifactPath); err == nil {
			eval.GeometryMetrics = &gm
		}
		if dfm, err := n.deps.Analyzer.CheckDFM(ctx, result.ArtifactPath); err == nil {
			eval.DFMIssues = dfm.Issues
			eval.DFMReport = dfm.Extras
		}
		if fea, err := n.deps.Analyzer.RunFEA(ctx, result.ArtifactPath); err == nil {
			eval.RiskLevel = fea.RiskLevel
			eval.RiskScore = fea.RiskScore
		}
		// §4.7: "If a prior-round winner artifact exists, requests a
		// geometric diff."
		if record.CurrentRound() != nil {
			if prior := priorWinnerArtifact(record); prior != "" {
				if diff, err := n.deps.Analyzer.GeometricDiff(ctx, result.ArtifactPath, prior); err == nil {
					eval.GeometricDiff = diff
				}
			}
		}
	}

	if n.deps.Renderer != nil {
		opts := renderer.DefaultOptions()
		opts.OutputDir = filepath.Join(n.deps.ArtifactDir, record.ID, "renders")
		opts.Title = fmt.Sprintf("%s / %s", record.ID, proposal.Model)
		opts.Metrics = eval.GeometryMetrics
		if paths, err := n.deps.Renderer.Render(ctx, result.ArtifactPath, opts); err == nil {
			eval.ImagePaths = paths
		}
	}

	return eval
}

// priorWinnerArtifact finds the most recently completed round's winning
// artifact path, if any (§4.7).
func priorWinnerArtifact(record design.DesignRecord) string {
	if len(record.Rounds) < 2 {
		return ""
	}
	prior := record.Rounds[len(record.Rounds)-2]
	for _, p := range prior.Proposals {
		if p.ID == prior.WinnerID && p.SandboxEval != nil {
			return p.SandboxEval.ArtifactPath
		}
	}
	return ""
}
