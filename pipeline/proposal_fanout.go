package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/adapters/sandbox"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/model"
)

// maxToolIterations bounds the proposal worker's self-check tool loop
// (§4.5): a worker that keeps calling the sandbox tool without ever
// settling on a final text reply is cut off rather than looping forever.
const maxToolIterations = 10

// ProposalFanOutNode generates every configured proposal agent's CAD-code
// attempt for the current round concurrently (§4.5) and joins before
// routing on. Grounded directly on
// examples/multi-llm-review/workflow/nodes.go's ReviewBatchNode.Run(): one
// goroutine per collaborator, a buffered result channel, a WaitGroup join,
// then a single delta carrying every result — see DESIGN.md "Fan-out
// mechanism" for why this replaces a per-model engine-level Route.Many.
//
// When a sandbox executor is configured, a worker may call it mid-generation
// through a bounded tool loop to self-check that its code compiles before
// settling on a final answer (§4.5). This is a worker checking its own
// draft, not a scored evaluation: the separate sandbox evaluator node
// (§4.7) still re-executes and scores the submitted code independently, so
// a proposal is never judged by the proposing model grading its own output.
type ProposalFanOutNode struct {
	deps *Deps
}

func NewProposalFanOutNode(deps *Deps) *ProposalFanOutNode {
	return &ProposalFanOutNode{deps: deps}
}

func (n *ProposalFanOutNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	agents := n.deps.Config.ProposalAgents

	type workerOutcome struct {
		proposal design.Proposal
	}

	results := make(chan workerOutcome, len(agents))
	sem := make(chan struct{}, n.deps.concurrency())
	var wg sync.WaitGroup

	for _, agent := range agents {
		wg.Add(1)
		go func(modelName string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- workerOutcome{proposal: n.generate(ctx, record, state, modelName)}
		}(agent.Model)
	}

	wg.Wait()
	close(results)

	proposals := make([]design.Proposal, 0, len(agents))
	for r := range results {
		proposals = append(proposals, r.proposal)
	}

	evt := n.deps.emitEvent(record.ID, EvtProposalsSettled, map[string]interface{}{
		"round": state.CurrentRound,
		"count": len(proposals),
	})

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			ProposalResults: proposals,
			Events:          []emit.Event{evt},
		},
		Route: graph.Goto(NodeCollectProposals),
	}
}

func (n *ProposalFanOutNode) generate(ctx context.Context, record design.DesignRecord, state design.PipelineState, modelName string) design.Proposal {
	proposal := design.Proposal{
		ID:        design.NewProposalID(),
		Model:     modelName,
		Status:    design.ProposalGenerating,
		CreatedAt: nowUTC(),
	}

	client, ok := n.deps.ProposalModels[modelName]
	if !ok || client == nil {
		proposal.Status = design.ProposalFailed
		proposal.Reasoning = "no client configured for model " + modelName
		n.deps.emitEvent(record.ID, EvtProposalSettled, map[string]interface{}{
			"model": modelName, "proposal_id": proposal.ID, "status": string(proposal.Status),
		})
		return proposal
	}

	messages := []model.Message{
		llm.System("You are a CAD-code proposal worker competing against other models. Respond with working source code plus a short reasoning section."),
		llm.User(buildProposalPrompt(record, state)),
	}

	var tools []model.ToolSpec
	var sandboxTool *sandbox.Tool
	if n.deps.Sandbox != nil {
		sandboxTool = &sandbox.Tool{Executor: n.deps.Sandbox}
		tools = []model.ToolSpec{{
			Name:        sandbox.ToolName,
			Description: "Execute the draft CAD code in an isolated sandbox to check it compiles and produces geometry before submitting a final answer.",
			Schema:      sandbox.Spec(),
		}}
	}

	out := n.runToolLoop(ctx, client, messages, tools, sandboxTool)
	if llm.IsError(out) {
		proposal.Status = design.ProposalFailed
		proposal.Reasoning = out.Text
	} else {
		code, reasoning := splitCodeAndReasoning(out.Text)
		proposal.Code = code
		proposal.Reasoning = reasoning
		proposal.Status = design.ProposalCompleted
	}

	n.deps.emitEvent(record.ID, EvtProposalSettled, map[string]interface{}{
		"model": modelName, "proposal_id": proposal.ID, "status": string(proposal.Status),
	})
	return proposal
}

// runToolLoop drives the bounded tool-call/response cycle (§4.5): each
// round, the model either settles on a text reply (loop ends) or requests
// the sandbox tool, whose result is folded back in as a user message for
// the next round. A model that never requests the tool returns on the
// first iteration, unaffected.
func (n *ProposalFanOutNode) runToolLoop(ctx context.Context, client llm.Client, messages []model.Message, tools []model.ToolSpec, sandboxTool *sandbox.Tool) model.ChatOut {
	var out model.ChatOut
	for i := 0; i < maxToolIterations; i++ {
		out = llm.SafeChat(ctx, client, messages, tools)
		if llm.IsError(out) || len(out.ToolCalls) == 0 || sandboxTool == nil {
			return out
		}

		messages = append(messages, llm.Assistant(out.Text))
		for _, call := range out.ToolCalls {
			result, err := sandboxTool.Call(ctx, call.Input)
			messages = append(messages, llm.User(formatToolResult(call.Name, result, err)))
		}
	}
	return out
}

func formatToolResult(toolName string, result map[string]interface{}, err error) string {
	if err != nil {
		return "Tool " + toolName + " failed: " + err.Error()
	}
	encoded, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return "Tool " + toolName + " result could not be encoded: " + marshalErr.Error()
	}
	return "Tool " + toolName + " result:\n" + string(encoded)
}

func buildProposalPrompt(record design.DesignRecord, state design.PipelineState) string {
	var b strings.Builder
	b.WriteString("Specification:\n")
	b.WriteString(record.Specification)
	b.WriteString("\n\n")

	if len(record.Constraints.KeyConstraints) > 0 {
		b.WriteString("Key constraints:\n")
		for _, c := range record.Constraints.KeyConstraints {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if state.WinnerCode != "" {
		b.WriteString("Prior round's winning code (improve on this):\n")
		b.WriteString(state.WinnerCode)
		b.WriteString("\n\n")
	}

	if len(state.AccumulatedFeedback) > 0 {
		b.WriteString("Feedback from the prior round's critique to address:\n")
		for _, fb := range state.AccumulatedFeedback {
			b.WriteString("- ")
			b.WriteString(fb)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Respond with the full source code, followed by a \"Reasoning:\" section explaining your design choices.")
	return b.String()
}

// splitCodeAndReasoning separates a worker reply into its code and
// reasoning halves on the first "Reasoning:" marker, tolerating replies
// that omit the marker entirely by treating the whole reply as code.
func splitCodeAndReasoning(reply string) (code, reasoning string) {
	idx := strings.Index(reply, "Reasoning:")
	if idx == -1 {
		return strings.TrimSpace(reply), ""
	}
	return strings.TrimSpace(reply[:idx]), strings.TrimSpace(reply[idx+len("Reasoning:"):])
}
