package pipeline

import (
	"fmt"

	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/store"
)

// BuildGraph wires every node declared in §4.3-§4.15 into a
// graph.Engine[design.PipelineState]. It deliberately never calls
// graph.WithMaxConcurrent (see DESIGN.md "Fan-out mechanism"): the
// top-level graph stays on the engine's sequential Run() path, where every
// node's delta is merged before the next node's edges are evaluated, and
// all data-parallel fan-out happens inside ProposalFanOutNode,
// CritiqueFanOutNode, and FidelityFanOutNode's own internal worker pools.
func BuildGraph(deps *Deps, st store.Store[design.PipelineState]) (*graph.Engine[design.PipelineState], error) {
	var opts []interface{}
	if deps.Metrics != nil {
		opts = append(opts, graph.WithMetrics(deps.Metrics))
	}
	engine := graph.New[design.PipelineState](design.Reduce, st, deps.Emitter, opts...)

	nodes := map[string]graph.Node[design.PipelineState]{
		NodeSupervisor:       NewSupervisorNode(deps),
		NodePrepareRound:     NewPrepareRoundNode(deps),
		NodeProposalFanOut:   NewProposalFanOutNode(deps),
		NodeCollectProposals: NewCollectProposalsNode(deps),
		NodeSandbox:          NewSandboxNode(deps),
		NodeCritiqueFanOut:   NewCritiqueFanOutNode(deps),
		NodeCollectCritiques: NewCollectCritiquesNode(deps),
		NodeFidelityFanOut:   NewFidelityFanOutNode(deps),
		NodeMerger:           NewMergerNode(deps),
		NodeHumanApproval:    NewHumanApprovalNode(deps),
		NodeLearner:          NewLearnerNode(deps),
		NodeVaultIndex:       NewVaultIndexNode(deps),
		NodeFinalizeSuccess:  NewFinalizeSuccessNode(deps),
		NodeFinalizeFailed:   NewFinalizeFailedNode(deps),
	}

	for id, node := range nodes {
		if err := engine.Add(id, node); err != nil {
			return nil, fmt.Errorf("pipeline: add node %s: %w", id, err)
		}
	}

	if err := engine.StartAt(NodeSupervisor); err != nil {
		return nil, fmt.Errorf("pipeline: start node: %w", err)
	}

	edges := []struct {
		from, to string
		when     graph.Predicate[design.PipelineState]
	}{
		// §4.11 Post-merger routing. Evaluated in this order: the first
		// matching edge wins, so the human-approval-required branch must be
		// registered before the unconditional learner fallthrough.
		{NodeMerger, NodeHumanApproval, func(s design.PipelineState) bool {
			return s.WinnerCode != "" && deps.Config.HumanApprovalRequired
		}},
		{NodeMerger, NodeLearner, func(s design.PipelineState) bool {
			return s.WinnerCode != ""
		}},
		{NodeMerger, NodePrepareRound, func(s design.PipelineState) bool {
			return s.WinnerCode == "" && s.CurrentRound < deps.Config.MaxRounds
		}},
		{NodeMerger, NodeFinalizeFailed, nil},

		// §4.12 resumed approval continues to the learner; rejection is
		// sealed directly by ApplyApprovalReply without re-entering the
		// graph, so no edge is needed for the rejection path here.
		{NodeHumanApproval, NodeLearner, func(s design.PipelineState) bool {
			return s.Interrupt == nil
		}},
	}

	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		key := e.from + "->" + e.to
		if seen[key] {
			return nil, fmt.Errorf("pipeline: duplicate edge %s", key)
		}
		seen[key] = true
		if _, ok := nodes[e.from]; !ok {
			return nil, fmt.Errorf("pipeline: edge from unknown node %s", e.from)
		}
		if _, ok := nodes[e.to]; !ok {
			return nil, fmt.Errorf("pipeline: edge to unknown node %s", e.to)
		}
		if err := engine.Connect(e.from, e.to, e.when); err != nil {
			return nil, fmt.Errorf("pipeline: connect %s: %w", key, err)
		}
	}

	if err := validateReachability(nodes, edges); err != nil {
		return nil, err
	}

	return engine, nil
}

// validateReachability rejects a wiring mistake the spec's source calls out
// by name (§9 "duplicated graph edges and unreachable node path"): each of
// the merger's §4.11 targets (human approval, learner, prepare-round,
// finalize-failed) must be reachable through the registered edges. Nodes
// reached only through a Route returned by Run are not checked.
func validateReachability(nodes map[string]graph.Node[design.PipelineState], edges []struct {
	from, to string
	when     graph.Predicate[design.PipelineState]
}) error {
	// Edges registered via Connect() are only half the graph: most routing
	// here is explicit Route: graph.Goto(...) returned by node.Run(), which
	// graph.Engine cannot introspect ahead of time. The static check below
	// therefore only covers the Connect()-based §4.11 sub-graph; the
	// remaining static shape is exercised by the node unit tests (each node
	// asserts its own Route target).
	reachable := map[string]bool{NodeSupervisor: true, NodeMerger: true}
	for _, e := range edges {
		if reachable[e.from] {
			reachable[e.to] = true
		}
	}
	for _, required := range []string{NodeHumanApproval, NodeLearner, NodePrepareRound, NodeFinalizeFailed} {
		if !reachable[required] {
			return fmt.Errorf("pipeline: node %s unreachable from merger edges", required)
		}
	}
	return nil
}
