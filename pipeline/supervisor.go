package pipeline

import (
	"context"
	"strings"

	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/model"
	"github.com/cadforge/pipeline/jsonextract"
)

// SupervisorNode turns the raw design prompt into a specification plus
// extracted constraints (§4.3). It consults the vault for prior-design
// context when one is configured, but never fails the run if the vault or
// the model misbehaves: a vault miss just means no kb_context.
type SupervisorNode struct {
	deps *Deps
}

func NewSupervisorNode(deps *Deps) *SupervisorNode {
	return &SupervisorNode{deps: deps}
}

func (n *SupervisorNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record

	var kbContext string
	if n.deps.Vault != nil {
		if results, err := n.deps.Vault.Search(ctx, record.Prompt, 3); err == nil {
			var b strings.Builder
			for i, r := range results {
				if i > 0 {
					b.WriteString("\n---\n")
				}
				b.WriteString(r.Text)
			}
			kbContext = b.String()
		}
	}

	prompt := buildSupervisorPrompt(record.Prompt, kbContext)
	messages := []model.Message{
		llm.System("You are the supervisor stage of a competitive design pipeline. Respond with JSON only."),
		llm.User(prompt),
	}

	startEvt := n.deps.emitEvent(record.ID, EvtSupervisorRunning, nil)
	out := model.ChatOut{Text: "Error: no supervisor model configured"}
	if n.deps.SupervisorModel != nil {
		out = llm.SafeChat(ctx, n.deps.SupervisorModel, messages, nil)
	}

	record.Status = design.StatusSupervising
	record.UpdatedAt = nowUTC()

	if llm.IsError(out) {
		// §4.3 fallback: a collaborator failure still lets the run proceed
		// with the raw prompt as the specification.
		record.Specification = record.Prompt
		return graph.NodeResult[design.PipelineState]{
			Delta: design.PipelineState{
				Record: record,
				Events: []emit.Event{startEvt, n.deps.emitEvent(record.ID, EvtSupervisorCompleted, map[string]interface{}{
					"fallback": true,
					"reason":   out.Text,
				})},
			},
			Route: graph.Goto(NodePrepareRound),
		}
	}

	parsed := jsonextract.Parse(out.Text)
	spec := parsed.String("specification", "")
	if spec == "" {
		// §4.3: "If parsing fails, the raw reply becomes specification and
		// constraint fields default to empty; execution proceeds."
		spec = out.Text
	}

	record.Specification = spec
	record.Constraints = design.Constraints{
		KeyConstraints:     parsed.StringSlice("key_constraints"),
		ManufacturingNotes: parsed.StringSlice("manufacturing_notes"),
		CriticalDimensions: parsed.Floats("critical_dimensions"),
	}

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Record: record,
			Events: []emit.Event{startEvt, n.deps.emitEvent(record.ID, EvtSupervisorCompleted, map[string]interface{}{
				"parsed": parsed.OK(),
			})},
		},
		Route: graph.Goto(NodePrepareRound),
	}
}

func buildSupervisorPrompt(prompt, kbContext string) string {
	var b strings.Builder
	b.WriteString("Analyze the following design request and respond with a single JSON object ")
	b.WriteString("containing the keys \"specification\" (string), \"key_constraints\" (array of strings), ")
	b.WriteString("\"manufacturing_notes\" (array of strings), and \"critical_dimensions\" ")
	b.WriteString("(object mapping dimension name to a numeric value, e.g. \"base_length\": 120.0).\n\n")
	if kbContext != "" {
		b.WriteString("Relevant prior design context:\n")
		b.WriteString(kbContext)
		b.WriteString("\n\n")
	}
	b.WriteString("Design request:\n")
	b.WriteString(prompt)
	return b.String()
}
