package pipeline

import (
	"time"

	"github.com/cadforge/pipeline/adapters/analyzer"
	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/adapters/renderer"
	"github.com/cadforge/pipeline/adapters/sandbox"
	"github.com/cadforge/pipeline/adapters/vault"
	"github.com/cadforge/pipeline/config"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
)

// Deps bundles the pipeline's external collaborators and configuration.
// Every node constructor in this package closes over a *Deps rather than
// reaching for globals, so a single process can run many independent
// pipelines concurrently (spec §1 "cross-design concurrency control" is a
// non-goal precisely because each *Deps-rooted graph.Engine instance is
// already fully independent).
type Deps struct {
	Config config.PipelineConfig

	SupervisorModel llm.Client
	JudgeModel      llm.Client
	MergerModel     llm.Client
	LearnerModel    llm.Client
	// ProposalModels maps a configured proposal agent's model name to its
	// LLM client; critique fan-out reuses these same clients as peer critics
	// (§4.8), so there is no separate critique-model field.
	ProposalModels map[string]llm.Client

	Sandbox  sandbox.Executor
	Analyzer analyzer.Analyzer
	Renderer renderer.Renderer
	Vault    vault.Indexer

	// ArtifactDir roots where rendered images are written.
	ArtifactDir string
	// FanOutConcurrency bounds the internal worker pools used by the
	// proposal, sandbox, critique and fidelity nodes (§5 "Worker Pool...
	// bounded").
	FanOutConcurrency int

	Emitter emit.Emitter
	// Metrics, when set, is registered on the built engine via
	// graph.WithMetrics so every node step's latency, retries, queue depth,
	// and merge conflicts are recorded against it (see graph.NewPrometheusMetrics
	// and BuildGraph). Left nil, the engine runs without metrics collection.
	Metrics *graph.PrometheusMetrics
}

func (d *Deps) concurrency() int {
	if d.FanOutConcurrency > 0 {
		return d.FanOutConcurrency
	}
	return 4
}

func newEvent(designID, msg string, meta map[string]interface{}) emit.Event {
	return emit.Event{RunID: designID, Msg: msg, Meta: meta}
}

// emitEvent records an event onto the design's persisted event log (the
// caller folds the returned value into its NodeResult delta) and, when an
// Emitter is configured, also pushes it live onto the observability stream
// immediately, independent of the graph engine's own node-level events.
func (d *Deps) emitEvent(designID, msg string, meta map[string]interface{}) emit.Event {
	evt := newEvent(designID, msg, meta)
	if d.Emitter != nil {
		d.Emitter.Emit(evt)
	}
	return evt
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
