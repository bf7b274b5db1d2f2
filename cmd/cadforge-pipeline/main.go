// Command cadforge-pipeline runs one competitive multi-agent CAD design
// pipeline execution end to end, demonstrating the suspend/resume shape at
// the human-approval gate the same way
// examples/human_in_the_loop/main.go demonstrates it for its toy
// ApprovalState.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/cadforge/pipeline/adapters/analyzer"
	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/adapters/renderer"
	"github.com/cadforge/pipeline/adapters/sandbox"
	"github.com/cadforge/pipeline/adapters/vault"
	"github.com/cadforge/pipeline/config"
	"github.com/cadforge/pipeline/design"
	"github.com/cadforge/pipeline/designstore"
	"github.com/cadforge/pipeline/pipeline"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/model/anthropic"
	"github.com/dshills/langgraph-go/graph/model/google"
	"github.com/dshills/langgraph-go/graph/model/openai"
	"github.com/dshills/langgraph-go/graph/store"
)

func main() {
	configPath := flag.String("config", "pipeline.yaml", "path to the pipeline config YAML file")
	prompt := flag.String("prompt", "", "the design prompt to run (required)")
	artifactDir := flag.String("artifact-dir", "./artifacts", "directory for sandbox artifacts and renders")
	designStoreDir := flag.String("design-store", "./designs", "directory for persisted DesignRecord JSON files")
	tracing := flag.Bool("tracing", false, "emit OpenTelemetry spans instead of plain log lines")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090) and record engine metrics")
	flag.Parse()

	if *prompt == "" {
		log.Fatal("cadforge-pipeline: -prompt is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("cadforge-pipeline: load config: %v", err)
	}

	records, err := designstore.NewFileStore(*designStoreDir)
	if err != nil {
		log.Fatalf("cadforge-pipeline: open design store: %v", err)
	}

	deps := &pipeline.Deps{
		Config:            cfg,
		SupervisorModel:   resolveClient(cfg.SupervisorModel),
		JudgeModel:        resolveClient(cfg.JudgeModel),
		MergerModel:       resolveClient(cfg.MergerModel),
		LearnerModel:      resolveClient(cfg.SupervisorModel),
		ProposalModels:    resolveProposalClients(cfg),
		Sandbox:           &sandbox.MockExecutor{},
		Analyzer:          &analyzer.Mock{},
		Renderer:          renderer.SVGRenderer{},
		Vault:             &vault.Mock{},
		ArtifactDir:       *artifactDir,
		FanOutConcurrency: 4,
		Emitter:           resolveEmitter(*tracing),
		Metrics:           resolveMetrics(*metricsAddr),
	}

	checkpoints := store.NewMemStore[design.PipelineState]()
	engine, err := pipeline.BuildGraph(deps, checkpoints)
	if err != nil {
		log.Fatalf("cadforge-pipeline: build graph: %v", err)
	}

	ctx := context.Background()
	record := design.DesignRecord{
		ID:        design.NewDesignID(),
		Prompt:    *prompt,
		Status:    design.StatusDraft,
		CreatedAt: nowUTC(),
		UpdatedAt: nowUTC(),
	}

	runID := record.ID
	final, err := engine.Run(ctx, runID, design.PipelineState{Record: record})
	if err != nil {
		log.Fatalf("cadforge-pipeline: run: %v", err)
	}

	final = maybeResumeForApproval(ctx, deps, engine, checkpoints, records, runID, final)

	if err := records.Save(ctx, final.Record); err != nil {
		log.Fatalf("cadforge-pipeline: save design record: %v", err)
	}

	report(final)
}

// maybeResumeForApproval implements the suspend/resume loop: while the run
// halted on a human-approval interrupt, prompt for a decision on the
// terminal, fold it in via pipeline.ApplyApprovalReply, persist the design
// record so a rejection or crash before resume is never lost (§4.2, §4.12),
// and re-enter the engine from the last checkpoint — grounded on
// examples/human_in_the_loop/main.go's LoadLatest -> mutate ->
// RunWithCheckpoint shape.
func maybeResumeForApproval(
	ctx context.Context,
	deps *pipeline.Deps,
	engine *graph.Engine[design.PipelineState],
	checkpoints store.Store[design.PipelineState],
	records *designstore.FileStore,
	runID string,
	final design.PipelineState,
) design.PipelineState {
	for final.Interrupt != nil {
		if err := records.Save(ctx, final.Record); err != nil {
			log.Fatalf("cadforge-pipeline: save before approval: %v", err)
		}

		approved, feedback := promptForApproval(final)

		latestState, latestStep, err := checkpoints.LoadLatest(ctx, runID)
		if err != nil {
			log.Fatalf("cadforge-pipeline: load latest checkpoint: %v", err)
		}

		resumed := pipeline.ApplyApprovalReply(deps, latestState, design.ApprovalReply{
			Approved: approved,
			Feedback: feedback,
		})

		if resumed.Terminal {
			return resumed
		}

		checkpoint := store.CheckpointV2[design.PipelineState]{
			RunID:  runID,
			StepID: latestStep,
			State:  resumed,
		}

		final, err = engine.RunWithCheckpoint(ctx, checkpoint)
		if err != nil {
			log.Fatalf("cadforge-pipeline: resume: %v", err)
		}
	}
	return final
}

func promptForApproval(state design.PipelineState) (approved bool, feedback string) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\nRound winner %s (model %s) awaits approval.\n", state.WinnerID, state.WinnerModel)
	fmt.Print("Approve? (y/n): ")
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	approved = response == "y" || response == "yes"

	fmt.Print("Feedback (optional): ")
	fb, _ := reader.ReadString('\n')
	return approved, strings.TrimSpace(fb)
}

func report(final design.PipelineState) {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("design %s finished with status %s\n", final.Record.ID, final.Record.Status)
	if final.Record.Status == design.StatusCompleted {
		fmt.Printf("final artifact: %s\n", final.Record.FinalArtifactPath)
	}
	fmt.Println(strings.Repeat("=", 72))
}

// resolveClient picks a concrete graph/model provider by a conventional
// model-name prefix, reading API keys from the environment. An empty
// modelName yields a nil client, which every pipeline node already treats
// as "collaborator not configured" and degrades around (§7).
func resolveClient(modelName string) llm.Client {
	if modelName == "" {
		return nil
	}
	switch {
	case strings.HasPrefix(modelName, "claude"):
		return anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), modelName)
	case strings.HasPrefix(modelName, "gpt"):
		return openai.NewChatModel(os.Getenv("OPENAI_API_KEY"), modelName)
	case strings.HasPrefix(modelName, "gemini"):
		return google.NewChatModel(os.Getenv("GOOGLE_API_KEY"), modelName)
	default:
		return anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), modelName)
	}
}

// resolveEmitter picks the observability emitter: OpenTelemetry spans when
// -tracing is set (one span per event, attributed with runID/step/nodeID -
// see graph/emit.OTelEmitter), plain stdout log lines otherwise.
func resolveEmitter(tracing bool) emit.Emitter {
	if tracing {
		return emit.NewOTelEmitter(otel.Tracer("cadforge-pipeline"))
	}
	return emit.NewLogEmitter(os.Stdout, false)
}

// resolveMetrics registers a *graph.PrometheusMetrics against a fresh
// registry and serves it over HTTP when -metrics-addr is set, grounded on
// the teacher's own prometheus_monitoring example (NewPrometheusMetrics +
// promhttp.HandlerFor on a dedicated registry, served from a background
// goroutine). Returns nil when metricsAddr is empty, leaving the engine to
// run without metrics collection.
func resolveMetrics(metricsAddr string) *graph.PrometheusMetrics {
	if metricsAddr == "" {
		return nil
	}
	registry := prometheus.NewRegistry()
	metrics := graph.NewPrometheusMetrics(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("cadforge-pipeline: metrics server stopped: %v", err)
		}
	}()

	return metrics
}

func resolveProposalClients(cfg config.PipelineConfig) map[string]llm.Client {
	clients := make(map[string]llm.Client, len(cfg.ProposalAgents))
	for _, agent := range cfg.ProposalAgents {
		clients[agent.Model] = resolveClient(agent.Model)
	}
	return clients
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
