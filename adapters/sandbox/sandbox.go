// Package sandbox narrows the out-of-scope CAD-code sandbox collaborator to
// the port spec §6 describes: "execute(code, output_path?) -> { success,
// artifact_produced, artifact_path?, stdout, stderr, error? }.
// Side-effect-contained; must not mutate shared state."
package sandbox

import "context"

// Result is the sandbox's execution outcome. Errors are in-band (the Error
// field), matching the port contract: the sandbox never raises a Go error
// for a failed execution, only for adapter-level failures it cannot
// represent (e.g. the executor itself being unreachable).
type Result struct {
	Success          bool
	ArtifactProduced bool
	ArtifactPath     string
	Stdout           string
	Stderr           string
	Error            string
}

// Executor runs one proposal's generated code in isolation and reports the
// artifact it produced, if any.
type Executor interface {
	Execute(ctx context.Context, code string, outputPath string) (Result, error)
}

// ToolName is the name the proposal worker's bounded tool loop (§4.5) uses
// to invoke the sandbox from within an LLM tool-call turn.
const ToolName = "run_sandbox"
