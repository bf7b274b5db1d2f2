package sandbox

import (
	"context"
	"fmt"

	"github.com/dshills/langgraph-go/graph/tool"
)

// Tool adapts an Executor into a graph/tool.Tool, so the proposal worker's
// bounded tool-using loop (§4.5) can dispatch to the sandbox the same way it
// would dispatch to any other tool.Tool.
type Tool struct {
	Executor Executor
}

var _ tool.Tool = (*Tool)(nil)

// Name implements tool.Tool.
func (t *Tool) Name() string { return ToolName }

// Call implements tool.Tool. input must carry a "code" string; an optional
// "output_path" string is passed through to the executor.
func (t *Tool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	code, _ := input["code"].(string)
	if code == "" {
		return nil, fmt.Errorf("sandbox tool: missing required \"code\" input")
	}
	outputPath, _ := input["output_path"].(string)

	result, err := t.Executor.Execute(ctx, code, outputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"success":           result.Success,
		"artifact_produced": result.ArtifactProduced,
		"artifact_path":     result.ArtifactPath,
		"stdout":            result.Stdout,
		"stderr":            result.Stderr,
		"error":             result.Error,
	}, nil
}

// Spec describes this tool for inclusion in the proposal worker's ToolSpec
// list (§4.5).
func Spec() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"code":        map[string]interface{}{"type": "string", "description": "the generated CAD code to execute"},
			"output_path": map[string]interface{}{"type": "string", "description": "optional output artifact path"},
		},
		"required": []string{"code"},
	}
}
