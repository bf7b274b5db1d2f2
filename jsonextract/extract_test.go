package jsonextract

import (
	"reflect"
	"testing"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare_object", `{"a": 1}`, `{"a": 1}`},
		{"fenced_json", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced_no_lang", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"no_braces", "no json here", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractObject(tt.reply)
			if got != tt.want {
				t.Errorf("ExtractObject(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}

func TestExtractObject_OuterBracesOnly(t *testing.T) {
	// Scans from the first '{' to the last '}', so trailing prose after the
	// final brace is dropped but an object is still recovered.
	got := ExtractObject(`Sure, here it is: {"a": 1} hope that helps`)
	if got != `{"a": 1}` {
		t.Errorf("ExtractObject = %q, want %q", got, `{"a": 1}`)
	}
}

func TestParse_OK(t *testing.T) {
	r := Parse(`{"name": "bracket", "score": 91.5, "passed": true}`)
	if !r.OK() {
		t.Fatal("expected OK() true for valid object")
	}
	if got := r.String("name", "def"); got != "bracket" {
		t.Errorf("String(name) = %q, want %q", got, "bracket")
	}
	if got := r.Float("score", 0); got != 91.5 {
		t.Errorf("Float(score) = %v, want 91.5", got)
	}
	if got := r.Bool("passed", false); got != true {
		t.Errorf("Bool(passed) = %v, want true", got)
	}
}

func TestParse_NotOK_DefaultsUsed(t *testing.T) {
	r := Parse("not json at all")
	if r.OK() {
		t.Fatal("expected OK() false for unparseable reply")
	}
	if got := r.String("name", "fallback"); got != "fallback" {
		t.Errorf("String fallback = %q, want %q", got, "fallback")
	}
	if got := r.Float("score", -1); got != -1 {
		t.Errorf("Float fallback = %v, want -1", got)
	}
	if got := r.Bool("passed", true); got != true {
		t.Errorf("Bool fallback = %v, want true", got)
	}
	if got := r.StringSlice("items"); got != nil {
		t.Errorf("StringSlice fallback = %v, want nil", got)
	}
}

func TestResult_StringSlice(t *testing.T) {
	r := Parse(`{"strengths": ["clean", "parametric"]}`)
	got := r.StringSlice("strengths")
	want := []string{"clean", "parametric"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StringSlice = %v, want %v", got, want)
	}
}

func TestResult_StringSlice_WrongType(t *testing.T) {
	r := Parse(`{"strengths": "not an array"}`)
	if got := r.StringSlice("strengths"); got != nil {
		t.Errorf("StringSlice on non-array = %v, want nil", got)
	}
}

func TestResult_Floats(t *testing.T) {
	r := Parse(`{"dims": {"length": 100, "width": "not a number", "height": 5}}`)
	got := r.Floats("dims")
	want := map[string]float64{"length": 100, "height": 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Floats = %v, want %v", got, want)
	}
}

func TestResult_Floats_AbsentPath(t *testing.T) {
	r := Parse(`{"a": 1}`)
	if got := r.Floats("dims"); got != nil {
		t.Errorf("Floats on absent path = %v, want nil", got)
	}
}

func TestWithDefaults_BackfillsMissingKeys(t *testing.T) {
	raw := `{"name": "bracket"}`
	patched := WithDefaults(raw, map[string]any{
		"name":  "fallback-name",
		"score": 0.0,
	})
	r := Parse(patched)
	if got := r.String("name", ""); got != "bracket" {
		t.Errorf("existing key overwritten: got %q, want %q", got, "bracket")
	}
	if got := r.Float("score", -1); got != 0.0 {
		t.Errorf("missing key not backfilled: got %v, want 0", got)
	}
}

func TestWithDefaults_EmptyRaw(t *testing.T) {
	patched := WithDefaults("", map[string]any{"name": "x"})
	r := Parse(patched)
	if !r.OK() {
		t.Fatal("expected a valid object to be produced from empty raw")
	}
	if got := r.String("name", ""); got != "x" {
		t.Errorf("String(name) = %q, want %q", got, "x")
	}
}
