// Package jsonextract centralizes the pipeline's single permissive
// JSON-extraction strategy (spec §9 "Model reply parsing": "The source
// extracts JSON from model replies with a permissive best-effort scan (strip
// fences, find first `{` / last `}`, parse). Keep this strategy behind a
// single utility; do not guess missing fields — substitute documented
// defaults.").
package jsonextract

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ExtractObject scans reply for a single JSON object: it strips Markdown
// code fences (```json ... ``` or ``` ... ```), then returns the substring
// from the first '{' to the last '}'. It returns "" if no brace pair is
// found. It never errors — malformed input just yields an empty or partial
// result for the caller to default around.
func ExtractObject(reply string) string {
	s := stripFences(reply)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	// Drop the opening fence line (``` or ```json) and a trailing fence line.
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Result wraps a best-effort parsed reply for tolerant, typed field access.
// Every accessor takes an explicit default and never panics or errors.
type Result struct {
	raw string
	ok  bool
}

// Parse extracts the first-'{'-to-last-'}' span of reply (see ExtractObject;
// braces are not balanced, so trailing text after a second object is kept
// and the result then fails validation) and wraps it for
// tolerant access. Parse never fails; Result.OK reports whether an object
// was found at all (a reply with no object at all still yields usable
// zero/default values from every accessor).
func Parse(reply string) Result {
	obj := ExtractObject(reply)
	return Result{raw: obj, ok: obj != "" && gjson.Valid(obj)}
}

// OK reports whether a syntactically valid JSON object was extracted.
func (r Result) OK() bool { return r.ok }

// Raw returns the extracted object text (possibly invalid JSON, possibly
// empty).
func (r Result) Raw() string { return r.raw }

// String returns the string at path, or def if absent/wrong type.
func (r Result) String(path, def string) string {
	if !r.ok {
		return def
	}
	v := gjson.Get(r.raw, path)
	if !v.Exists() {
		return def
	}
	return v.String()
}

// Float returns the float64 at path, or def if absent/wrong type.
func (r Result) Float(path string, def float64) float64 {
	if !r.ok {
		return def
	}
	v := gjson.Get(r.raw, path)
	if !v.Exists() || (v.Type != gjson.Number) {
		return def
	}
	return v.Float()
}

// Bool returns the bool at path, or def if absent/wrong type.
func (r Result) Bool(path string, def bool) bool {
	if !r.ok {
		return def
	}
	v := gjson.Get(r.raw, path)
	if !v.Exists() || (v.Type != gjson.True && v.Type != gjson.False) {
		return def
	}
	return v.Bool()
}

// StringSlice returns the array of strings at path, or nil if absent.
func (r Result) StringSlice(path string) []string {
	if !r.ok {
		return nil
	}
	v := gjson.Get(r.raw, path)
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, item := range v.Array() {
		out = append(out, item.String())
	}
	return out
}

// Floats returns the object at path as a map of key to float64, skipping
// non-numeric values. Returns nil if path is absent or not an object.
func (r Result) Floats(path string) map[string]float64 {
	if !r.ok {
		return nil
	}
	v := gjson.Get(r.raw, path)
	if !v.IsObject() {
		return nil
	}
	out := make(map[string]float64)
	v.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			out[key.String()] = value.Float()
		}
		return true
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// WithDefaults backfills any of the given dotted paths that are missing from
// raw with their default values, returning the patched JSON text. This is
// the "substitute documented defaults" half of §9's parsing contract, used
// when a partially-structured reply should still be persisted whole (e.g.
// the supervisor's raw specification object) rather than field-by-field
// defaulted.
func WithDefaults(raw string, defaults map[string]any) string {
	out := raw
	if out == "" {
		out = "{}"
	}
	for path, def := range defaults {
		if !gjson.Get(out, path).Exists() {
			if patched, err := sjson.Set(out, path, def); err == nil {
				out = patched
			}
		}
	}
	return out
}
