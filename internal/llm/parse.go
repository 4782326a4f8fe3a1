package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError marks generation output that failed schema validation. The
// raw text is preserved for diagnostics; retries and fallbacks operate on
// this error variant rather than on a crash.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed generation output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var fenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// Decode parses generation output into T. Models wrap JSON in markdown
// fences or surround it with prose often enough that both are salvaged
// before giving up.
func Decode[T any](raw string) (T, error) {
	var v T
	text := strings.TrimSpace(raw)

	if m := fenceRe.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}

	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}

	// Salvage the outermost JSON value embedded in prose
	if salvaged, ok := salvage(text); ok {
		if err := json.Unmarshal([]byte(salvaged), &v); err == nil {
			return v, nil
		}
	}

	var zero T
	return zero, &ParseError{Raw: raw, Err: fmt.Errorf("no JSON value matching schema")}
}

// salvage extracts the first balanced {...} or [...] span from text
func salvage(text string) (string, bool) {
	for _, pair := range [][2]rune{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexRune(text, pair[0])
		end := strings.LastIndex(text, string(pair[1]))
		if start >= 0 && end > start {
			return text[start : end+1], true
		}
	}
	return "", false
}
