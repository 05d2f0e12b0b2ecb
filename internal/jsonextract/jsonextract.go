// Package jsonextract pulls a JSON document out of a language-model reply.
// Models wrap their output in prose or markdown fences often enough that
// every caller needs the same salvage logic, so it lives here once.
package jsonextract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError reports that no parseable JSON document was found in the text.
type ParseError struct {
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no valid JSON found in model output: %q", e.Snippet)
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Object extracts the first JSON object from text and unmarshals it into v.
// Attempts, in order: the whole text, the contents of a fenced code block,
// then the widest brace-delimited span. Returns *ParseError when all fail.
func Object(text string, v interface{}) error {
	trimmed := strings.TrimSpace(text)

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), v); err == nil {
			return nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err == nil {
			return nil
		}
	}

	snippet := trimmed
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return &ParseError{Snippet: snippet}
}
