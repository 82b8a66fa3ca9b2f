package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// arrayBlockPattern matches an array inside a markdown code fence.
	arrayBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	// arrayPattern is the greedy fallback for a bare array.
	arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)
	// trailingCommaPattern matches a comma directly before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// extractJSONArray pulls the first JSON array out of a model reply, preferring
// a fenced block. It returns "" when no array is present.
func extractJSONArray(content string) string {
	if m := arrayBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := arrayPattern.FindString(content); m != "" {
		return cleanJSON(m)
	}

	return ""
}

// parseNameList decodes a model reply into a list of names.
func parseNameList(content string) ([]string, error) {
	raw := extractJSONArray(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in model reply")
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("decoding model reply: %w", err)
	}

	return names, nil
}

// cleanJSON strips // line comments outside strings and trailing commas,
// both of which models emit regularly.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}

	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		switch ch := line[i]; {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}

	return line
}
