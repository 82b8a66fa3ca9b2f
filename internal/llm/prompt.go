package llm

import (
	"fmt"
	"strings"
)

const systemPrompt = `You map free-text skill names onto a controlled vocabulary.
Answer with a JSON array of strings and nothing else.
Every string must be copied exactly from the candidate list.
Order the array from best to worst match and omit candidates that do not fit.`

// userPrompt lists the candidates one per line, quoted, so that names with
// commas survive intact.
func userPrompt(input string, candidates []string, topK int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Skill: %q\n\nCandidates:\n", input)
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %q\n", c)
	}
	fmt.Fprintf(&b, "\nReturn at most %d names.", topK)

	return b.String()
}
