package generator

import (
	"fmt"
	"regexp"
)

// Model output deviates from "bare JSON" in a few recurring ways:
// reasoning models wrap deliberation in <think> tags, chat-tuned models
// fence the payload in markdown, and trailing commas sneak in before
// closing brackets. extractJSON repairs all three before parsing is
// attempted; anything beyond that is treated as malformed output.
var (
	thinkBlockRe    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeBlockRe     = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	jsonObjectRe    = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// extractJSON pulls the JSON object out of raw model output, tolerating
// commentary around the structured block. It prefers a fenced code
// block, then falls back to the outermost brace-delimited span. The
// returned string still needs json.Unmarshal; this only locates and
// tidies the candidate text.
func extractJSON(text string) (string, error) {
	text = thinkBlockRe.ReplaceAllString(text, "")

	if m := codeBlockRe.FindStringSubmatch(text); m != nil {
		return stripTrailingCommas(m[1]), nil
	}

	if m := jsonObjectRe.FindString(text); m != "" {
		return stripTrailingCommas(m), nil
	}

	return "", fmt.Errorf("no JSON object found in model output")
}

func stripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}
