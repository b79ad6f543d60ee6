package ai

import (
	"errors"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

var ErrNoJSON = errors.New("no json found in response")

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

// ExtractJSON returns the JSON payload of a model answer. Fenced code
// blocks are tried first, then the whole answer. The first object or array
// found is repaired (unquoted keys, trailing commas, missing closers) and
// returned compacted.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoJSON
	}
	candidates := make([]string, 0, 2)
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(m[1]); body != "" {
			candidates = append(candidates, body)
		}
	}
	candidates = append(candidates, text)
	for _, c := range candidates {
		if !strings.ContainsAny(c, "{[") {
			continue
		}
		out, err := jsonrepair.RepairJSON(c)
		if err != nil {
			continue
		}
		out = strings.TrimSpace(out)
		if out == "" || (out[0] != '{' && out[0] != '[') {
			continue
		}
		return out, nil
	}
	return "", ErrNoJSON
}
