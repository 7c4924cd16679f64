package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseCandidate locates and decodes the JSON object inside a raw model
// response. Models wrap their answer in code fences or commentary often
// enough that decoding the payload directly is not an option, so this is an
// explicit extract-then-decode step: strip fences, find the outermost object,
// decode it.
func ParseCandidate(raw string) (map[string]interface{}, error) {
	text := stripCodeFences(raw)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return nil, errors.New("no JSON object found in response")
	}

	var candidate map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &candidate); err != nil {
		return nil, fmt.Errorf("decoding response payload: %w", err)
	}
	return candidate, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the leading ```lang line and the trailing fence
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
