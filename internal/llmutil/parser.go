// File: internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fencedObject matches a JSON object wrapped in a markdown code block.
// \x60 is a backtick, which raw strings cannot hold.
var fencedObject = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")

const snippetLimit = 200

// ExtractObject returns the JSON object inside a model reply. Replies may be
// bare, fenced in markdown, or surrounded by conversational text.
func ExtractObject(reply string) string {
	reply = strings.TrimSpace(reply)
	if m := fencedObject.FindStringSubmatch(reply); len(m) > 1 {
		return m[1]
	}
	if strings.HasPrefix(reply, "{") {
		return reply
	}
	first, last := strings.Index(reply, "{"), strings.LastIndex(reply, "}")
	if first != -1 && last > first {
		return reply[first : last+1]
	}
	return reply
}

// ParseJSONObject decodes the object found in reply into a T.
func ParseJSONObject[T any](reply string) (T, error) {
	var out T
	raw := ExtractObject(reply)
	if err := json.UnmarshalFromString(raw, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal LLM JSON response: %w (extracted: %s)", err, truncate(raw, snippetLimit))
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
