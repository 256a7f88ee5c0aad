package mcp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/jmespath/go-jmespath"
)

// Filter narrows a response body before it is handed to the model.
// At most one of Regex and JMESPath is set.
type Filter struct {
	Regex        string
	JMESPath     string
	ContextLines int
}

// FilterResult represents the result of a filtering operation
type FilterResult struct {
	Content string                 `json:"content"`
	Meta    map[string]interface{} `json:"_meta"`
}

// Empty reports whether the filter leaves the body untouched
func (f Filter) Empty() bool {
	return strings.TrimSpace(f.Regex) == "" && strings.TrimSpace(f.JMESPath) == ""
}

// Validate rejects filters combining both modes
func (f Filter) Validate() error {
	if strings.TrimSpace(f.Regex) != "" && strings.TrimSpace(f.JMESPath) != "" {
		return errors.New(errors.ErrorTypeInput, "cannot use both regex and jmespath filters").
			WithContext("field", "filter")
	}
	return nil
}

// Apply runs the filter over body
func (f Filter) Apply(body string) (*FilterResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.JMESPath) != "" {
		return filterJMESPath(body, f.JMESPath)
	}
	return filterRegex(body, f.Regex, f.ContextLines)
}

// estimateTokens approximates token count using chars/4 heuristic
func estimateTokens(data string) int {
	return len(data) / 4
}

func sizeMeta(filter map[string]interface{}, result, source string) map[string]interface{} {
	return map[string]interface{}{
		"filter": filter,
		"tokens": map[string]interface{}{
			"returned": estimateTokens(result),
			"source":   estimateTokens(source),
		},
		"bytes": map[string]interface{}{
			"returned": len(result),
			"source":   len(source),
		},
	}
}

type window struct {
	start int
	end   int
}

// filterRegex returns every match with surrounding context, merging
// windows that overlap
func filterRegex(body string, pattern string, contextLines int) (*FilterResult, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "invalid regex pattern").
			WithContext("field", "regex")
	}

	// approximate: 80 chars per line
	contextChars := max(contextLines*80, 100)

	matches := re.FindAllStringIndex(body, -1)
	filter := map[string]interface{}{
		"type":          "regex",
		"pattern":       pattern,
		"total_matches": len(matches),
	}
	if len(matches) == 0 {
		return &FilterResult{Meta: sizeMeta(filter, "", body)}, nil
	}

	var merged []window
	for _, m := range matches {
		w := window{start: max(0, m[0]-contextChars), end: min(len(body), m[1]+contextChars)}
		if n := len(merged); n > 0 && w.start <= merged[n-1].end {
			merged[n-1].end = max(merged[n-1].end, w.end)
			continue
		}
		merged = append(merged, w)
	}
	filter["merged_windows"] = len(merged)

	blocks := make([]string, 0, len(merged))
	for i, w := range merged {
		excerpt := body[w.start:w.end]
		if w.start > 0 {
			excerpt = "..." + excerpt
		}
		if w.end < len(body) {
			excerpt += "..."
		}
		blocks = append(blocks, fmt.Sprintf("=== Context Window %d (bytes %d-%d) ===\n%s", i+1, w.start, w.end, excerpt))
	}

	content := strings.Join(blocks, "\n\n")
	return &FilterResult{Content: content, Meta: sizeMeta(filter, content, body)}, nil
}

// filterJMESPath filters JSON using a JMESPath expression
func filterJMESPath(body string, expression string) (*FilterResult, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "response body is not JSON").
			WithContext("field", "jmespath")
	}

	result, err := jmespath.Search(expression, data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "invalid jmespath expression").
			WithContext("field", "jmespath")
	}

	filtered, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to marshal filtered result")
	}

	resultCount := 0
	if arr, ok := result.([]interface{}); ok {
		resultCount = len(arr)
	} else if result != nil {
		resultCount = 1
	}

	content := string(filtered)
	return &FilterResult{
		Content: content,
		Meta: sizeMeta(map[string]interface{}{
			"type":         "jmespath",
			"expression":   expression,
			"result_count": resultCount,
		}, content, body),
	}, nil
}
