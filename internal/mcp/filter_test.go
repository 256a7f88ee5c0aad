package mcp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/brendan.keane/apibridge/internal/errors"
)

func checkSizeMeta(t *testing.T, result *FilterResult, source string) {
	t.Helper()
	tokens := result.Meta["tokens"].(map[string]interface{})
	if tokens["source"] != estimateTokens(source) {
		t.Errorf("source tokens = %v, want %d", tokens["source"], estimateTokens(source))
	}
	if tokens["returned"] != estimateTokens(result.Content) {
		t.Errorf("returned tokens = %v, want %d", tokens["returned"], estimateTokens(result.Content))
	}
	bytes := result.Meta["bytes"].(map[string]interface{})
	if bytes["source"] != len(source) {
		t.Errorf("source bytes = %v, want %d", bytes["source"], len(source))
	}
	if bytes["returned"] != len(result.Content) {
		t.Errorf("returned bytes = %v, want %d", bytes["returned"], len(result.Content))
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"", 0},
		{"hello world", 2},
		{`{"key": "value"}`, 4},
	}

	for _, tt := range tests {
		if got := estimateTokens(tt.input); got != tt.expected {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestFilterRegex(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		pattern      string
		contextLines int
		wantMatches  int
		wantWindows  int
		wantError    bool
		contains     []string
	}{
		{
			name:         "single match with context",
			body:         "line 1\nline 2\nERROR: something failed\nline 4\nline 5",
			pattern:      "ERROR",
			contextLines: 1,
			wantMatches:  1,
			wantWindows:  1,
			contains:     []string{"Context Window 1", "line 2", "ERROR: something failed", "line 4"},
		},
		{
			name:        "nearby matches merge",
			body:        "ERROR: first error\ninfo line\nERROR: second error\nmore info",
			pattern:     "ERROR",
			wantMatches: 2,
			wantWindows: 1,
			contains:    []string{"ERROR: first error", "ERROR: second error"},
		},
		{
			name:        "distant matches stay apart",
			body:        "ERROR one" + strings.Repeat(".", 500) + "ERROR two",
			pattern:     "ERROR \\w+",
			wantMatches: 2,
			wantWindows: 2,
			contains:    []string{"Context Window 2", "...ERROR two"},
		},
		{
			name:        "no matches",
			body:        "line 1\nline 2",
			pattern:     "ERROR",
			wantMatches: 0,
		},
		{
			name:      "invalid regex",
			body:      "some text",
			pattern:   "[invalid",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := filterRegex(tt.body, tt.pattern, tt.contextLines)
			if tt.wantError {
				if !errors.IsType(err, errors.ErrorTypeInput) {
					t.Errorf("filterRegex() expected input error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("filterRegex() unexpected error: %v", err)
			}

			filterMeta := result.Meta["filter"].(map[string]interface{})
			if filterMeta["type"] != "regex" || filterMeta["pattern"] != tt.pattern {
				t.Errorf("filter meta = %v", filterMeta)
			}
			if filterMeta["total_matches"] != tt.wantMatches {
				t.Errorf("total_matches = %v, want %v", filterMeta["total_matches"], tt.wantMatches)
			}
			if tt.wantMatches > 0 && filterMeta["merged_windows"] != tt.wantWindows {
				t.Errorf("merged_windows = %v, want %v", filterMeta["merged_windows"], tt.wantWindows)
			}
			if tt.wantMatches == 0 && result.Content != "" {
				t.Errorf("content should be empty, got %q", result.Content)
			}
			for _, want := range tt.contains {
				if !strings.Contains(result.Content, want) {
					t.Errorf("content missing %q:\n%s", want, result.Content)
				}
			}
			checkSizeMeta(t, result, tt.body)
		})
	}
}

func TestFilterJMESPath(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		expression string
		wantCount  int
		wantJSON   string
		wantError  bool
	}{
		{
			name:       "array filter",
			body:       `{"items": [{"status": "failed"}, {"status": "success"}, {"status": "failed"}]}`,
			expression: "items[?status=='failed'].status",
			wantCount:  2,
			wantJSON:   `["failed","failed"]`,
		},
		{
			name:       "projection",
			body:       `{"users": [{"id": 1, "name": "Alice"}, {"id": 2, "name": "Bob"}]}`,
			expression: "users[].name",
			wantCount:  2,
			wantJSON:   `["Alice","Bob"]`,
		},
		{
			name:       "single object",
			body:       `{"user": {"name": "Alice"}}`,
			expression: "user",
			wantCount:  1,
			wantJSON:   `{"name":"Alice"}`,
		},
		{
			name:       "missing key",
			body:       `{"items": []}`,
			expression: "nothing",
			wantCount:  0,
			wantJSON:   `null`,
		},
		{
			name:       "invalid json",
			body:       `not json`,
			expression: "items",
			wantError:  true,
		},
		{
			name:       "invalid expression",
			body:       `{"items": []}`,
			expression: "items[invalid",
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := filterJMESPath(tt.body, tt.expression)
			if tt.wantError {
				if err == nil {
					t.Error("filterJMESPath() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("filterJMESPath() unexpected error: %v", err)
			}

			filterMeta := result.Meta["filter"].(map[string]interface{})
			if filterMeta["result_count"] != tt.wantCount {
				t.Errorf("result_count = %v, want %v", filterMeta["result_count"], tt.wantCount)
			}

			var got, want interface{}
			if err := json.Unmarshal([]byte(result.Content), &got); err != nil {
				t.Fatalf("content is not JSON: %v", err)
			}
			json.Unmarshal([]byte(tt.wantJSON), &want)
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("content = %s, want %s", gotJSON, wantJSON)
			}
			checkSizeMeta(t, result, tt.body)
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	body := `{"status":"ok","items":[1,2,3]}`

	if !(Filter{}).Empty() {
		t.Error("zero Filter should be empty")
	}
	if !(Filter{Regex: "  "}).Empty() {
		t.Error("blank regex should count as empty")
	}

	result, err := Filter{JMESPath: "items[0]"}.Apply(body)
	if err != nil {
		t.Fatalf("Apply(jmespath) error = %v", err)
	}
	if strings.TrimSpace(result.Content) != "1" {
		t.Errorf("jmespath content = %q", result.Content)
	}

	result, err = Filter{Regex: "status"}.Apply(body)
	if err != nil {
		t.Fatalf("Apply(regex) error = %v", err)
	}
	if !strings.Contains(result.Content, `"status":"ok"`) {
		t.Errorf("regex content = %q", result.Content)
	}

	_, err = Filter{Regex: "a", JMESPath: "b"}.Apply(body)
	if !errors.IsType(err, errors.ErrorTypeInput) {
		t.Errorf("combined filters should be an input error, got %v", err)
	}
}
