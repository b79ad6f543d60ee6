package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced", "Sure:\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`},
		{"fence without tag", "```\n[1,2]\n```", `[1,2]`},
		{"prose around", `The answer is {"x": {"y": [1, 2]}} as requested.`, `{"x": {"y": [1, 2]}}`},
		{"braces in strings", `{"s": "a } b { c", "t": "\"}"}`, `{"s": "a } b { c", "t": "\"}"}`},
		{"truncated object", `{"open": 1`, `{"open": 1}`},
		{"trailing comma", `{"key": "",}`, `{"key": ""}`},
		{"single quotes", `{'key': 'v', 'n': 2}`, `{"key": "v", "n": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			require.NoError(t, err)
			require.JSONEq(t, tt.want, got)
		})
	}
}

func TestExtractJSON_None(t *testing.T) {
	for _, in := range []string{"", "no json here", "```\njust text\n```"} {
		_, err := ExtractJSON(in)
		require.ErrorIs(t, err, ErrNoJSON)
	}
}
