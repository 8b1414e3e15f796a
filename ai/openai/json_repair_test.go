package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "valid json untouched",
			input: `{"scores":[{"index":0,"score":5}]}`,
			want:  `{"scores":[{"index":0,"score":5}]}`,
		},
		{
			name:  "missing opening quote",
			input: `{"scores":[{index":0, score":5}]}`,
			want:  `{"scores":[{"index":0, "score":5}]}`,
		},
		{
			name:  "bare keys",
			input: `{scores:[{index:0,score:5}]}`,
			want:  `{"scores":[{"index":0,"score":5}]}`,
		},
		{
			name:  "trailing commas",
			input: "{\"scores\":[{\"index\":0,\"score\":5,},\n]}",
			want:  "{\"scores\":[{\"index\":0,\"score\":5}\n]}",
		},
		{
			name:  "strings are not rewritten",
			input: `{"note":"a, }b{c: d"}`,
			want:  `{"note":"a, }b{c: d"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repairJSON(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "repaired output should be valid JSON: %s", got)
		})
	}
}
