package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"How much did I spend?", "en"},
		{"这个月我花了多少钱", "zh"},
		{"I spent 50元 on lunch", "zh"},
		{"", "en"},
		{"12345 !?", "en"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.text), "text %q", tt.text)
	}
}

func TestDimensionsForModel(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"nomic-embed-text", 768},
		{"BGE-large-zh", 768},
		{"", 1536},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DimensionsForModel(tt.model), "model %q", tt.model)
	}
}
