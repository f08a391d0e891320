package tui

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestIsDecorativeLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"────────", true},
		{"\x1b[38;5;60m━━━━\x1b[0m", true},
		{"- item", false},
		{"hello", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isDecorativeLine(tt.line), "line %q", tt.line)
	}
}

func TestStripDecorative(t *testing.T) {
	content := "────\n\nhello\nworld\n────"
	assert.Equal(t, "hello\nworld\n────", stripLeadingDecorative(content))
	assert.Equal(t, "────\n\nhello\nworld", stripTrailingDecorative(content))
}

func TestRenderMarkdown(t *testing.T) {
	out := ansi.Strip(renderMarkdown("# Title\n\nsome *text*", 40))
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "text")
}
