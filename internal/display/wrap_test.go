package display

import (
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestWrapWidth(t *testing.T) {
	tests := map[string]struct {
		text  string
		width int
		exp   string
	}{
		"short line untouched": {
			text:  "You are in The Spire, a tower",
			width: 80,
			exp:   "You are in The Spire, a tower",
		},
		"breaks at word boundary": {
			text:  "one two three",
			width: 8,
			exp:   "one two\nthree",
		},
		"keeps existing newlines": {
			text:  "Goodbye sweet prince\nDon't come back...",
			width: 80,
			exp:   "Goodbye sweet prince\nDon't come back...",
		},
		"zero width": {
			text:  "one two three",
			width: 0,
			exp:   "one two three",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "wrapped", WrapWidth(tt.text, tt.width), tt.exp)
		})
	}
}

func TestWrap_LineLength(t *testing.T) {
	text := strings.Repeat("word ", 60)
	for _, line := range strings.Split(Wrap(text), "\n") {
		if len(line) > DefaultWidth {
			t.Errorf("line of %d characters exceeds %d", len(line), DefaultWidth)
		}
	}
}
