package ffmpeg

import (
	"strings"
	"unicode/utf8"
)

// Wrap breaks text into lines of at most width runes, preferring word
// boundaries. Words longer than width are split.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 || width <= 0 {
		return strings.Join(words, " ")
	}

	var lines []string
	var line strings.Builder
	lineLen := 0
	flush := func() {
		if lineLen > 0 {
			lines = append(lines, line.String())
			line.Reset()
			lineLen = 0
		}
	}

	for _, w := range words {
		for utf8.RuneCountInString(w) > width {
			flush()
			r := []rune(w)
			lines = append(lines, string(r[:width]))
			w = string(r[width:])
		}
		n := utf8.RuneCountInString(w)
		if lineLen > 0 && lineLen+1+n > width {
			flush()
		}
		if lineLen > 0 {
			line.WriteByte(' ')
			lineLen++
		}
		line.WriteString(w)
		lineLen += n
	}
	flush()
	return strings.Join(lines, "\n")
}
