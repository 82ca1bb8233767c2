package subtitle

import (
	"strings"
)

const timingArrow = "-->"

// IsStructuralLine reports whether a raw SRT line is an index, a timing or a
// blank line. Structural lines are never sent to translation.
func IsStructuralLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	if strings.Contains(trimmed, timingArrow) {
		return true
	}
	return isDigits(trimmed)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// Parse splits raw SRT text into cues. Blocks are separated by one or more
// blank lines; a block needs an index line, a timing line and at least one
// text line, shorter blocks are dropped.
func Parse(raw string) []Cue {
	raw = normalizeNewlines(raw)
	raw = strings.TrimPrefix(raw, "\ufeff")

	var (
		cues  []Cue
		block []string
	)
	flush := func() {
		if len(block) >= 3 {
			text := make([]string, len(block)-2)
			copy(text, block[2:])
			cues = append(cues, Cue{
				Index:  strings.TrimSpace(block[0]),
				Timing: strings.TrimSpace(block[1]),
				Text:   text,
			})
		}
		block = block[:0]
	}

	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, strings.TrimRight(line, " \t"))
	}
	flush()

	return cues
}

// Serialize renders cues back into SRT text. Cues are separated by exactly one
// blank line and trailing whitespace is trimmed from the result.
func Serialize(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(cue.Index)
		sb.WriteString("\n")
		sb.WriteString(cue.Timing)
		sb.WriteString("\n")
		sb.WriteString(cue.JoinedText())
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), " \t\r\n")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
