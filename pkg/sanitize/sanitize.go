// Package sanitize neutralizes attacker-controlled log fields before they
// reach a terminal or a report. Access-log content is untrusted input:
// embedded ANSI escape sequences can corrupt or spoof terminal output, and
// raw control characters can forge log lines.
package sanitize

import "strings"

// Line strips control characters from s and truncates it to maxLen bytes,
// appending "..." when shortened. Used for raw-line prefixes in warnings.
func Line(s string, maxLen int) string {
	cleaned := Terminal(s)
	if maxLen <= 0 || len(cleaned) <= maxLen {
		return cleaned
	}
	if maxLen > 3 {
		return cleaned[:maxLen-3] + "..."
	}
	return cleaned[:maxLen]
}

// Terminal replaces every control character in s with a visible marker.
// ESC-initiated CSI sequences collapse to a single [ESC] so a crafted
// user agent cannot move the cursor or recolor the terminal.
func Terminal(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7F {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == 0x1B:
			i = skipEscapeSequence(s, i)
			b.WriteString("[ESC]")
		case c == '\t' || c == '\n':
			b.WriteByte(' ')
		case c == '\r':
			b.WriteString("[CR]")
		case c < 0x20:
			b.WriteString("[CTRL]")
		case c == 0x7F:
			b.WriteString("[DEL]")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// skipEscapeSequence returns the index of the last byte of the escape
// sequence starting at i, so the caller's loop resumes after it.
func skipEscapeSequence(s string, i int) int {
	if i+1 < len(s) && s[i+1] == '[' {
		j := i + 2
		for j < len(s) && !isCSITerminator(s[j]) {
			j++
		}
		return j
	}
	return i
}

func isCSITerminator(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '@' || c == '`'
}
