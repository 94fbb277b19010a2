package reply

import (
	"regexp"
	"strings"
)

// Delimiters around user-authored text in the composed prompt.
const (
	UserMessageOpen  = "<<USER_MESSAGE>>"
	UserMessageClose = "<</USER_MESSAGE>>"
)

// directiveLookalike matches "[system:", "(admin :" and similar role prefixes.
var directiveLookalike = regexp.MustCompile(`(?i)[\[(]\s*(system|sys|instruction|admin|developer)\s*:`)

// Neutralize rewrites untrusted text so it cannot close the user delimiters or
// pose as a directive. It is idempotent: Neutralize(Neutralize(s)) == Neutralize(s).
func Neutralize(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '<':
			b.WriteRune('‹')
		case r == '>':
			b.WriteRune('›')
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			// C0 controls and DEL
		case isBidiControl(r):
		default:
			b.WriteRune(r)
		}
	}

	return directiveLookalike.ReplaceAllStringFunc(b.String(), func(m string) string {
		switch m[0] {
		case '[':
			return "［" + m[1:]
		default:
			return "（" + m[1:]
		}
	})
}

// Wrap neutralizes s and encloses it in the user message delimiters.
func Wrap(s string) string {
	return UserMessageOpen + "\n" + Neutralize(s) + "\n" + UserMessageClose
}

func isBidiControl(r rune) bool {
	return (r >= 0x202A && r <= 0x202E) || (r >= 0x2066 && r <= 0x2069) || r == 0x200E || r == 0x200F || r == 0x061C
}
