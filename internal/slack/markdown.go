package slack

import (
	"fmt"
	"regexp"
	"strings"
)

// mrkdwn token patterns, each anchored at the start of the remaining input.
var (
	boldPattern   = regexp.MustCompile(`^\*([^*]+)\*`)
	italicPattern = regexp.MustCompile(`^_([^_]+)_`)
	codePattern   = regexp.MustCompile("^`([^`]+)`")
	strikePattern = regexp.MustCompile(`^~([^~]+)~`)
	linkPattern   = regexp.MustCompile(`^<([^|>]+)(?:\|([^>]+))?>`)
)

// InterpretMrkdwn converts Slack's mrkdwn formatting into standard markdown:
// *bold* -> **bold**, _italic_ -> *italic*, ~strike~ -> ~~strike~~,
// <url|label> -> [label](url).
func InterpretMrkdwn(text string) string {
	var out strings.Builder

	for len(text) > 0 {
		if m := boldPattern.FindStringSubmatch(text); m != nil {
			fmt.Fprintf(&out, "**%s**", m[1])
			text = text[len(m[0]):]
			continue
		}
		if m := italicPattern.FindStringSubmatch(text); m != nil {
			fmt.Fprintf(&out, "*%s*", m[1])
			text = text[len(m[0]):]
			continue
		}
		if m := codePattern.FindStringSubmatch(text); m != nil {
			fmt.Fprintf(&out, "`%s`", m[1])
			text = text[len(m[0]):]
			continue
		}
		if m := strikePattern.FindStringSubmatch(text); m != nil {
			fmt.Fprintf(&out, "~~%s~~", m[1])
			text = text[len(m[0]):]
			continue
		}
		if m := linkPattern.FindStringSubmatch(text); m != nil {
			label := m[2]
			if label == "" {
				label = m[1]
			}
			fmt.Fprintf(&out, "[%s](%s)", label, m[1])
			text = text[len(m[0]):]
			continue
		}

		// Plain text up to the next special character.
		next := strings.IndexAny(text, "*_`~<")
		if next == -1 {
			out.WriteString(text)
			break
		}
		if next == 0 {
			// Special character that did not open a token.
			out.WriteByte(text[0])
			text = text[1:]
			continue
		}
		out.WriteString(text[:next])
		text = text[next:]
	}

	return out.String()
}
