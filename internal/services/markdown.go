package services

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	codeFencePattern  = regexp.MustCompile("```(?:[a-zA-Z0-9_+-]+\n)?([\\s\\S]*?)```")
	placeholderLine   = regexp.MustCompile("^\x00CODEBLOCK(\\d+)\x00$")
	headingPattern    = regexp.MustCompile(`^(#{1,4})\s+(.*)$`)
	orderedItem       = regexp.MustCompile(`^(\d+)\.\s+(.+)$`)
	unorderedItem     = regexp.MustCompile(`^[*-]\s+(.+)$`)
	bareListMarker    = regexp.MustCompile(`^([*-]|\d+\.)\s*$`)
	boldPattern       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicStar        = regexp.MustCompile(`\*([^*]+)\*`)
	italicUnderscore  = regexp.MustCompile(`(^|[^\w])_([^_]+)_([^\w]|$)`)
	strikePattern     = regexp.MustCompile(`~~(.+?)~~`)
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
)

type listState int

const (
	listNone listState = iota
	listUnordered
	listOrdered
)

func (s listState) tag() string {
	if s == listOrdered {
		return "ol"
	}
	return "ul"
}

// RenderMarkdown turns model output into escaped HTML. It understands fenced code,
// bold/italic/strikethrough/inline code, #..#### headings and flat lists; everything else
// becomes a paragraph. Blank lines and list markers without content produce no output.
func RenderMarkdown(raw string) string {
	// NUL is reserved for code block placeholders.
	raw = strings.ReplaceAll(raw, "\x00", "")
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := html.EscapeString(strings.ReplaceAll(raw, "\r\n", "\n"))

	var blocks []string
	text = codeFencePattern.ReplaceAllStringFunc(text, func(m string) string {
		body := codeFencePattern.FindStringSubmatch(m)[1]
		blocks = append(blocks, `<pre class="gemini-code-block"><code>`+strings.TrimSpace(body)+`</code></pre>`)
		return fmt.Sprintf("\n\x00CODEBLOCK%d\x00\n", len(blocks)-1)
	})

	var out []string
	state := listNone
	closeList := func() {
		if state != listNone {
			out = append(out, "</"+state.tag()+">")
			state = listNone
		}
	}
	openList := func(want listState) {
		if state != want {
			closeList()
			out = append(out, "<"+want.tag()+">")
			state = want
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if m := placeholderLine.FindStringSubmatch(trimmed); m != nil {
			if idx, err := strconv.Atoi(m[1]); err == nil && idx < len(blocks) {
				closeList()
				out = append(out, blocks[idx])
				continue
			}
		}

		if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
			closeList()
			level := len(m[1]) + 2
			out = append(out, fmt.Sprintf("<h%d>%s</h%d>", level, renderInline(m[2]), level))
			continue
		}

		if m := orderedItem.FindStringSubmatch(trimmed); m != nil {
			openList(listOrdered)
			out = append(out, fmt.Sprintf(`<li value="%s">%s</li>`, m[1], renderInline(m[2])))
			continue
		}
		if m := unorderedItem.FindStringSubmatch(trimmed); m != nil {
			openList(listUnordered)
			out = append(out, "<li>"+renderInline(m[1])+"</li>")
			continue
		}

		// A marker with nothing after it is dropped instead of rendering an empty item.
		if bareListMarker.MatchString(trimmed) {
			continue
		}

		closeList()
		if trimmed != "" {
			out = append(out, "<p>"+renderInline(trimmed)+"</p>")
		}
	}
	closeList()

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// renderInline applies emphasis rules to a single line, in a fixed order.
func renderInline(s string) string {
	s = boldPattern.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicStar.ReplaceAllString(s, "<em>$1</em>")
	// Adjacent spans share a boundary character, so repeat until nothing changes.
	for {
		next := italicUnderscore.ReplaceAllString(s, "$1<em>$2</em>$3")
		if next == s {
			break
		}
		s = next
	}
	s = strikePattern.ReplaceAllString(s, "<del>$1</del>")
	s = inlineCodePattern.ReplaceAllString(s, "<code>$1</code>")
	return s
}
