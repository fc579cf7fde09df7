package rules

import (
	"regexp"
	"strings"
)

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// IsSecurityNotice reports whether reply is exactly one of the platform's
// injected safety notices.
func (e *Engine) IsSecurityNotice(reply string) bool {
	_, ok := e.notices[reply]
	return ok
}

// DedupSentences splits on the sentence delimiter, drops empty and repeated
// sentences keeping first-seen order, and keeps a trailing delimiter only when
// the input had one.
func (e *Engine) DedupSentences(text string) string {
	return dedupSentences(text, e.t.SentenceDelimiter)
}

func dedupSentences(text, delim string) string {
	if text == "" {
		return text
	}
	parts := strings.Split(text, delim)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	res := strings.Join(out, delim)
	if len(out) > 0 && strings.HasSuffix(text, delim) {
		res += delim
	}
	return res
}

// SingleURL keeps the first URL in text and removes every later URL
// occurrence, byte for byte.
func SingleURL(text string) string {
	locs := urlRe.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	b.WriteString(text[:locs[1][0]])
	for i := 1; i < len(locs); i++ {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		b.WriteString(text[locs[i][1]:end])
	}
	return b.String()
}

// PostProcessReply applies the reply filters in order: drop safety notices,
// dedup sentences, then collapse to one URL. ok is false when nothing should
// be sent.
func (e *Engine) PostProcessReply(reply string) (string, bool) {
	if e.IsSecurityNotice(reply) {
		return "", false
	}
	out := SingleURL(e.DedupSentences(reply))
	if strings.TrimSpace(out) == "" {
		return "", false
	}
	return out, true
}
