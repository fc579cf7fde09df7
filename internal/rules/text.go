package rules

import (
	"strings"
	"unicode/utf8"
)

// TextKeyword returns the first transfer keyword found in msg. Exempt phrases
// are checked first and suppress any match.
func (e *Engine) TextKeyword(msg string) (string, bool) {
	if msg == "" {
		return "", false
	}
	for _, ex := range e.t.TextExemptKeywords {
		if ex != "" && strings.Contains(msg, ex) {
			return "", false
		}
	}
	for _, kw := range e.t.TextTransferKeywords {
		if kw != "" && strings.Contains(msg, kw) {
			return kw, true
		}
	}
	return "", false
}

// NeedsTransferText reports whether a text message must go to a human.
func (e *Engine) NeedsTransferText(msg string) bool {
	_, ok := e.TextKeyword(msg)
	return ok
}

// TextDecision wraps TextKeyword as a TransferDecision.
func (e *Engine) TextDecision(msg string) TransferDecision {
	if kw, ok := e.TextKeyword(msg); ok {
		return Escalate(ReasonTextKeyword, kw)
	}
	return Handle()
}

// IsEmoticon reports whether msg is a bare platform emoticon code such as
// "/:^_^", which is echoed back instead of sent to the dialogue engine.
func (e *Engine) IsEmoticon(msg string) bool {
	return msg != "" && e.t.EmoticonPrefix != "" && strings.HasPrefix(msg, e.t.EmoticonPrefix) &&
		utf8.RuneCountInString(msg) < e.t.EmoticonMaxRunes
}
