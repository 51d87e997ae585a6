package advisor

import (
	"strings"

	"github.com/tidwall/gjson"
)

// maxNarrativeRunes caps narrative text taken from the oracle.
const maxNarrativeRunes = 600

var (
	narrativeKeys = []string{"narrative", "reason", "razon", "message", "text"}
	decisionKeys  = []string{"decision", "action", "decision_text"}
)

// reply is the structured part of an oracle payload.
type reply struct {
	Narrative string
	Decision  string
}

// parseReply extracts narrative and decision from an oracle payload. The
// payload may be a bare JSON object, one wrapped in a markdown code fence, or
// one embedded in surrounding prose. ok is false when no JSON object is found.
func parseReply(payload string) (r reply, ok bool) {
	for _, candidate := range jsonCandidates(payload) {
		if !gjson.Valid(candidate) {
			continue
		}
		obj := gjson.Parse(candidate)
		if !obj.IsObject() {
			continue
		}
		r.Narrative = firstString(obj, narrativeKeys)
		r.Decision = firstString(obj, decisionKeys)
		return r, true
	}
	return reply{}, false
}

func jsonCandidates(payload string) []string {
	text := stripFence(strings.TrimSpace(payload))
	out := []string{text}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start && (start > 0 || end < len(text)-1) {
		out = append(out, text[start:end+1])
	}
	return out
}

// stripFence removes a ```json ... ``` wrapper.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	body = strings.TrimSpace(body)
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}

func firstString(obj gjson.Result, keys []string) string {
	for _, k := range keys {
		v := obj.Get(k)
		if !v.Exists() {
			continue
		}
		var s string
		switch v.Type {
		case gjson.String:
			s = v.String()
		case gjson.True, gjson.False, gjson.Number:
			s = v.Raw
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxNarrativeRunes {
		return s
	}
	return strings.TrimSpace(string(r[:maxNarrativeRunes])) + "…"
}
