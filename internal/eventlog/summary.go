package eventlog

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeFields parses a JSON object into a map; invalid input yields nil.
func DecodeFields(raw []byte) map[string]any {
	if !gjson.ValidBytes(raw) {
		return nil
	}
	v, ok := gjson.ParseBytes(raw).Value().(map[string]any)
	if !ok || len(v) == 0 {
		return nil
	}
	return v
}

// Summarize renders a JSON object as "k=v k=v", keeping the source key
// order. Nested values are kept as raw JSON; output is cut at maxLen runes.
func Summarize(raw []byte, maxLen int) string {
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return ""
	}
	var b strings.Builder
	res.ForEach(func(key, value gjson.Result) bool {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		switch value.Type {
		case gjson.String:
			fmt.Fprintf(&b, "%s=%s", key.String(), value.String())
		default:
			fmt.Fprintf(&b, "%s=%s", key.String(), value.Raw)
		}
		return true
	})
	out := b.String()
	if maxLen > 0 {
		if r := []rune(out); len(r) > maxLen {
			return string(r[:maxLen]) + "..."
		}
	}
	return out
}
