package prompt

import (
	"bytes"
	"encoding/json"
	"regexp"
)

var jsonBlockRe = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// ExtractOutputs maps an AI response onto the expected output names.
//
// The first ```json fenced block is decoded as an object and every expected
// key found in it is returned; strings as-is, anything else as indented JSON
// in the key order and number spelling of the response. A block with
// trailing data after the object does not decode.
// A missing or undecodable block is not an error. When nothing could be
// extracted, the whole response is assigned to the first expected name.
func ExtractOutputs(raw string, expected []string) map[string]string {
	out := make(map[string]string)

	if obj, ok := firstJSONObject(raw); ok {
		for _, key := range expected {
			v, found := obj[key]
			if !found {
				continue
			}
			out[key] = stringify(v)
		}
	}

	if len(out) == 0 && len(expected) > 0 {
		out[expected[0]] = raw
	}
	return out
}

// firstJSONObject decodes the first json block. The block must hold exactly
// one object; values keep the bytes the model wrote.
func firstJSONObject(raw string) (map[string]json.RawMessage, bool) {
	m := jsonBlockRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(m[1]), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// stringify returns strings unquoted and re-indents anything else without
// reordering keys or escaping HTML characters.
func stringify(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, v, "", "  "); err != nil {
		return string(v)
	}
	return buf.String()
}
