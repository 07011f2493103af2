package openai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the first JSON value out of a model reply. It accepts a bare document,
// a fenced ```json block, or prose wrapping a balanced object or array. Braces in the prose
// that do not open valid JSON are skipped. It returns nil when nothing parseable is found.
func ExtractJSON(raw string) json.RawMessage {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	if fenced := stripFence(s); fenced != "" && json.Valid([]byte(fenced)) {
		return json.RawMessage(fenced)
	}
	for _, open := range []byte{'{', '['} {
		for from := 0; from < len(s); {
			start := strings.IndexByte(s[from:], open)
			if start < 0 {
				break
			}
			start += from
			if block := balancedBlock(s, start); block != "" && json.Valid([]byte(block)) {
				return json.RawMessage(block)
			}
			from = start + 1
		}
	}
	return nil
}

func stripFence(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return ""
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

// balancedBlock returns the bracket-balanced span opening at s[start], ignoring brackets inside strings.
func balancedBlock(s string, start int) string {
	open := s[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// UnwrapList decodes either {"<key>": [...]} or a bare array into out.
func UnwrapList(raw json.RawMessage, key string, out any) bool {
	if len(raw) == 0 {
		return false
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(raw, out) == nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return false
	}
	inner, ok := wrapper[key]
	if !ok {
		return false
	}
	return json.Unmarshal(inner, out) == nil
}
