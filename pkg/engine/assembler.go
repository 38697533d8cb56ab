package engine

import "encoding/json"

// balancedObject reports whether s currently forms one complete, balanced
// JSON object: it starts with '{', ends with '}', brace depth returns to
// zero exactly at the end, and no string literal is left unterminated.
// Braces inside string literals are ignored, honoring \" escapes.
//
// This is a streaming balance check, not a parse. It is the cheap gate run
// on every fragment before attempting a real parse; a true result only
// means a parse is worth trying.
func balancedObject(s string) bool {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return false
	}

	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && i != len(s)-1 {
				// Balanced before the end: trailing bytes follow the
				// closing brace, so this is not a single object.
				return false
			}
			if depth < 0 {
				return false
			}
		}
	}

	return depth == 0 && !inString
}

// tryParseArgs attempts a real JSON parse of a balanced accumulation.
// Outcomes:
//   - parsed value is an object: (args, nil)
//   - parsed value is not an object: DiagArgsNotObject
//   - parse fails: DiagArgsParseError; the caller keeps accumulating, since
//     a later, longer fragment may still become parseable.
//
// The parse is a pure function of its input: identical accumulations yield
// identical results.
func tryParseArgs(accumulated string) (map[string]any, *Diagnostic) {
	var value any
	if err := json.Unmarshal([]byte(accumulated), &value); err != nil {
		return nil, &Diagnostic{
			Code:    DiagArgsParseError,
			Message: "arguments balanced but failed to parse: " + err.Error(),
			Snippet: snippet(accumulated),
		}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &Diagnostic{
			Code:    DiagArgsNotObject,
			Message: "arguments parsed but are not a JSON object",
			Snippet: snippet(accumulated),
		}
	}

	return obj, nil
}
