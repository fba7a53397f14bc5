package ai

import "strings"

// extractJSON returns the first balanced JSON value in text that starts with
// open ('{' or '['). Brackets inside string literals are ignored. It returns
// false when no balanced value exists.
func extractJSON(text string, open byte) (string, bool) {
	for offset := 0; offset < len(text); {
		i := strings.IndexByte(text[offset:], open)
		if i < 0 {
			return "", false
		}
		start := offset + i
		if end, ok := matchBalanced(text, start); ok {
			return text[start : end+1], true
		}
		offset = start + 1
	}
	return "", false
}

// matchBalanced returns the index of the bracket closing the one at start.
func matchBalanced(text string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
