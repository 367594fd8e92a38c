package normalize

import "strings"

// stripCodeFence removes a markdown code-block wrapper when the generator
// ignores the JSON-only instruction. Both ```json and bare ``` fences are
// tolerated; with no closing fence everything after the opener is kept.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)

	idx := strings.Index(trimmed, "```")
	if idx < 0 {
		return trimmed
	}

	rest := trimmed[idx+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the language tag line (```json, ```JSON, or nothing).
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isFenceTag(firstLine) {
			rest = rest[nl+1:]
		}
	}

	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}

	return strings.TrimSpace(rest)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// braceSpan cuts the first greedy {...} span: from the first opening brace to
// the last closing brace, or to the end of text when the object was truncated
// before its closer ever appeared.
func braceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, '}')
	if end > start {
		return text[start : end+1], true
	}
	return text[start:], true
}

// sanitizeControls makes raw control characters inside string values
// parseable: newline, carriage return and tab become their two-character
// escape form, anything else below 0x20 is deleted. Control characters
// between tokens are plain whitespace to a JSON parser and are left alone
// (non-whitespace ones are dropped there too).
func sanitizeControls(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case inString && r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case r == '\n', r == '\r', r == '\t':
			if !inString {
				b.WriteRune(r)
				break
			}
			switch r {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			}
		case r < 0x20:
			// Other control characters are never valid JSON, in or out of strings.
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// repairBalance closes brackets and braces the generator truncated away.
// A dangling trailing fragment (a comma followed by an unterminated string,
// or a half-written key/value pair) is trimmed first so the appended closers
// land on a token boundary.
func repairBalance(text string) string {
	if opens, closes := countBrackets(text, '[', ']'); opens > closes {
		text = trimDanglingString(text)
		opens, closes = countBrackets(text, '[', ']')
		text += strings.Repeat("]", opens-closes)
	}

	if opens, closes := countBrackets(text, '{', '}'); opens > closes {
		text = trimDanglingPair(text)
		opens, closes = countBrackets(text, '{', '}')
		text += strings.Repeat("}", opens-closes)
	}

	return text
}

// countBrackets tallies open/close occurrences outside string literals.
func countBrackets(text string, open, close byte) (int, int) {
	var opens, closes int
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			opens++
		case c == close:
			closes++
		}
	}
	return opens, closes
}

// trimDanglingString drops a trailing `,"partial` left by mid-array truncation.
func trimDanglingString(text string) string {
	i := len(text)
	for i > 0 && isSpace(text[i-1]) {
		i--
	}
	text = text[:i]

	if hasUnterminatedString(text) {
		if cut := strings.LastIndexByte(text, ','); cut >= 0 {
			return text[:cut]
		}
	}
	return text
}

// trimDanglingPair drops a trailing half-written `,"key": "val` fragment left
// by mid-object truncation.
func trimDanglingPair(text string) string {
	i := len(text)
	for i > 0 && isSpace(text[i-1]) {
		i--
	}
	text = text[:i]

	if len(text) == 0 {
		return text
	}

	last := text[len(text)-1]
	if hasUnterminatedString(text) || last == ':' || last == ',' {
		if cut := strings.LastIndexByte(text, ','); cut >= 0 {
			return text[:cut]
		}
	}
	return text
}

func hasUnterminatedString(text string) bool {
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		switch {
		case escaped:
			escaped = false
		case inString && text[i] == '\\':
			escaped = true
		case text[i] == '"':
			inString = !inString
		}
	}
	return inString
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}
