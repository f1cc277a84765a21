package judges

import (
	"strings"
	"text/template"
)

// TemplateFuncs returns the functions available to LLM judge prompt
// templates.
//
// Usage:
//
//	tmpl, err := template.New("prompt").Funcs(TemplateFuncs()).Parse(text)
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// add converts 0-based indices to 1-based labels.
		// Template usage: {{add $i 1}}
		"add": func(a, b int) int {
			return a + b
		},

		"sub": func(a, b int) int {
			return a - b
		},

		// truncate limits string length in runes, adding "..." if truncated.
		// Template usage: {{truncate .Text 200}}
		"truncate": truncate,

		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"trim":  strings.TrimSpace,

		// oneline flattens newlines so a candidate fits on its list line.
		// Template usage: {{oneline .Text}}
		"oneline": func(s string) string {
			return strings.Join(strings.Fields(s), " ")
		},

		"join": func(elems []string, sep string) string {
			return strings.Join(elems, sep)
		},
	}
}

func truncate(s string, length int) string {
	if length <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	if length > 3 {
		return string(r[:length-3]) + "..."
	}
	return string(r[:length])
}

// extractJSON pulls the first JSON object out of a model response, looking
// inside markdown code fences first.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```"); start != -1 {
		body := response[start+3:]
		if nl := strings.Index(body, "\n"); nl != -1 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end != -1 {
			if candidate := strings.TrimSpace(body[:end]); strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}
	depth, inString, escaped := 0, false, false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
