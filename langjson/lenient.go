package langjson

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

var (
	markdownCodeBlock = regexp.MustCompile("(?s)```(?:json5?|JSON)?\\s*(.*?)\\s*```")
	leadingFence      = regexp.MustCompile("^```(?:json5?|JSON)?\\s*")
)

// StripFences removes a markdown code fence around model output. An opening
// fence without a closing one (truncated output) is removed as well.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := markdownCodeBlock.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	text = leadingFence.ReplaceAllString(text, "")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ParseLenient parses JSON produced by a language model. It tries, in order:
// strict parsing, parsing after trailing-comma removal and bracket balancing,
// JSON5, and JSON5 with a closing brace appended. Only the first two keep
// object key order; JSON5 results have their keys sorted.
func ParseLenient(text string) (any, error) {
	text = StripFences(text)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	v, strictErr := Parse([]byte(text))
	if strictErr == nil {
		return v, nil
	}

	if repaired := Repair(text); repaired != text {
		if v, err := Parse([]byte(repaired)); err == nil {
			return v, nil
		}
	}

	var loose any
	if err := json5.Unmarshal([]byte(text), &loose); err == nil {
		return fromLoose(loose), nil
	}

	patched := text
	if !strings.HasSuffix(patched, "}") {
		patched += "}"
	}
	if err := json5.Unmarshal([]byte(patched), &loose); err == nil {
		return fromLoose(loose), nil
	}

	return nil, strictErr
}

// Repair fixes the two most common defects of truncated model output:
// trailing commas and unclosed strings/objects/arrays. Text inside string
// literals is never changed.
func Repair(text string) string {
	var (
		b        strings.Builder
		stack    []byte
		inString bool
		escaped  bool
		// output offset of the last ',' or '{' outside a string
		lastSep = -1
	)
	for i := 0; i < len(text); i++ {
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
			b.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
			lastSep = b.Len()
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		case ',':
			if closesNext(text[i+1:]) {
				continue
			}
			lastSep = b.Len()
		}
		b.WriteByte(c)
	}

	if inString {
		if escaped {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}
	out := strings.TrimRight(b.String(), " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	// A dangling key with no value cannot be recovered; drop it.
	if strings.HasSuffix(out, ":") && lastSep >= 0 && lastSep < len(out) {
		if out[lastSep] == ',' {
			out = out[:lastSep]
		} else {
			out = out[:lastSep+1]
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}

// closesNext reports whether the next non-space byte of s closes an object
// or array.
func closesNext(s string) bool {
	t := strings.TrimLeft(s, " \t\r\n")
	return t != "" && (t[0] == '}' || t[0] == ']')
}

// fromLoose converts encoding/json-style values into the ordered form.
func fromLoose(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			o.Set(k, fromLoose(t[k]))
		}
		return o
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromLoose(e)
		}
		return out
	default:
		return t
	}
}
