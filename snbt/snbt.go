// Package snbt extracts translatable text from FTB Quests chapter files.
//
// Chapter files are SNBT (stringified NBT) documents in which quest text is
// stored inline:
//
//	{
//		title: "Getting Started"
//		subtitle: "Your first steps"
//		description: [
//			"Craft a crafting table."
//			""
//			"Then build a &6furnace&r."
//		]
//	}
//
// Extract replaces every literal with a placeholder key such as
// {quest.chapter_1.title.2f4a1c0b} and returns the key -> text table, which
// can then be shipped as an ordinary language file.
package snbt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/jarloc/jarloc/langjson"
)

var (
	// fieldRe matches single-value text fields. Group 1 is the field name,
	// group 2 the literal without quotes.
	fieldRe = regexp.MustCompile(`\b(title|subtitle)\s*:\s*"((?:[^"\\\n]|\\.)*)"`)
	// descriptionRe matches a description array up to its first ']'.
	descriptionRe = regexp.MustCompile(`\bdescription\s*:\s*\[[\s\S]*?\]`)
	// literalRe never spans lines, so an empty "" line cannot pair its
	// closing quote with the next line's opening one.
	literalRe = regexp.MustCompile(`"((?:[^"\\\n]|\\.)*)"`)
)

// Result holds the outcome of extracting one document.
type Result struct {
	// Document is the input with extracted literals replaced by placeholders.
	Document string
	// Keys maps each placeholder key to its original text, in document order
	// for titles and subtitles followed by description lines.
	Keys *langjson.Object
}

// Hash returns a short, stable identifier for text: the 32-bit polynomial
// string hash (h = 31*h + c over UTF-16 code units), made non-negative and
// rendered as at most 8 hex digits.
func Hash(text string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(text)) {
		h = h*31 + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	s := fmt.Sprintf("%x", abs)
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

// Key builds the placeholder key for text found in field of document docID.
func Key(docID, field, text string) string {
	return fmt.Sprintf("quest.%s.%s.%s", docID, field, Hash(text))
}

// IsPlaceholder reports whether a literal is already a {key} reference.
func IsPlaceholder(text string) bool {
	return strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}")
}

// Extract rewrites doc, replacing title, subtitle and description literals
// with placeholders namespaced by docID. Placeholders and blank literals are
// left alone, so extracting an already extracted document is a no-op.
// Unbalanced quoting is not an error: whatever cannot be matched simply stays
// in the document.
func Extract(doc, docID string) Result {
	keys := langjson.NewObject()

	doc = replaceSubmatches(doc, fieldRe, func(m []string) (string, bool) {
		field, raw := m[1], m[2]
		if IsPlaceholder(raw) || strings.TrimSpace(raw) == "" {
			return "", false
		}
		key := Key(docID, field, raw)
		keys.Set(key, unescape(raw))
		return "{" + key + "}", true
	}, 2)

	doc = descriptionRe.ReplaceAllStringFunc(doc, func(block string) string {
		return replaceSubmatches(block, literalRe, func(m []string) (string, bool) {
			raw := m[1]
			if IsPlaceholder(raw) || strings.TrimSpace(raw) == "" {
				return "", false
			}
			key := Key(docID, "desc", raw)
			keys.Set(key, unescape(raw))
			return "{" + key + "}", true
		}, 1)
	})

	return Result{Document: doc, Keys: keys}
}

// replaceSubmatches calls fn for every match of re in s and, when fn reports
// true, replaces capture group `group` with its return value. The rest of the
// match, whitespace included, is kept as is.
func replaceSubmatches(s string, re *regexp.Regexp, fn func([]string) (string, bool), group int) string {
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		repl, ok := fn(m)
		if !ok {
			continue
		}
		start, end := loc[2*group], loc[2*group+1]
		b.WriteString(s[last:start])
		b.WriteString(repl)
		last = end
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// unescape resolves the \" and \\ escapes of an SNBT string literal.
func unescape(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) && (raw[i+1] == '"' || raw[i+1] == '\\') {
			i++
		}
		b.WriteByte(raw[i])
	}
	return b.String()
}

// Merge collects the keys of several results into one table. A key that
// appears in more than one result keeps its first position.
func Merge(results ...Result) *langjson.Object {
	out := langjson.NewObject()
	for _, r := range results {
		for _, k := range r.Keys.Keys() {
			v, _ := r.Keys.Get(k)
			out.Set(k, v)
		}
	}
	return out
}
