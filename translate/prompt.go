package translate

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/jarloc/jarloc/langjson"
)

// SystemPrompt is sent as the system message to chat-style APIs.
const SystemPrompt = "You are a helpful assistant that translates JSON files. You output ONLY valid JSON."

const promptTemplate = `TASK: Translate the values of this JSON to target language code: "%s"%s.
CRITICAL RULES:
1. Output MUST be valid, parseable JSON. No markdown formatting.
2. DO NOT translate keys.
3. Preserve all formatting codes (§, %%, <br>).

INPUT JSON:
%s
`

// BuildPrompt returns the user prompt for translating payload into
// targetLang.
func BuildPrompt(payload, targetLang string) string {
	name := LanguageName(targetLang)
	if name != "" {
		name = " (" + name + ")"
	}
	return fmt.Sprintf(promptTemplate, targetLang, name, payload)
}

// LanguageName returns the English name of a language code such as "es",
// "pt_br" or "zh-TW", or "" when the code is not recognized.
func LanguageName(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return ""
	}
	return display.English.Tags().Name(tag)
}

// ParseResponse turns model output into a JSON value, tolerating markdown
// fences, trailing commas, truncated endings and JSON5 syntax.
func ParseResponse(text string) (any, error) {
	v, err := langjson.ParseLenient(text)
	if err != nil {
		return nil, &MalformedResponseError{Raw: truncate(text, 500), Err: err}
	}
	return v, nil
}
