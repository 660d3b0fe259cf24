package archive

import (
	"fmt"
	"path"
	"strings"

	"github.com/jarloc/jarloc/langjson"
)

// SourceLang is the language mods ship as their reference translation.
const SourceLang = "en_us"

// LangCode converts a target language into Minecraft's file naming:
// lower case, underscores, and a doubled code for bare 2-letter languages
// ("es" -> "es_es", "pt-BR" -> "pt_br").
func LangCode(target string) string {
	code := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(target), "-", "_"))
	if len(code) == 2 {
		return code + "_" + code
	}
	return code
}

func isLangJSON(p string) bool {
	return strings.Contains(p, "/lang/") && strings.HasSuffix(strings.ToLower(p), ".json")
}

// LangFiles lists every */lang/*.json file in archive order.
func LangFiles(a Archive) []string {
	var out []string
	for _, p := range a.List() {
		if isLangJSON(p) {
			out = append(out, p)
		}
	}
	return out
}

// FindSourceLangFile picks the language file to translate from: the first
// en_us file, otherwise the first language file of any kind.
func FindSourceLangFile(a Archive) (string, error) {
	files := LangFiles(a)
	for _, p := range files {
		if strings.Contains(strings.ToLower(path.Base(p)), SourceLang) {
			return p, nil
		}
	}
	if len(files) > 0 {
		return files[0], nil
	}
	return "", ErrNoLangFile
}

// FindExistingTranslation looks for a language file already translated into
// target: <code>.json first, then <lang>.json for 2-letter targets.
func FindExistingTranslation(a Archive, target string) (string, bool) {
	code := LangCode(target)
	candidates := []string{code + ".json"}
	if t := strings.ToLower(strings.TrimSpace(target)); len(t) == 2 {
		candidates = append(candidates, t+".json")
	}
	files := LangFiles(a)
	for _, want := range candidates {
		for _, p := range files {
			if strings.ToLower(path.Base(p)) == want {
				return p, true
			}
		}
	}
	return "", false
}

// LoadExistingTranslation reads the translation found by
// FindExistingTranslation. It returns a nil object and empty path when there
// is none.
func LoadExistingTranslation(a Archive, target string) (*langjson.Object, string, error) {
	p, ok := FindExistingTranslation(a, target)
	if !ok {
		return nil, "", nil
	}
	data, err := a.Read(p)
	if err != nil {
		return nil, p, err
	}
	obj, err := langjson.ParseObject(data)
	if err != nil {
		return nil, p, fmt.Errorf("parsing %s: %w", p, err)
	}
	return obj, p, nil
}

// TranslatedPath returns where the translation of sourcePath is written:
// next to the source file when it sits in a lang directory, otherwise under
// assets/translated_mod/lang.
func TranslatedPath(sourcePath, target string) string {
	name := LangCode(target) + ".json"
	parts := strings.Split(sourcePath, "/")
	if len(parts) >= 3 {
		for _, p := range parts[:len(parts)-1] {
			if p == "lang" {
				parts[len(parts)-1] = name
				return strings.Join(parts, "/")
			}
		}
	}
	return "assets/translated_mod/lang/" + name
}

// QuestLangPath is where the translated quest text of a modpack goes.
func QuestLangPath(target string) string {
	return "kubejs/assets/kubejs/lang/" + LangCode(target) + ".json"
}
