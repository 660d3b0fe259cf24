// Package i18n translates the jarloc command-line interface.
//
// T and N look messages up in the gettext catalogs embedded under
// locales/{lang}/LC_MESSAGES/jarloc.po and fall back to the msgid.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the .po catalogs.
//
//go:embed all:locales
var locales embed.FS

const domain = "jarloc"

var po *gotext.Locale

// Init loads the catalog for lang. If lang is empty, it is detected from
// LANGUAGE, LC_ALL, LC_MESSAGES and LANG, in that order. Without a matching
// catalog the CLI stays in English.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	catalog := catalogFor(lang)
	if catalog == "" {
		po = nil
		return
	}
	po = gotext.NewLocaleFSWithPath(catalog, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// catalogFor returns the embedded catalog serving lang: the exact locale
// first ("pt_BR"), then its base language ("es" for "es_MX" or "es-AR").
// It returns "" when there is none.
func catalogFor(lang string) string {
	lang = strings.ReplaceAll(lang, "-", "_")
	candidates := []string{lang}
	if i := strings.IndexByte(lang, '_'); i > 0 {
		candidates = append(candidates, lang[:i])
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := fs.Stat(locales, path.Join("locales", c, "LC_MESSAGES", domain+".po")); err == nil {
			return c
		}
	}
	return ""
}

// T translates a string, returning msgid when no translation exists.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			// LANGUAGE is a colon-separated list.
			if env == "LANGUAGE" {
				parts := strings.SplitN(val, ":", 2)
				val = parts[0]
			}
			// "es_ES.UTF-8" -> "es_ES"
			if idx := strings.IndexByte(val, '.'); idx >= 0 {
				val = val[:idx]
			}
			if val == "C" || val == "POSIX" || val == "" {
				continue
			}
			return val
		}
	}
	return "en"
}
