package archive

import (
	"errors"
	"io/fs"
	"reflect"
	"strings"
	"testing"

	"github.com/jarloc/jarloc/langjson"
	"github.com/jarloc/jarloc/snbt"
)

func buildZip(t *testing.T, files ...string) []byte {
	t.Helper()
	z := NewZip()
	for i := 0; i+1 < len(files); i += 2 {
		z.Write(files[i], []byte(files[i+1]))
	}
	data, err := z.Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	return data
}

func TestZipRoundTrip(t *testing.T) {
	data := buildZip(t,
		"assets/mod/lang/en_us.json", `{"a":"b"}`,
		"META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n",
	)
	if !IsZip(data) {
		t.Fatal("IsZip() = false for a generated archive")
	}

	z, err := OpenZip(data)
	if err != nil {
		t.Fatalf("OpenZip() error: %v", err)
	}
	if want := []string{"assets/mod/lang/en_us.json", "META-INF/MANIFEST.MF"}; !reflect.DeepEqual(z.List(), want) {
		t.Fatalf("List() = %v, want %v", z.List(), want)
	}
	got, err := z.Read("assets/mod/lang/en_us.json")
	if err != nil || string(got) != `{"a":"b"}` {
		t.Fatalf("Read() = %q, %v", got, err)
	}
	if _, err := z.Read("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Read(missing) error = %v, want fs.ErrNotExist", err)
	}
}

func TestOpenZipRejectsGarbage(t *testing.T) {
	if _, err := OpenZip([]byte("definitely not a zip")); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("OpenZip() error = %v, want ErrInvalidArchive", err)
	}
	if IsZip([]byte(`{"a":"b"}`)) {
		t.Fatal("IsZip() = true for JSON")
	}
}

func TestWriteReplacesInPlace(t *testing.T) {
	z := NewZip()
	z.Write("a", []byte("1"))
	z.Write("/b", []byte("2"))
	z.Write("a", []byte("3"))
	if want := []string{"a", "b"}; !reflect.DeepEqual(z.List(), want) {
		t.Fatalf("List() = %v, want %v", z.List(), want)
	}
	if got, _ := z.Read("a"); string(got) != "3" {
		t.Fatalf("a = %q, want 3", got)
	}
}

func TestLangCode(t *testing.T) {
	tests := []struct{ in, want string }{
		{"es", "es_es"},
		{"DE", "de_de"},
		{"pt_br", "pt_br"},
		{"pt-BR", "pt_br"},
		{"zh_cn", "zh_cn"},
	}
	for _, tc := range tests {
		if got := LangCode(tc.in); got != tc.want {
			t.Fatalf("LangCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func mod() *Zip {
	z := NewZip()
	z.Write("assets/examplemod/textures/ruby.png", []byte{0x89})
	z.Write("assets/examplemod/lang/de_de.json", []byte(`{"a":"A-de"}`))
	z.Write("assets/examplemod/lang/en_us.json", []byte(`{"a":"A","b":"B"}`))
	return z
}

func TestFindSourceLangFile(t *testing.T) {
	p, err := FindSourceLangFile(mod())
	if err != nil || p != "assets/examplemod/lang/en_us.json" {
		t.Fatalf("FindSourceLangFile() = %q, %v", p, err)
	}

	onlyOther := NewZip()
	onlyOther.Write("assets/x/lang/fr_fr.json", []byte(`{}`))
	if p, err := FindSourceLangFile(onlyOther); err != nil || p != "assets/x/lang/fr_fr.json" {
		t.Fatalf("FindSourceLangFile(fallback) = %q, %v", p, err)
	}

	none := NewZip()
	none.Write("assets/x/lang/en_us.lang", []byte("a=b"))
	if _, err := FindSourceLangFile(none); !errors.Is(err, ErrNoLangFile) {
		t.Fatalf("FindSourceLangFile(none) error = %v, want ErrNoLangFile", err)
	}
}

func TestFindExistingTranslation(t *testing.T) {
	z := mod()
	z.Write("assets/examplemod/lang/es.json", []byte(`{}`))

	if p, ok := FindExistingTranslation(z, "de"); !ok || p != "assets/examplemod/lang/de_de.json" {
		t.Fatalf("FindExistingTranslation(de) = %q, %v", p, ok)
	}
	if p, ok := FindExistingTranslation(z, "es"); !ok || p != "assets/examplemod/lang/es.json" {
		t.Fatalf("FindExistingTranslation(es) = %q, %v, want generic fallback", p, ok)
	}
	if _, ok := FindExistingTranslation(z, "pt_br"); ok {
		t.Fatal("FindExistingTranslation(pt_br) found a file")
	}
}

func TestLoadExistingTranslation(t *testing.T) {
	obj, p, err := LoadExistingTranslation(mod(), "de")
	if err != nil || p == "" || obj.Len() != 1 {
		t.Fatalf("LoadExistingTranslation() = %v, %q, %v", obj, p, err)
	}
	obj, p, err = LoadExistingTranslation(mod(), "ja")
	if obj != nil || p != "" || err != nil {
		t.Fatalf("LoadExistingTranslation(missing) = %v, %q, %v", obj, p, err)
	}

	broken := NewZip()
	broken.Write("assets/m/lang/es_es.json", []byte(`{"a": `))
	if _, _, err := LoadExistingTranslation(broken, "es"); err == nil {
		t.Fatal("LoadExistingTranslation() accepted invalid JSON")
	}
}

func TestTranslatedPath(t *testing.T) {
	tests := []struct{ src, target, want string }{
		{"assets/examplemod/lang/en_us.json", "es", "assets/examplemod/lang/es_es.json"},
		{"assets/examplemod/lang/en_us.json", "pt_br", "assets/examplemod/lang/pt_br.json"},
		{"lang/en_us.json", "es", "assets/translated_mod/lang/es_es.json"},
		{"ftbquests/lang/en_us.json", "fr", "ftbquests/lang/fr_fr.json"},
	}
	for _, tc := range tests {
		if got := TranslatedPath(tc.src, tc.target); got != tc.want {
			t.Fatalf("TranslatedPath(%q, %q) = %q, want %q", tc.src, tc.target, got, tc.want)
		}
	}
}

func TestPackMeta(t *testing.T) {
	data, err := PackMeta("Spanish & more")
	if err != nil {
		t.Fatalf("PackMeta() error: %v", err)
	}
	want := "{\n  \"pack\": {\n    \"pack_format\": 15,\n    \"description\": \"Spanish & more\"\n  }\n}\n"
	if string(data) != want {
		t.Fatalf("PackMeta() =\n%s\nwant\n%s", data, want)
	}
}

const chapter = `{
	quests: [{
		title: "Welcome"
		description: ["Gather wood."]
	}]
}`

func TestExtractQuests(t *testing.T) {
	z := NewZip()
	z.Write("overrides/config/ftbquests/quests/chapters/getting_started.snbt", []byte(chapter))
	z.Write("overrides/config/ftbquests/quests/chapters/empty.snbt", []byte(`{ quests: [] }`))
	z.Write("overrides/config/ftbquests/quests/data.snbt", []byte(`title: "Not a chapter"`))

	if !IsModpack(z) {
		t.Fatal("IsModpack() = false")
	}
	if IsModpack(mod()) {
		t.Fatal("IsModpack(mod) = true")
	}

	qp, err := ExtractQuests(z)
	if err != nil {
		t.Fatalf("ExtractQuests() error: %v", err)
	}
	if qp.Files != 1 || qp.Keys.Len() != 2 {
		t.Fatalf("Files=%d Keys=%v, want 1 file and 2 keys", qp.Files, qp.Keys.Keys())
	}
	for _, k := range qp.Keys.Keys() {
		if !strings.HasPrefix(k, "quest.getting_started.") {
			t.Fatalf("key %q not namespaced by chapter", k)
		}
	}
	want := []string{"overrides/config/ftbquests/quests/chapters/getting_started.snbt"}
	if !reflect.DeepEqual(qp.Overrides.List(), want) {
		t.Fatalf("Overrides = %v, want %v", qp.Overrides.List(), want)
	}
	rewritten, _ := qp.Overrides.Read(want[0])
	if strings.Contains(string(rewritten), "Welcome") {
		t.Fatal("override still carries the literal title")
	}
}

func TestMergePacks(t *testing.T) {
	base := buildZip(t,
		"pack.mcmeta", `{"pack":{"pack_format":15,"description":"base"}}`,
		"assets/examplemod/lang/es_es.json", `{"old":"viejo"}`,
		"assets/minecraft/textures/x.png", "png",
	)
	item := buildZip(t,
		"pack.mcmeta", `{"pack":{"pack_format":15,"description":"item"}}`,
		"assets/examplemod/lang/es_es.json", `{"new":"nuevo"}`,
	)

	res, err := MergePacks(
		[]Pack{{Name: "base.zip", Data: base}, {Name: "broken.zip", Data: []byte("nope")}},
		[]Pack{{Name: "examplemod.jar", Data: item}},
		"es",
	)
	if err != nil {
		t.Fatalf("MergePacks() error: %v", err)
	}
	if res.Bases != 1 || res.Translations != 1 || len(res.Failed) != 1 {
		t.Fatalf("MergePacks() bases=%d translations=%d failed=%v", res.Bases, res.Translations, res.Failed)
	}

	lang, _ := res.Zip.Read("assets/examplemod/lang/es_es.json")
	if string(lang) != `{"new":"nuevo"}` {
		t.Fatalf("translation did not override base: %s", lang)
	}
	meta, _ := res.Zip.Read(PackMetaPath)
	obj, err := langjson.ParseObject(meta)
	if err != nil {
		t.Fatalf("pack.mcmeta invalid: %v", err)
	}
	packV, _ := obj.Get("pack")
	desc, _ := packV.(*langjson.Object).String("description")
	if !strings.Contains(desc, "1 bases + 1 translations") {
		t.Fatalf("description = %q", desc)
	}
}

func TestMergePacksNothingToMerge(t *testing.T) {
	res, err := MergePacks(nil, []Pack{{Name: "bad", Data: []byte("x")}}, "es")
	if err != nil {
		t.Fatalf("MergePacks() error: %v", err)
	}
	if res.Zip != nil {
		t.Fatal("MergePacks() produced a pack from nothing")
	}
}

func TestExtractQuestsJoinsChaptersInArchiveOrder(t *testing.T) {
	z := NewZip()
	z.Write("config/ftbquests/quests/chapters/b_second.snbt", []byte(`{ title: "Two" }`))
	z.Write("config/ftbquests/quests/chapters/a_first.snbt", []byte(`{ title: "One" subtitle: "Uno" }`))

	qp, err := ExtractQuests(z)
	if err != nil {
		t.Fatalf("ExtractQuests() error: %v", err)
	}
	want := []string{
		snbt.Key("b_second", "title", "Two"),
		snbt.Key("a_first", "title", "One"),
		snbt.Key("a_first", "subtitle", "Uno"),
	}
	if qp.Files != 2 || !reflect.DeepEqual(qp.Keys.Keys(), want) {
		t.Fatalf("Files=%d Keys=%v, want 2 files and %v", qp.Files, qp.Keys.Keys(), want)
	}
}
