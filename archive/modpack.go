package archive

import (
	"path"
	"strings"

	"github.com/jarloc/jarloc/langjson"
	"github.com/jarloc/jarloc/snbt"
)

// chaptersDir marks FTB Quests chapter files, usually found under
// overrides/config/ftbquests/quests/chapters/.
const chaptersDir = "config/ftbquests/quests/chapters/"

// QuestPack is the result of extracting quest text from a modpack.
type QuestPack struct {
	// Overrides holds the rewritten chapter files at their original paths.
	Overrides *Zip
	// Keys maps placeholder keys to the original quest text.
	Keys *langjson.Object
	// Files is the number of chapter files that contained text.
	Files int
}

// IsModpack reports whether the archive carries FTB Quests chapters.
func IsModpack(a Archive) bool {
	for _, p := range a.List() {
		if strings.Contains(p, chaptersDir) {
			return true
		}
	}
	return false
}

// ChapterID derives the document ID of a chapter file from its name.
func ChapterID(p string) string {
	return strings.TrimSuffix(path.Base(p), ".snbt")
}

// ExtractQuests rewrites every chapter file of a modpack with placeholder
// keys. Chapters without extractable text are left out of Overrides.
func ExtractQuests(a Archive) (*QuestPack, error) {
	qp := &QuestPack{Overrides: NewZip()}
	var chapters []snbt.Result
	for _, p := range a.List() {
		if !strings.Contains(p, chaptersDir) || !strings.HasSuffix(p, ".snbt") {
			continue
		}
		data, err := a.Read(p)
		if err != nil {
			return nil, err
		}
		res := snbt.Extract(string(data), ChapterID(p))
		if res.Keys.Len() == 0 {
			continue
		}
		chapters = append(chapters, res)
		qp.Overrides.Write(p, []byte(res.Document))
	}
	qp.Files = len(chapters)
	qp.Keys = snbt.Merge(chapters...)
	return qp, nil
}
