package archive

import (
	"fmt"

	"github.com/jarloc/jarloc/langjson"
)

// PackFormat is the resource pack format written to pack.mcmeta.
const PackFormat = 15

// PackMetaPath is the resource pack manifest.
const PackMetaPath = "pack.mcmeta"

// PackMeta returns a pack.mcmeta document.
func PackMeta(description string) ([]byte, error) {
	type pack struct {
		PackFormat  int    `json:"pack_format"`
		Description string `json:"description"`
	}
	return langjson.Marshal(struct {
		Pack pack `json:"pack"`
	}{pack{PackFormat: PackFormat, Description: description}})
}

// Pack is a named zip blob: a base resource pack or a translated item.
type Pack struct {
	Name string
	Data []byte
}

// MergeResult is the outcome of MergePacks.
type MergeResult struct {
	// Zip is the merged pack, nil when nothing could be merged.
	Zip *Zip
	// Bases and Translations count the packs merged successfully.
	Bases        int
	Translations int
	// Failed lists packs that could not be read.
	Failed []error
}

// MergePacks builds one resource pack out of base packs and translated
// item packs. Base packs are copied first so that translations override
// them; each translation's own pack.mcmeta is skipped and a unified one is
// written last. Unreadable packs are reported in Failed and skipped.
func MergePacks(bases, translations []Pack, target string) (*MergeResult, error) {
	res := &MergeResult{}
	out := NewZip()

	for _, p := range bases {
		z, err := OpenZip(p.Data)
		if err != nil {
			res.Failed = append(res.Failed, fmt.Errorf("base pack %s: %w", p.Name, err))
			continue
		}
		if err := CopyFrom(out, z, nil); err != nil {
			res.Failed = append(res.Failed, fmt.Errorf("base pack %s: %w", p.Name, err))
			continue
		}
		res.Bases++
	}

	skipMeta := func(p string) bool { return p == PackMetaPath }
	for _, p := range translations {
		z, err := OpenZip(p.Data)
		if err != nil {
			res.Failed = append(res.Failed, fmt.Errorf("%s: %w", p.Name, err))
			continue
		}
		if err := CopyFrom(out, z, skipMeta); err != nil {
			res.Failed = append(res.Failed, fmt.Errorf("%s: %w", p.Name, err))
			continue
		}
		res.Translations++
	}

	if res.Bases == 0 && res.Translations == 0 {
		return res, nil
	}

	meta, err := PackMeta(fmt.Sprintf("Merged pack (%s) by JarLoc - %d bases + %d translations",
		target, res.Bases, res.Translations))
	if err != nil {
		return nil, err
	}
	out.Write(PackMetaPath, meta)
	res.Zip = out
	return res, nil
}
