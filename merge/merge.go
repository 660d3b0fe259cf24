// Package merge implements incremental translation: it reduces a source
// language file to the keys a previous translation does not cover yet, and
// folds newly translated keys back into that previous translation.
package merge

import (
	"github.com/jarloc/jarloc/langjson"
)

// Missing returns the entries of source whose keys are absent from existing,
// in source order. A nil existing translation means everything is missing.
// Keys are compared exactly; values are never inspected.
func Missing(source, existing *langjson.Object) *langjson.Object {
	result := langjson.NewObject()
	for _, key := range source.Keys() {
		if existing.Has(key) {
			continue
		}
		v, _ := source.Get(key)
		result.Set(key, v)
	}
	return result
}

// Merge returns existing extended by translated. Keys of existing keep their
// order and come first; new keys follow in translated order. On a collision
// the translated value wins. Neither input is modified.
func Merge(existing, translated *langjson.Object) *langjson.Object {
	var result *langjson.Object
	if existing != nil {
		result = existing.Clone()
	} else {
		result = langjson.NewObject()
	}
	for _, key := range translated.Keys() {
		v, _ := translated.Get(key)
		result.Set(key, v)
	}
	return result
}

// Stats summarizes how much of a source file an existing translation covers.
type Stats struct {
	Total    int
	Existing int
	Missing  int
}

// Coverage counts source keys present and absent in existing.
func Coverage(source, existing *langjson.Object) Stats {
	s := Stats{Total: source.Len()}
	for _, key := range source.Keys() {
		if existing.Has(key) {
			s.Existing++
		}
	}
	s.Missing = s.Total - s.Existing
	return s
}
