package batch

import (
	"github.com/jarloc/jarloc/langjson"
	"github.com/jarloc/jarloc/merge"
)

// Status is the lifecycle state of one item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusTranslating Status = "translating"
	StatusDone        Status = "done"
	StatusWarning     Status = "warning"
	StatusError       Status = "error"
)

// Kind tells how an item's data was interpreted.
type Kind string

const (
	KindUnknown  Kind = ""
	KindMod      Kind = "mod"
	KindModpack  Kind = "modpack"
	KindLangFile Kind = "langfile"
)

// Item is one file submitted for translation: a mod jar, a modpack zip or a
// bare JSON language file.
type Item struct {
	Name   string
	Data   []byte
	Kind   Kind
	Status Status
	// Message explains a warning or error status.
	Message string
	// SourcePath is the language file (or chapter directory) translated.
	SourcePath string
	// Translation is the final merged translation.
	Translation *langjson.Object
	// Stats describes how much an existing translation already covered.
	Stats merge.Stats
	// Pack is a resource pack zip holding the translated files.
	Pack []byte

	progress *chunkProgress
}

// chunkProgress keeps the chunks of an item translated before a run was
// stopped, so the next run continues at the first missing chunk.
type chunkProgress struct {
	payload string
	results []any
}

// retryable reports whether a run should pick the item up.
func (it *Item) retryable() bool {
	return it.Status == StatusPending || it.Status == StatusError
}
