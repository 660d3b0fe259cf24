// Package chunk splits translation payloads into size-bounded pieces and
// reassembles translated pieces into the original shape.
//
// A payload is either a mapping (JSON object, *langjson.Object) or a list
// (JSON array, []any). Split records which one it saw in Set.Shape and Merge
// requires it back, so the shape never has to be guessed from provider
// output.
package chunk

import (
	"fmt"
	"unicode/utf8"

	"github.com/jarloc/jarloc/langjson"
)

// Shape tags how a Set is reassembled.
type Shape string

const (
	ShapeMapping Shape = "mapping"
	ShapeList    Shape = "list"
	// ShapeOpaque marks a payload that was not split and is sent verbatim.
	ShapeOpaque Shape = "opaque"
)

const (
	// DefaultSize is the number of keys or elements per chunk.
	DefaultSize = 25
	// LargeDocumentThreshold is the serialized length (in characters)
	// above which a payload is split.
	LargeDocumentThreshold = 15000
)

// Set is an ordered sequence of chunks cut from one payload.
type Set struct {
	Shape  Shape
	Chunks []any
}

// Split partitions v into chunks of at most size keys (mapping) or elements
// (list), in natural order. It returns nil when v is neither. A size below 1
// is treated as 1.
func Split(v any, size int) *Set {
	if size < 1 {
		size = 1
	}
	switch t := v.(type) {
	case *langjson.Object:
		set := &Set{Shape: ShapeMapping}
		keys := t.Keys()
		for i := 0; i < len(keys); i += size {
			end := min(i+size, len(keys))
			part := langjson.NewObject()
			for _, k := range keys[i:end] {
				val, _ := t.Get(k)
				part.Set(k, val)
			}
			set.Chunks = append(set.Chunks, part)
		}
		return set
	case []any:
		set := &Set{Shape: ShapeList}
		for i := 0; i < len(t); i += size {
			end := min(i+size, len(t))
			set.Chunks = append(set.Chunks, t[i:end:end])
		}
		return set
	default:
		return nil
	}
}

// Merge reassembles translated chunks. For ShapeMapping the chunk objects are
// unioned in order; a key repeated by a later chunk overwrites the earlier
// value and keeps its first position. For ShapeList the chunk arrays are
// concatenated.
func Merge(parts []any, shape Shape) (any, error) {
	switch shape {
	case ShapeMapping:
		out := langjson.NewObject()
		for i, p := range parts {
			obj, ok := p.(*langjson.Object)
			if !ok {
				return nil, fmt.Errorf("chunk %d: expected an object, got %T", i+1, p)
			}
			for _, k := range obj.Keys() {
				v, _ := obj.Get(k)
				out.Set(k, v)
			}
		}
		return out, nil
	case ShapeList:
		out := []any{}
		for i, p := range parts {
			arr, ok := p.([]any)
			if !ok {
				return nil, fmt.Errorf("chunk %d: expected an array, got %T", i+1, p)
			}
			out = append(out, arr...)
		}
		return out, nil
	case ShapeOpaque:
		if len(parts) != 1 {
			return nil, fmt.Errorf("opaque payload: expected 1 part, got %d", len(parts))
		}
		return parts[0], nil
	default:
		return nil, fmt.Errorf("unknown chunk shape %q", shape)
	}
}

// Plan is a payload ready to be sent: one serialized text per provider call.
type Plan struct {
	Shape    Shape
	Payloads []string
}

// Prepare decides how content is sent. Content no longer than threshold
// characters, content that is not JSON, and JSON that is neither an object
// nor an array all go out as a single opaque payload. Anything else is split
// into chunks of size entries, each serialized on its own.
func Prepare(content string, threshold, size int) (*Plan, error) {
	opaque := &Plan{Shape: ShapeOpaque, Payloads: []string{content}}
	if threshold <= 0 {
		threshold = LargeDocumentThreshold
	}
	if utf8.RuneCountInString(content) <= threshold {
		return opaque, nil
	}
	v, err := langjson.Parse([]byte(content))
	if err != nil {
		return opaque, nil
	}
	set := Split(v, size)
	if set == nil {
		return opaque, nil
	}
	plan := &Plan{Shape: set.Shape}
	for i, c := range set.Chunks {
		data, err := langjson.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("serializing chunk %d: %w", i+1, err)
		}
		plan.Payloads = append(plan.Payloads, string(data))
	}
	return plan, nil
}

// Assemble merges the translated results of every payload in the plan.
func (p *Plan) Assemble(results []any) (any, error) {
	if len(results) != len(p.Payloads) {
		return nil, fmt.Errorf("got %d translated chunks, want %d", len(results), len(p.Payloads))
	}
	return Merge(results, p.Shape)
}
