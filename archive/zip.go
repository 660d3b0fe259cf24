// Package archive reads mod jars, modpack zips and resource packs, and
// builds the translated resource packs jarloc produces.
//
// Everything operates on the small Archive contract (list, read, write,
// generate) so that the translation pipeline never touches zip mechanics.
// Zip is the in-memory implementation used for both input and output.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

var (
	// ErrInvalidArchive reports data that is not a readable zip/jar.
	ErrInvalidArchive = errors.New("not a valid JAR/ZIP archive")
	// ErrNoLangFile reports an archive without any */lang/*.json file.
	ErrNoLangFile = errors.New("no language file found")
)

// Archive is the container contract used by the translation pipeline.
type Archive interface {
	// List returns the file paths in the archive, in archive order.
	// Directories are not listed.
	List() []string
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
	// Write adds or replaces the file at path.
	Write(path string, data []byte)
	// Generate serializes the archive.
	Generate() ([]byte, error)
}

// Zip is an in-memory zip archive that keeps insertion order.
type Zip struct {
	names []string
	files map[string][]byte
}

// NewZip returns an empty archive.
func NewZip() *Zip {
	return &Zip{files: make(map[string][]byte)}
}

// IsZip reports whether data starts with a zip local-file or
// end-of-central-directory signature.
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04")) || bytes.HasPrefix(data, []byte("PK\x05\x06"))
}

// OpenZip loads every file of a zip/jar into memory.
func OpenZip(data []byte) (*Zip, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	z := NewZip()
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", ErrInvalidArchive, f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidArchive, f.Name, err)
		}
		z.Write(f.Name, content)
	}
	return z, nil
}

func (z *Zip) List() []string {
	out := make([]string, len(z.names))
	copy(out, z.names)
	return out
}

func (z *Zip) Read(path string) ([]byte, error) {
	data, ok := z.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return data, nil
}

func (z *Zip) Write(path string, data []byte) {
	path = strings.TrimPrefix(path, "/")
	if _, ok := z.files[path]; !ok {
		z.names = append(z.names, path)
	}
	z.files[path] = data
}

// Len returns the number of files.
func (z *Zip) Len() int { return len(z.names) }

// Generate writes a deflated zip with the files in insertion order.
func (z *Zip) Generate() ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range z.names {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("adding %s: %w", name, err)
		}
		if _, err := fw.Write(z.files[name]); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// CopyFrom copies every file of src into z, skipping paths for which skip
// returns true.
func CopyFrom(z Archive, src Archive, skip func(path string) bool) error {
	for _, p := range src.List() {
		if skip != nil && skip(p) {
			continue
		}
		data, err := src.Read(p)
		if err != nil {
			return err
		}
		z.Write(p, data)
	}
	return nil
}
