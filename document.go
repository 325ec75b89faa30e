package baselint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mhollis/baselint/internal/parser"
)

// Document is the text-document abstraction the Analyzer consumes: a
// stable identity, a language tag, and the source text.
type Document interface {
	// URI identifies the document across passes; cache keys and
	// debounce keys derive from it.
	URI() string
	// Language is the canonical or aliased language id ("css", "js",
	// "typescriptreact", ...).
	Language() string
	// Text returns the document's current content. The Analyzer does
	// not mutate it.
	Text() []byte
}

// MemDocument is an in-memory Document.
type MemDocument struct {
	uri      string
	language string
	content  []byte
}

// NewMemDocument wraps the given content as a Document.
func NewMemDocument(uri, language string, content []byte) *MemDocument {
	return &MemDocument{uri: uri, language: language, content: content}
}

func (d *MemDocument) URI() string      { return d.uri }
func (d *MemDocument) Language() string { return d.language }
func (d *MemDocument) Text() []byte     { return d.content }

// FileDocument is a Document backed by a file on disk, read once at
// construction. The language comes from the file extension.
type FileDocument struct {
	path     string
	language string
	content  []byte
}

// NewFileDocument reads path and wraps it as a Document. The URI uses
// the absolute path so the same file maps to the same cache entries
// regardless of how it was referenced. Unsupported extensions return
// ErrUnknownLanguage.
func NewFileDocument(path string) (*FileDocument, error) {
	lang, ok := parser.LanguageForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &FileDocument{path: abs, language: lang, content: content}, nil
}

func (d *FileDocument) URI() string      { return "file://" + d.path }
func (d *FileDocument) Language() string { return d.language }
func (d *FileDocument) Text() []byte     { return d.content }

// Path returns the on-disk path the document was read from.
func (d *FileDocument) Path() string { return d.path }
