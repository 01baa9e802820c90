package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Sumatoshi-tech/pipeshift/pkg/safeconv"
)

// DocumentStore is a thread-safe store for open document contents keyed by
// URI.
type DocumentStore struct {
	documents map[string]string
	mu        sync.RWMutex
}

// NewDocumentStore creates an empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[string]string)}
}

// Set stores document content for the given URI.
func (ds *DocumentStore) Set(uri, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[uri] = content
}

// Get retrieves document content by URI.
func (ds *DocumentStore) Get(uri string) (string, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	content, ok := ds.documents[uri]

	return content, ok
}

// Delete removes document content by URI.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

// fileName derives the name used to pick a grammar from a document URI.
func fileName(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Path == "" {
		return uri
	}

	return filepath.FromSlash(parsed.Path)
}

// lineIndex converts byte offsets to LSP positions, which count UTF-16
// code units within a line.
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) *lineIndex {
	starts := []int{0}

	for i := range len(text) {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &lineIndex{text: text, starts: starts}
}

func (li *lineIndex) position(offset int) protocol.Position {
	offset = min(max(offset, 0), len(li.text))

	line := 0
	for line+1 < len(li.starts) && li.starts[line+1] <= offset {
		line++
	}

	units := 0

	for _, r := range li.text[li.starts[line]:offset] {
		units += utf16.RuneLen(r)
	}

	return protocol.Position{
		Line:      safeconv.MustIntToUint32(line),
		Character: safeconv.MustIntToUint32(units),
	}
}

// offset converts an LSP position back to a byte offset, clamping to the
// end of the line.
func (li *lineIndex) offset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(li.starts) {
		return len(li.text)
	}

	start := li.starts[line]

	end := len(li.text)
	if line+1 < len(li.starts) {
		end = li.starts[line+1]
	}

	rest := li.text[start:end]
	units := int(pos.Character)

	for i, r := range rest {
		if units <= 0 || r == '\n' {
			return start + i
		}

		units -= utf16.RuneLen(r)
	}

	return start + len(strings.TrimSuffix(rest, "\n"))
}

func (li *lineIndex) rangeOf(start, end int) protocol.Range {
	return protocol.Range{Start: li.position(start), End: li.position(end)}
}
