// SPDX-License-Identifier: MPL-2.0

// Package docfmt turns raw keyword documentation into text a client can
// display. Robot Framework markup is converted to Markdown, HTML passes
// through, and anything else is treated as plain text.
//
// Rendered output is cached by (format, content hash) and never stored on the
// LibraryDoc itself.
package docfmt

import (
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rfls/libspec/pkg/libdoc"
)

// DefaultCacheSize is the number of rendered docs kept when no size is given.
const DefaultCacheSize = 1024

// Kind names the markup of a Rendered value.
type Kind string

const (
	KindMarkdown  Kind = "markdown"
	KindHTML      Kind = "html"
	KindPlainText Kind = "plaintext"
)

type (
	// Rendered is formatted documentation.
	Rendered struct {
		Text string
		Kind Kind
	}

	// Formatter renders documentation with a bounded cache. It is safe for
	// concurrent use.
	Formatter struct {
		cache *lru.Cache[cacheKey, Rendered]
	}

	cacheKey struct {
		format libdoc.DocFormat
		sum    [sha256.Size]byte
	}
)

// New creates a Formatter caching up to size rendered docs. Non-positive
// sizes select DefaultCacheSize.
func New(size int) (*Formatter, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, Rendered](size)
	if err != nil {
		return nil, fmt.Errorf("create render cache: %w", err)
	}
	return &Formatter{cache: cache}, nil
}

// Format renders doc written in format.
func (f *Formatter) Format(doc string, format libdoc.DocFormat) Rendered {
	key := cacheKey{format: format, sum: sha256.Sum256([]byte(doc))}
	if r, ok := f.cache.Get(key); ok {
		return r
	}
	r := render(doc, format)
	f.cache.Add(key, r)
	return r
}

// KeywordDocs renders a keyword's documentation using its library's format.
func (f *Formatter) KeywordDocs(lib *libdoc.LibraryDoc, kw libdoc.Keyword) Rendered {
	return f.Format(kw.Doc(), lib.DocFormat())
}

// LibraryDocs renders the library-level documentation.
func (f *Formatter) LibraryDocs(lib *libdoc.LibraryDoc) Rendered {
	return f.Format(lib.Doc(), lib.DocFormat())
}

// Len returns the number of cached renderings.
func (f *Formatter) Len() int { return f.cache.Len() }

func render(doc string, format libdoc.DocFormat) Rendered {
	switch format {
	case libdoc.DocFormatRobot:
		return Rendered{Text: RobotToMarkdown(doc), Kind: KindMarkdown}
	case libdoc.DocFormatHTML:
		return Rendered{Text: doc, Kind: KindHTML}
	default:
		return Rendered{Text: doc, Kind: KindPlainText}
	}
}
