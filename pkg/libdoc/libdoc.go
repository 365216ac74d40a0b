// SPDX-License-Identifier: MPL-2.0

package libdoc

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type (
	// KeywordSpec carries the fields used to build a Keyword.
	KeywordSpec struct {
		Name   string
		Args   []Argument
		Doc    string
		Lineno int
		Tags   []string
		// Source is the file defining the keyword when it differs from the
		// library source (keywords inherited from another module).
		Source string
	}

	// Keyword is one callable operation exposed by a library.
	Keyword struct {
		name   string
		args   []Argument
		doc    string
		lineno int
		tags   []string
		source string
	}

	// LibrarySpec carries the fields used to build a LibraryDoc.
	LibrarySpec struct {
		Name        LibraryName
		Source      string
		Lineno      int
		SpecVersion SpecVersion
		DocFormat   DocFormat
		Doc         string
		Version     string
		Scope       string
		Keywords    []Keyword
	}

	// LibraryDoc is the parsed description of one library.
	LibraryDoc struct {
		name        LibraryName
		source      string
		lineno      int
		specVersion SpecVersion
		docFormat   DocFormat
		doc         string
		version     string
		scope       string
		keywords    []Keyword
	}
)

// NewKeyword builds a Keyword, copying the argument and tag slices.
func NewKeyword(s KeywordSpec) (Keyword, error) {
	if err := ValidateArguments(s.Name, s.Args); err != nil {
		return Keyword{}, err
	}
	return Keyword{
		name:   s.Name,
		args:   slices.Clone(s.Args),
		doc:    s.Doc,
		lineno: s.Lineno,
		tags:   slices.Clone(s.Tags),
		source: s.Source,
	}, nil
}

// Name returns the display name.
func (k Keyword) Name() string { return k.name }

// Args returns a copy of the argument list.
func (k Keyword) Args() []Argument { return slices.Clone(k.args) }

// Doc returns the raw documentation string.
func (k Keyword) Doc() string { return k.doc }

// Lineno returns the 1-based definition line, or 0 for spec-only records.
func (k Keyword) Lineno() int { return k.lineno }

// Source returns the defining file when known and different from the library.
func (k Keyword) Source() string { return k.source }

// Tags returns the tags in display order.
func (k Keyword) Tags() []string { return slices.Clone(k.tags) }

// TagSet returns the tags as a set, for order-insensitive comparison.
func (k Keyword) TagSet() map[string]struct{} {
	set := make(map[string]struct{}, len(k.tags))
	for _, t := range k.tags {
		set[t] = struct{}{}
	}
	return set
}

// Signature renders "Name(a: int=10, *args)".
func (k Keyword) Signature() string {
	parts := make([]string, len(k.args))
	for i, a := range k.args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", k.name, strings.Join(parts, ", "))
}

// New builds a LibraryDoc. The keyword slice is copied; the result is never
// mutated afterwards.
func New(s LibrarySpec) (*LibraryDoc, error) {
	if err := s.Name.Validate(); err != nil {
		return nil, err
	}
	format := s.DocFormat
	if format == "" {
		format = DocFormatRobot
	}
	return &LibraryDoc{
		name:        s.Name,
		source:      s.Source,
		lineno:      s.Lineno,
		specVersion: s.SpecVersion,
		docFormat:   format,
		doc:         s.Doc,
		version:     s.Version,
		scope:       s.Scope,
		keywords:    slices.Clone(s.Keywords),
	}, nil
}

// Name returns the resolution key.
func (d *LibraryDoc) Name() LibraryName { return d.name }

// Source returns the path of the implementation or specification file.
func (d *LibraryDoc) Source() string { return d.source }

// Lineno returns the definition line of the library itself, 0 if unknown.
func (d *LibraryDoc) Lineno() int { return d.lineno }

// SpecVersion returns the declared schema version.
func (d *LibraryDoc) SpecVersion() SpecVersion { return d.specVersion }

// DocFormat returns the format tag for every Doc string of the library.
func (d *LibraryDoc) DocFormat() DocFormat { return d.docFormat }

// Doc returns the library-level documentation.
func (d *LibraryDoc) Doc() string { return d.doc }

// Version returns the library's own version string, if declared.
func (d *LibraryDoc) Version() string { return d.version }

// Scope returns the library scope (GLOBAL, SUITE, TEST), if declared.
func (d *LibraryDoc) Scope() string { return d.scope }

// Keywords returns a copy of the keyword list in document order.
func (d *LibraryDoc) Keywords() []Keyword { return slices.Clone(d.keywords) }

// KeywordNames returns the sorted set of keyword display names.
func (d *LibraryDoc) KeywordNames() []string {
	set := make(map[string]struct{}, len(d.keywords))
	for _, k := range d.keywords {
		set[k.name] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Keyword looks up a keyword by exact display name.
func (d *LibraryDoc) Keyword(name string) (Keyword, bool) {
	for _, k := range d.keywords {
		if k.name == name {
			return k, true
		}
	}
	return Keyword{}, false
}
