// SPDX-License-Identifier: MPL-2.0

package specparse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rfls/libspec/pkg/libdoc"
)

const (
	// FileExt is the extension of specification files.
	FileExt = ".libspec"

	// DefaultMaxSize bounds the size of a specification document. Generated
	// specs for even the largest standard libraries stay well below this.
	DefaultMaxSize int64 = 32 * 1024 * 1024

	inputName = "<input>"
)

// Argument kinds used by specversion 3+ documents.
const (
	kindVarPositional = "VAR_POSITIONAL"
	kindVarNamed      = "VAR_NAMED"
	kindPosOnlyMarker = "POSITIONAL_ONLY_MARKER"
	kindNamedMarker   = "NAMED_ONLY_MARKER"
)

// Parse decodes a libspec document. specPath is the file the bytes were read
// from; it names the document in errors and anchors relative source paths.
// An empty specPath is allowed for in-memory data.
func Parse(data []byte, specPath string) (*libdoc.LibraryDoc, error) {
	name := specPath
	if name == "" {
		name = inputName
	}
	if int64(len(data)) > DefaultMaxSize {
		return nil, &ParseError{Path: name, Reason: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", len(data), DefaultMaxSize)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Path: name, Reason: "empty document"}
	}

	var spec xmlSpec
	if err := xml.Unmarshal(data, &spec); err != nil {
		return nil, &ParseError{Path: name, Reason: "decode XML", Err: err}
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil, &ParseError{Path: name, Reason: "keywordspec has no name attribute"}
	}

	format, err := libdoc.ParseDocFormat(spec.Format)
	if err != nil {
		// Unknown formats degrade to plain text rather than failing the file.
		format = libdoc.DocFormatText
	}

	baseDir := ""
	if specPath != "" {
		baseDir = filepath.Dir(specPath)
	}
	source := resolveSource(spec.Source, baseDir)
	if source == "" && specPath != "" {
		source = absOrSelf(specPath)
	}

	xmlKws := spec.allKeywords()
	keywords := make([]libdoc.Keyword, 0, len(xmlKws))
	for _, xk := range xmlKws {
		kw, err := buildKeyword(xk, baseDir)
		if err != nil {
			return nil, &ParseError{Path: name, Reason: "invalid keyword", Err: err}
		}
		keywords = append(keywords, kw)
	}

	scope := spec.Scope
	if scope == "" {
		scope = spec.ScopeAttr
	}

	doc, err := libdoc.New(libdoc.LibrarySpec{
		Name:        libdoc.LibraryName(strings.TrimSpace(spec.Name)),
		Source:      source,
		Lineno:      atoiOrZero(spec.Lineno),
		SpecVersion: libdoc.SpecVersion(atoiOrZero(spec.SpecVersion)),
		DocFormat:   format,
		Doc:         spec.Doc,
		Version:     strings.TrimSpace(spec.Version),
		Scope:       strings.TrimSpace(scope),
		Keywords:    keywords,
	})
	if err != nil {
		return nil, &ParseError{Path: name, Reason: "invalid library", Err: err}
	}
	return doc, nil
}

func buildKeyword(xk xmlKeyword, baseDir string) (libdoc.Keyword, error) {
	args := make([]libdoc.Argument, 0, len(xk.Arguments.Args))
	for _, xa := range xk.Arguments.Args {
		if xa.structured() {
			if a, ok := structuredArgument(xa); ok {
				args = append(args, a)
			}
			continue
		}
		text := strings.TrimSpace(xa.Text)
		if text == "" || text == "*" || text == "/" {
			continue
		}
		args = append(args, ParseArgument(text))
	}

	tags := make([]string, 0, len(xk.Tags))
	for _, t := range xk.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return libdoc.NewKeyword(libdoc.KeywordSpec{
		Name:   strings.TrimSpace(xk.Name),
		Args:   args,
		Doc:    xk.Doc,
		Lineno: atoiOrZero(xk.Lineno),
		Tags:   tags,
		Source: resolveSource(xk.Source, baseDir),
	})
}

// ParseArgument parses the string form used by specversion <= 2 documents:
// "a", "a=10", "a: int", "a: int = 10", "*args", "**kwargs".
// The default is split off first so defaults containing ':' survive.
func ParseArgument(text string) libdoc.Argument {
	namePart, def, hasDefault := strings.Cut(text, "=")
	namePart, typ, hasType := strings.Cut(namePart, ":")

	a := libdoc.NewArgument(namePart)
	if hasType {
		a = a.WithType(strings.TrimSpace(typ))
	}
	if hasDefault {
		a = a.WithDefault(strings.TrimSpace(def))
	}
	return a
}

// structuredArgument converts a specversion 3+ <arg>. Separator markers ("*"
// and "/") carry no parameter and are dropped.
func structuredArgument(xa xmlArg) (libdoc.Argument, bool) {
	switch xa.Kind {
	case kindPosOnlyMarker, kindNamedMarker:
		return libdoc.Argument{}, false
	}

	name := strings.TrimSpace(xa.Name)
	if name == "" {
		if xa.Repr == "" {
			return libdoc.Argument{}, false
		}
		return ParseArgument(xa.Repr), true
	}

	var a libdoc.Argument
	switch xa.Kind {
	case kindVarPositional:
		a = libdoc.NewArgument("*" + strings.TrimLeft(name, "*"))
	case kindVarNamed:
		a = libdoc.NewArgument("**" + strings.TrimLeft(name, "*"))
	default:
		a = libdoc.NewArgument(name)
	}

	if len(xa.Types) > 0 {
		parts := make([]string, 0, len(xa.Types))
		for _, t := range xa.Types {
			if r := t.render(); r != "" {
				parts = append(parts, r)
			}
		}
		if len(parts) > 0 {
			a = a.WithType(strings.Join(parts, " | "))
		}
	}
	if xa.Default != nil {
		a = a.WithDefault(strings.TrimSpace(*xa.Default))
	}
	return a, true
}

// resolveSource anchors a relative source attribute to the spec's directory so
// consumers can always open the file.
func resolveSource(src, baseDir string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if !filepath.IsAbs(src) && baseDir != "" {
		src = filepath.Join(baseDir, filepath.FromSlash(src))
	}
	return absOrSelf(src)
}

func absOrSelf(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// atoiOrZero returns 0 for missing, malformed or negative numbers; 0 is the
// "unknown" sentinel for both line numbers and spec versions.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
