// SPDX-License-Identifier: MPL-2.0

// Package pystatic generates library specifications from Python sources
// without running an interpreter.
//
// Sources are parsed with tree-sitter. Public top-level functions become
// keywords, as do the public methods of a class named after the module (the
// "class library" convention). Parameter annotations and default values are
// captured verbatim from the source text.
package pystatic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/rfls/libspec/internal/generator"
	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/specparse"
)

// Toolchain implements generator.Toolchain over Python sources.
type Toolchain struct{}

// New creates a static Python toolchain.
func New() *Toolchain { return &Toolchain{} }

// Generate implements generator.Toolchain.
func (t *Toolchain) Generate(ctx context.Context, req generator.Request) ([]byte, error) {
	path, ok := Resolve(req.Name, req.ModulePaths)
	if !ok {
		return nil, &generator.GenerationError{
			Name: req.Name,
			Err:  fmt.Errorf("%w: searched %d module paths", generator.ErrModuleNotFound, len(req.ModulePaths)),
		}
	}
	doc, err := Introspect(ctx, req.Name, path)
	if err != nil {
		return nil, &generator.GenerationError{Name: req.Name, Err: err}
	}
	return specparse.Marshal(doc)
}

// Resolve finds the source file implementing name. Later module paths shadow
// earlier ones. Dotted names map onto package directories.
func Resolve(name libdoc.LibraryName, modulePaths []string) (string, bool) {
	rel := filepath.FromSlash(strings.ReplaceAll(string(name), ".", "/"))
	for _, dir := range slices.Backward(modulePaths) {
		for _, candidate := range []string{
			filepath.Join(dir, rel+".py"),
			filepath.Join(dir, rel, "__init__.py"),
		} {
			if st, err := os.Stat(candidate); err == nil && st.Mode().IsRegular() {
				return candidate, true
			}
		}
	}
	return "", false
}

// Introspect parses the Python file at path and builds the library it defines.
func Introspect(ctx context.Context, name libdoc.LibraryName, path string) (*libdoc.LibraryDoc, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module source: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	m := module{src: src, path: abs}
	spec := libdoc.LibrarySpec{
		Name:        name,
		Source:      abs,
		Lineno:      1,
		SpecVersion: specparse.MarshalVersion,
		DocFormat:   libdoc.DocFormatRobot,
		Doc:         m.docstring(root),
	}

	assigns := m.assignments(root)
	spec.Version = firstNonEmpty(assigns["ROBOT_LIBRARY_VERSION"], assigns["__version__"])
	spec.Scope = strings.ToUpper(assigns["ROBOT_LIBRARY_SCOPE"])
	if f := assigns["ROBOT_LIBRARY_DOC_FORMAT"]; f != "" {
		if df, err := libdoc.ParseDocFormat(f); err == nil {
			spec.DocFormat = df
		}
	}

	className := lastSegment(string(name))
	for i := range int(root.NamedChildCount()) {
		def := unwrapDecorated(root.NamedChild(i))
		switch def.Type() {
		case "function_definition":
			if kw, ok, err := m.keyword(def, false); err != nil {
				return nil, err
			} else if ok {
				spec.Keywords = append(spec.Keywords, kw)
			}
		case "class_definition":
			if m.text(def.ChildByFieldName("name")) != className {
				continue
			}
			if doc := m.docstring(def.ChildByFieldName("body")); doc != "" {
				spec.Doc = doc
			}
			kws, err := m.methods(def)
			if err != nil {
				return nil, err
			}
			spec.Keywords = append(spec.Keywords, kws...)
		}
	}

	return libdoc.New(spec)
}

// module carries the source of the file being introspected.
type module struct {
	src  []byte
	path string
}

func (m module) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(m.src[n.StartByte():n.EndByte()])
}

func (m module) methods(class *sitter.Node) ([]libdoc.Keyword, error) {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil, nil
	}
	var out []libdoc.Keyword
	for i := range int(body.NamedChildCount()) {
		def := unwrapDecorated(body.NamedChild(i))
		if def.Type() != "function_definition" {
			continue
		}
		kw, ok, err := m.keyword(def, true)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, kw)
		}
	}
	return out, nil
}

func (m module) keyword(def *sitter.Node, method bool) (libdoc.Keyword, bool, error) {
	ident := m.text(def.ChildByFieldName("name"))
	if ident == "" || strings.HasPrefix(ident, "_") {
		return libdoc.Keyword{}, false, nil
	}

	args := m.arguments(def.ChildByFieldName("parameters"))
	if method && len(args) > 0 && (args[0].Name == "self" || args[0].Name == "cls") {
		args = args[1:]
	}

	kw, err := libdoc.NewKeyword(libdoc.KeywordSpec{
		Name:   libdoc.DisplayName(ident),
		Args:   args,
		Doc:    m.docstring(def.ChildByFieldName("body")),
		Lineno: int(def.StartPoint().Row) + 1,
	})
	if err != nil {
		return libdoc.Keyword{}, false, err
	}
	return kw, true, nil
}

func (m module) arguments(params *sitter.Node) []libdoc.Argument {
	if params == nil {
		return nil
	}
	var args []libdoc.Argument
	for i := range int(params.NamedChildCount()) {
		if arg, ok := m.argument(params.NamedChild(i)); ok {
			args = append(args, arg)
		}
	}
	return args
}

func (m module) argument(n *sitter.Node) (libdoc.Argument, bool) {
	switch n.Type() {
	case "identifier":
		return libdoc.NewArgument(m.text(n)), true
	case "list_splat_pattern", "dictionary_splat_pattern":
		name := m.text(n)
		if name == "*" {
			return libdoc.Argument{}, false
		}
		return libdoc.NewArgument(name), true
	case "typed_parameter":
		if n.NamedChildCount() == 0 {
			return libdoc.Argument{}, false
		}
		arg := libdoc.NewArgument(m.text(n.NamedChild(0)))
		if typ := n.ChildByFieldName("type"); typ != nil {
			arg = arg.WithType(collapseWhitespace(m.text(typ)))
		}
		return arg, true
	case "default_parameter":
		arg := libdoc.NewArgument(m.text(n.ChildByFieldName("name")))
		return arg.WithDefault(collapseWhitespace(m.text(n.ChildByFieldName("value")))), true
	case "typed_default_parameter":
		arg := libdoc.NewArgument(m.text(n.ChildByFieldName("name")))
		if typ := n.ChildByFieldName("type"); typ != nil {
			arg = arg.WithType(collapseWhitespace(m.text(typ)))
		}
		return arg.WithDefault(collapseWhitespace(m.text(n.ChildByFieldName("value")))), true
	}
	// keyword_separator, positional_separator, comments
	return libdoc.Argument{}, false
}

// docstring returns the cleaned docstring of a module or block node.
func (m module) docstring(block *sitter.Node) string {
	if block == nil {
		return ""
	}
	for i := range int(block.NamedChildCount()) {
		stmt := block.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			return ""
		}
		lit := stmt.NamedChild(0)
		if lit.Type() != "string" {
			return ""
		}
		return cleanDoc(unquote(m.text(lit)))
	}
	return ""
}

// assignments collects top-level NAME = "literal" statements.
func (m module) assignments(root *sitter.Node) map[string]string {
	out := make(map[string]string)
	for i := range int(root.NamedChildCount()) {
		stmt := root.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		as := stmt.NamedChild(0)
		if as.Type() != "assignment" {
			continue
		}
		left, right := as.ChildByFieldName("left"), as.ChildByFieldName("right")
		if left == nil || right == nil || left.Type() != "identifier" || right.Type() != "string" {
			continue
		}
		out[m.text(left)] = unquote(m.text(right))
	}
	return out
}

func unwrapDecorated(n *sitter.Node) *sitter.Node {
	if n.Type() == "decorated_definition" {
		if def := n.ChildByFieldName("definition"); def != nil {
			return def
		}
	}
	return n
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
