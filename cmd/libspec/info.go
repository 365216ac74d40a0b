// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rfls/libspec/internal/docfmt"
	"github.com/rfls/libspec/internal/issue"
	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/types"
)

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
	outputTOML outputFormat = "toml"

	// glamourWordWrap is the column width of rendered text output.
	glamourWordWrap = 100
)

// errInvalidOutputFormat is returned for an unknown -o value.
var errInvalidOutputFormat = errors.New("invalid output format")

type (
	// outputFormat selects how `libspec info` prints a specification.
	outputFormat string

	infoFlagValues struct {
		folders  folderFlagValues
		noCreate bool
		output   string
		style    string
	}

	// libraryView is the serialized form of a LibraryDoc.
	libraryView struct {
		Name        string        `json:"name" yaml:"name" toml:"name"`
		Version     string        `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
		Scope       string        `json:"scope,omitempty" yaml:"scope,omitempty" toml:"scope,omitempty"`
		DocFormat   string        `json:"doc_format" yaml:"doc_format" toml:"doc_format"`
		SpecVersion int           `json:"spec_version" yaml:"spec_version" toml:"spec_version"`
		Source      string        `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
		Lineno      int           `json:"lineno,omitempty" yaml:"lineno,omitempty" toml:"lineno,omitempty"`
		Doc         string        `json:"doc,omitempty" yaml:"doc,omitempty" toml:"doc,omitempty"`
		Keywords    []keywordView `json:"keywords" yaml:"keywords" toml:"keywords"`
	}

	keywordView struct {
		Name   string         `json:"name" yaml:"name" toml:"name"`
		Args   []argumentView `json:"args" yaml:"args" toml:"args"`
		Doc    string         `json:"doc,omitempty" yaml:"doc,omitempty" toml:"doc,omitempty"`
		Source string         `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
		Lineno int            `json:"lineno,omitempty" yaml:"lineno,omitempty" toml:"lineno,omitempty"`
		Tags   []string       `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags,omitempty"`
	}

	// argumentView keeps absent and empty apart for the type and default:
	// a nil pointer is omitted, an empty string is printed.
	argumentView struct {
		Name         string  `json:"arg_name" yaml:"arg_name" toml:"arg_name"`
		Repr         string  `json:"original_arg" yaml:"original_arg" toml:"original_arg"`
		IsStarArg    bool    `json:"is_star_arg" yaml:"is_star_arg" toml:"is_star_arg"`
		IsKeywordArg bool    `json:"is_keyword_arg" yaml:"is_keyword_arg" toml:"is_keyword_arg"`
		Type         *string `json:"arg_type,omitempty" yaml:"arg_type,omitempty" toml:"arg_type,omitempty"`
		Default      *string `json:"default_value,omitempty" yaml:"default_value,omitempty" toml:"default_value,omitempty"`
	}
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case outputText, outputJSON, outputYAML, outputTOML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (expected text, json, yaml or toml)", errInvalidOutputFormat, s)
	}
}

func newInfoCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &infoFlagValues{}

	cmd := &cobra.Command{
		Use:   "info <library>",
		Short: "Show the specification of a library",
		Long: `Show the specification of a library.

The library is looked up in the cache directory, the configured spec
directories and the workspace folders. When it is not found, libspec generates
and caches its specification unless --no-create is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, app, rootFlags, flags, libdoc.LibraryName(args[0]))
		},
	}

	cmd.Flags().BoolVar(&flags.noCreate, "no-create", false, "do not generate a missing specification")
	cmd.Flags().StringArrayVarP(&flags.folders.workspace, "workspace", "w", nil, "add a workspace folder (repeatable)")
	cmd.Flags().StringArrayVarP(&flags.folders.pythonpath, "pythonpath", "p", nil, "add a module search folder (repeatable)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", string(outputText), "output format: text, json, yaml or toml")
	cmd.Flags().StringVar(&flags.style, "style", "auto", "glamour style for text output: auto, dark, light or notty")

	return cmd
}

func runInfo(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *infoFlagValues, name libdoc.LibraryName) error {
	format, err := parseOutputFormat(flags.output)
	if err != nil {
		return &ExitError{Code: types.ExitUsage, Err: err}
	}
	if err := name.Validate(); err != nil {
		return app.reportIssue(issue.NewErrorContext().
			WithOperation("look up library").
			WithResource(string(name)).
			WithSuggestion("Pass a bare library or module name such as Collections or mypkg.mymodule").
			WithIssue(issue.InvalidLibraryNameId).
			Wrap(err).
			BuildError(), types.ExitUsage, rootFlags.verbose)
	}

	ctx := cmd.Context()
	s, err := app.open(ctx, rootFlags)
	if err != nil {
		return app.reportIssue(err, types.ExitFailure, rootFlags.verbose)
	}

	m, err := s.startManager(ctx, flags.folders, nil)
	if err != nil {
		return app.reportIssue(err, types.ExitFailure, rootFlags.verbose)
	}
	defer s.stopManager(m)

	doc, err := m.GetLibraryInfo(ctx, name, !flags.noCreate)
	if err != nil {
		return app.reportIssue(err, types.ExitFailure, rootFlags.verbose)
	}
	if doc == nil {
		suggestion := "Add the folder containing the library with --pythonpath or --workspace"
		if flags.noCreate {
			suggestion = "Run without --no-create to generate the specification"
		}
		return app.reportIssue(issue.NewErrorContext().
			WithOperation("find library").
			WithResource(string(name)).
			WithSuggestion(suggestion).
			WithIssue(issue.LibraryNotFoundId).
			Wrap(fmt.Errorf("no specification for %s", name)).
			BuildError(), types.ExitNotFound, rootFlags.verbose)
	}

	return writeLibrary(app.stdout, doc, format, flags.style, m.Formatter())
}

// writeLibrary prints doc in the requested format. Text output is Markdown
// rendered through glamour.
func writeLibrary(w io.Writer, doc *libdoc.LibraryDoc, format outputFormat, style string, f *docfmt.Formatter) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newLibraryView(doc))
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newLibraryView(doc)); err != nil {
			return err
		}
		return enc.Close()
	case outputTOML:
		return toml.NewEncoder(w).Encode(newLibraryView(doc))
	default:
		styleOpt := glamour.WithStandardStyle(style)
		if style == "" || style == "auto" {
			styleOpt = glamour.WithAutoStyle()
		}
		r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(glamourWordWrap))
		if err != nil {
			return err
		}
		out, err := r.Render(libraryMarkdown(doc, f))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
}

func newLibraryView(doc *libdoc.LibraryDoc) libraryView {
	v := libraryView{
		Name:        string(doc.Name()),
		Version:     doc.Version(),
		Scope:       doc.Scope(),
		DocFormat:   string(doc.DocFormat()),
		SpecVersion: int(doc.SpecVersion()),
		Source:      doc.Source(),
		Lineno:      doc.Lineno(),
		Doc:         doc.Doc(),
		Keywords:    []keywordView{},
	}
	for _, kw := range doc.Keywords() {
		args := make([]argumentView, 0, len(kw.Args()))
		for _, a := range kw.Args() {
			args = append(args, newArgumentView(a))
		}
		v.Keywords = append(v.Keywords, keywordView{
			Name:   kw.Name(),
			Args:   args,
			Doc:    kw.Doc(),
			Source: kw.Source(),
			Lineno: kw.Lineno(),
			Tags:   kw.Tags(),
		})
	}
	return v
}

func newArgumentView(a libdoc.Argument) argumentView {
	v := argumentView{
		Name:         a.BareName(),
		Repr:         a.String(),
		IsStarArg:    a.IsStarArg,
		IsKeywordArg: a.IsKeywordArg,
	}
	if t, ok := a.Type(); ok {
		v.Type = &t
	}
	if d, ok := a.Default(); ok {
		v.Default = &d
	}
	return v
}

// libraryMarkdown assembles one Markdown document from the library and
// keyword documentation.
func libraryMarkdown(doc *libdoc.LibraryDoc, f *docfmt.Formatter) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", doc.Name())
	if v := doc.Version(); v != "" {
		fmt.Fprintf(&sb, "Version %s", v)
		if s := doc.Scope(); s != "" {
			fmt.Fprintf(&sb, ", scope %s", s)
		}
		sb.WriteString("\n\n")
	}
	if src := doc.Source(); src != "" {
		fmt.Fprintf(&sb, "Source: `%s`\n\n", src)
	}
	writeRendered(&sb, f.LibraryDocs(doc))

	keywords := doc.Keywords()
	fmt.Fprintf(&sb, "## Keywords (%d)\n\n", len(keywords))
	for _, kw := range keywords {
		fmt.Fprintf(&sb, "### %s\n\n", kw.Name())
		fmt.Fprintf(&sb, "`%s`\n\n", kw.Signature())
		writeRendered(&sb, f.KeywordDocs(doc, kw))
	}

	return sb.String()
}

func writeRendered(sb *strings.Builder, r docfmt.Rendered) {
	if strings.TrimSpace(r.Text) == "" {
		return
	}
	switch r.Kind {
	case docfmt.KindMarkdown:
		sb.WriteString(r.Text)
	default:
		sb.WriteString("```\n")
		sb.WriteString(r.Text)
		sb.WriteString("\n```")
	}
	sb.WriteString("\n\n")
}
