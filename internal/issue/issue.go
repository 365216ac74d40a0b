// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	ToolchainNotFoundId Id = iota + 1
	GenerationFailedId
	LibraryNotFoundId
	SpecParseErrorId
	ConfigLoadFailedId
	CacheDirUnwritableId
	InvalidLibraryNameId
	InvalidFolderId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a catalogued, user-facing explanation of a failure class.
	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the message followed by a "See also" list of links.
func (i *Issue) Markdown() string {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks)+len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return sb.String()
}

// Render renders the issue for a terminal. stylePath is a glamour style name
// ("dark", "light", "notty") or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	libdocDocs = HttpLink("https://robotframework.org/robotframework/latest/RobotFrameworkUserGuide.html#libdoc")

	toolchainNotFoundIssue = &Issue{
		id: ToolchainNotFoundId,
		mdMsg: `
# The libdoc toolchain could not be started

Missing library specifications are generated by running Robot Framework's
libdoc, and the configured command either is not executable here or runs a
Python that does not have Robot Framework installed.

## Things you can try:
- Install Robot Framework into the Python environment on your PATH:
~~~
$ pip install robotframework
~~~
- Point the generator at a working command in your config file:
~~~cue
generator: command: "/path/to/venv/bin/python -m robot.libdoc"
~~~
- Introspect Python sources without an interpreter:
~~~cue
generator: mode: "static"
~~~`,
		docLinks: []HttpLink{libdocDocs},
	}

	generationFailedIssue = &Issue{
		id: GenerationFailedId,
		mdMsg: `
# Specification generation failed

The toolchain ran but did not produce a usable specification. The library
is reported as unavailable and generation is retried on the next request.

## Things you can try:
- Import the library in a Python shell to surface import errors
- Add the folder containing the library with ` + "`-p DIR`" + `
- Run with ` + "`--verbose`" + ` to see the toolchain's error output`,
		docLinks: []HttpLink{libdocDocs},
	}

	libraryNotFoundIssue = &Issue{
		id: LibraryNotFoundId,
		mdMsg: `
# Library not found

No specification file declares this library, and generation was disabled
or could not locate its module.

## Things you can try:
- Check the spelling; library names are case-sensitive
- Register the folder that contains it:
~~~
$ libspec info MyLibrary -p ./libraries
~~~
- List the libraries currently known:
~~~
$ libspec names
~~~`,
	}

	specParseErrorIssue = &Issue{
		id: SpecParseErrorId,
		mdMsg: `
# Specification file could not be parsed

A *.libspec file is not a valid libdoc XML document. It is skipped until
it changes on disk.

## Things you can try:
- Regenerate it with libdoc
- Delete the file from the cache directory to force regeneration`,
		docLinks: []HttpLink{libdocDocs},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

The configuration file could not be read or does not match the schema.

## Things you can try:
- Show the effective configuration:
~~~
$ libspec config show
~~~
- Write a fresh default file:
~~~
$ libspec config init
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	cacheDirUnwritableIssue = &Issue{
		id: CacheDirUnwritableId,
		mdMsg: `
# Cache directory is not writable

Generated specifications are persisted to the cache directory so later
runs do not regenerate them.

## Things you can try:
- Fix the directory permissions
- Set ` + "`cache_dir`" + ` in your config file to a writable location`,
	}

	invalidLibraryNameIssue = &Issue{
		id: InvalidLibraryNameId,
		mdMsg: `
# Invalid library name

Library names are module names such as ` + "`Collections`" + ` or
` + "`my_pkg.my_lib`" + `. They must not be blank or contain path separators.`,
	}

	invalidFolderIssue = &Issue{
		id: InvalidFolderId,
		mdMsg: `
# Invalid folder

Workspace and module search folders are given as filesystem paths or
` + "`file://`" + ` URIs and must not be blank.`,
	}

	issues = map[Id]*Issue{
		toolchainNotFoundIssue.Id():  toolchainNotFoundIssue,
		generationFailedIssue.Id():   generationFailedIssue,
		libraryNotFoundIssue.Id():    libraryNotFoundIssue,
		specParseErrorIssue.Id():     specParseErrorIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		cacheDirUnwritableIssue.Id(): cacheDirUnwritableIssue,
		invalidLibraryNameIssue.Id(): invalidLibraryNameIssue,
		invalidFolderIssue.Id():      invalidFolderIssue,
	}
)

// Values returns every catalogued issue ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
