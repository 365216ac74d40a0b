// SPDX-License-Identifier: MPL-2.0

package specparse

import (
	"encoding/xml"
	"strings"
)

type (
	// xmlSpec mirrors the <keywordspec> root element. Keywords appear either
	// directly under the root (specversion <= 2) or inside <keywords> (3+).
	xmlSpec struct {
		XMLName     xml.Name            `xml:"keywordspec"`
		Name        string              `xml:"name,attr"`
		Type        string              `xml:"type,attr,omitempty"`
		Format      string              `xml:"format,attr,omitempty"`
		ScopeAttr   string              `xml:"scope,attr,omitempty"`
		SpecVersion string              `xml:"specversion,attr,omitempty"`
		Source      string              `xml:"source,attr,omitempty"`
		Lineno      string              `xml:"lineno,attr,omitempty"`
		Version     string              `xml:"version"`
		Scope       string              `xml:"scope,omitempty"`
		Doc         string              `xml:"doc"`
		Kws         []xmlKeyword        `xml:"kw"`
		Section     *xmlKeywordsSection `xml:"keywords,omitempty"`
	}

	xmlKeywordsSection struct {
		Kws []xmlKeyword `xml:"kw"`
	}

	xmlKeyword struct {
		Name      string       `xml:"name,attr"`
		Source    string       `xml:"source,attr,omitempty"`
		Lineno    string       `xml:"lineno,attr,omitempty"`
		Arguments xmlArguments `xml:"arguments"`
		Doc       string       `xml:"doc"`
		Tags      []string     `xml:"tags>tag"`
	}

	xmlArguments struct {
		Repr string   `xml:"repr,attr,omitempty"`
		Args []xmlArg `xml:"arg"`
	}

	// xmlArg is either a plain string argument (Text) or a structured one
	// (Kind, Name, Types, Default).
	xmlArg struct {
		Kind     string    `xml:"kind,attr,omitempty"`
		Required string    `xml:"required,attr,omitempty"`
		Repr     string    `xml:"repr,attr,omitempty"`
		Text     string    `xml:",chardata"`
		Name     string    `xml:"name,omitempty"`
		Types    []xmlType `xml:"type,omitempty"`
		Default  *string   `xml:"default"`
	}

	// xmlType covers both the flat <type>int</type> form and the nested
	// <type name="Union" union="true"><type name="int"/>...</type> form.
	xmlType struct {
		Name   string    `xml:"name,attr,omitempty"`
		Union  string    `xml:"union,attr,omitempty"`
		Text   string    `xml:",chardata"`
		Nested []xmlType `xml:"type"`
	}
)

// structured reports whether the argument uses the specversion 3+ layout.
func (a xmlArg) structured() bool {
	return a.Kind != "" || strings.TrimSpace(a.Name) != ""
}

// render flattens a type element into annotation text.
func (t xmlType) render() string {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		name = strings.TrimSpace(t.Text)
	}
	if len(t.Nested) == 0 {
		return name
	}
	nested := make([]string, len(t.Nested))
	for i, n := range t.Nested {
		nested[i] = n.render()
	}
	if t.Union == "true" {
		return strings.Join(nested, " | ")
	}
	return name + "[" + strings.Join(nested, ", ") + "]"
}

// allKeywords returns root-level and sectioned keywords in document order.
func (s *xmlSpec) allKeywords() []xmlKeyword {
	if s.Section == nil {
		return s.Kws
	}
	out := make([]xmlKeyword, 0, len(s.Kws)+len(s.Section.Kws))
	out = append(out, s.Kws...)
	return append(out, s.Section.Kws...)
}
