// SPDX-License-Identifier: MPL-2.0

package specparse

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/rfls/libspec/pkg/libdoc"
)

// MarshalVersion is the specversion written by Marshal.
const MarshalVersion libdoc.SpecVersion = 2

// Marshal encodes doc as a specversion 2 libspec document, the layout with
// string arguments. It is used by toolchains that produce specifications
// without running libdoc itself.
func Marshal(doc *libdoc.LibraryDoc) ([]byte, error) {
	spec := xmlSpec{
		Name:        doc.Name().String(),
		Type:        "LIBRARY",
		Format:      doc.DocFormat().String(),
		ScopeAttr:   doc.Scope(),
		SpecVersion: strconv.Itoa(int(MarshalVersion)),
		Source:      doc.Source(),
		Version:     doc.Version(),
		Doc:         doc.Doc(),
	}
	if doc.Lineno() > 0 {
		spec.Lineno = strconv.Itoa(doc.Lineno())
	}

	for _, kw := range doc.Keywords() {
		xk := xmlKeyword{
			Name:   kw.Name(),
			Source: kw.Source(),
			Doc:    kw.Doc(),
			Tags:   kw.Tags(),
		}
		if kw.Lineno() > 0 {
			xk.Lineno = strconv.Itoa(kw.Lineno())
		}
		for _, a := range kw.Args() {
			xk.Arguments.Args = append(xk.Arguments.Args, xmlArg{Text: a.String()})
		}
		spec.Kws = append(spec.Kws, xk)
	}

	out, err := xml.MarshalIndent(spec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode libspec %q: %w", doc.Name(), err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
