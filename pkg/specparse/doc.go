// SPDX-License-Identifier: MPL-2.0

// Package specparse reads and writes libspec documents, the XML files produced
// by the libdoc toolchain that describe a library's keywords.
//
// Two argument layouts exist in the wild. Up to specversion 2 every argument
// is a single string such as "a: int=10" or "**kwargs". From specversion 3 on
// arguments are structured elements with a kind attribute and name, type and
// default children. Parse accepts both regardless of the declared version, so
// documents newer than libdoc.MaxSupportedSpecVersion still yield whatever
// fields are recognized.
package specparse
