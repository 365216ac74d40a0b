// SPDX-License-Identifier: MPL-2.0

// Command libspec looks up, generates and caches Robot Framework library
// specifications.
package main

import cmd "github.com/rfls/libspec/cmd/libspec"

func main() {
	cmd.Execute()
}
