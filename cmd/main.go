// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command clrdump is a thin CLI over the clrmeta reader: given a managed
// PE image, it dumps the assembly identity, referenced assemblies, and
// defined types without resolving anything across assemblies.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
