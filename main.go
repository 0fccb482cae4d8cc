// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package main // import "github.com/updater-keygen/updater-keygen"

import "os"

func main() {
	cli := NewCLI(os.Stdout, os.Stderr)
	os.Exit(cli.Run(os.Args))
}
