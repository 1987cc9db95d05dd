// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import "context"

// cmdVersion retrieves the curated version.
type cmdVersion struct{}

// Execute executes the cmdVersion command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdVersion) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	vr, err := cc.Version(context.Background())
	if err != nil {
		return err
	}
	printJSON(vr)
	return nil
}

// versionHelpMsg is printed to stdout by the help command.
const versionHelpMsg = `version

Get the curated API version and build.`
