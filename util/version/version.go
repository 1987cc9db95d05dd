// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	// semanticAlphabet defines the allowed characters for the pre-release
	// and build metadata portions of a semantic version string.
	semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."
)

// These constants define the application version and follow the semantic
// versioning 2.0.0 spec (https://semver.org/).
const (
	AppMajor uint = 1
	AppMinor uint = 0
	AppPatch uint = 0
)

var (
	// PreRelease is defined as a variable so it can be overridden during the
	// build process with '-ldflags "-X github.com/decred/curate/util/version.PreRelease=foo"'.
	// It MUST only contain characters from semanticAlphabet per the semantic
	// versioning spec.
	PreRelease = "pre"

	// BuildMetadata is defined as a variable so it can be overridden during
	// the build process with '-ldflags "-X github.com/decred/curate/util/version.BuildMetadata=foo"'.
	// When empty the VCS revision embedded by the go toolchain is used.
	BuildMetadata = ""
)

// String returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec (https://semver.org/).
func String() string {
	version := fmt.Sprintf("%d.%d.%d", AppMajor, AppMinor, AppPatch)

	preRelease := normalizeVerString(PreRelease)
	if preRelease != "" {
		version = fmt.Sprintf("%s-%s", version, preRelease)
	}

	buildMetadata := BuildMetadata
	if buildMetadata == "" {
		buildMetadata = vcsCommitID()
	}
	buildMetadata = normalizeVerString(buildMetadata)
	if buildMetadata != "" {
		version = fmt.Sprintf("%s+%s", version, buildMetadata)
	}

	return version
}

// vcsCommitID returns the short VCS revision embedded in the binary, if any.
func vcsCommitID() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	var dirty bool
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 9 {
		rev = rev[:9]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

// normalizeVerString returns the passed string stripped of all characters
// which are not valid according to the semantic versioning guidelines for
// pre-release and build metadata strings.
func normalizeVerString(str string) string {
	var result strings.Builder
	for _, r := range str {
		if strings.ContainsRune(semanticAlphabet, r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
