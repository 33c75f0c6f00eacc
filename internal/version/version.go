/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version carries build information.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version of recruitd.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/recruitd/internal/version.Version=X.Y.Z
var Version = "0.1.0-dev"

// Commit is the VCS revision, set at build time alongside Version.
var Commit = "unknown"

// String formats the version for CLI output.
func String() string {
	return fmt.Sprintf("recruitd %s (%s, %s)", Version, Commit, runtime.Version())
}
