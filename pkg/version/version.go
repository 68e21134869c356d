// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package version lets one tag built binaries with version metadata.
//
// Two pieces of metadata are tracked:
//   - Version: version number, by convention one provided by 'git describe'
//   - Build:   build id, by convention the git SHA1 the binary has been built from.
//
// Both are set with linker flags, for instance:
//
//	LDFLAGS=-ldflags \
//	  "-X=github.com/intel/hwp-manager/pkg/version.Version=<version> \
//	   -X=github.com/intel/hwp-manager/pkg/version.Build=<build-id>"
//
// Importing this package puts a -version command line option in place.
package version

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// Default values of variables we'll override with the linker.
var (
	// Version is our version as given by 'git describe'.
	Version = "unknown"
	// Build is the SHA1 of the repository we've been built from.
	Build = "unknown"
)

// Info is the version information of a binary.
type Info struct {
	Binary    string `json:"binary"`
	Version   string `json:"version"`
	Build     string `json:"build"`
	GoVersion string `json:"goVersion"`
}

// Get returns the version information of this binary.
func Get() Info {
	return Info{
		Binary:    filepath.Base(os.Args[0]),
		Version:   Version,
		Build:     Build,
		GoVersion: runtime.Version(),
	}
}

// Fprint prints version information about this binary.
func Fprint(w io.Writer) {
	info := Get()
	fmt.Fprintf(w, "%s version information:\n", info.Binary)
	fmt.Fprintf(w, "  - version: %s\n", info.Version)
	fmt.Fprintf(w, "  - build:   %s\n", info.Build)
	fmt.Fprintf(w, "  - go:      %s\n", info.GoVersion)
}

// PrintVersionInfo prints version information about this binary to stdout.
func PrintVersionInfo() {
	Fprint(os.Stdout)
}

// Dummy struct used to hook into flag.Value.Set of -version during commandline parsing.
type version struct{}

// IsBoolFlag tell flag that we only have optional arguments.
func (version) IsBoolFlag() bool {
	return true
}

// Set is our dummy flag.Value setter.
func (version) Set(value string) error {
	print, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if print {
		PrintVersionInfo()
		os.Exit(0)
	}
	return nil
}

// String is our dummy flag.Value stringification function.
func (version) String() string {
	return "false"
}

// Put in place a '-version' command line option for us.
func init() {
	flag.Var(version{}, "version", "print version information and exit")
}
