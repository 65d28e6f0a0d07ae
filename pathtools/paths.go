// Copyright 2024 The Skald Authors. All rights reserved.
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

// Package pathtools holds the small path manipulations the driver performs
// on generated artifacts.  Everything works on plain strings; nothing here
// touches the filesystem except ExpandTilde's home lookup.
package pathtools

import (
	"os"
	"path/filepath"
	"strings"
)

// ReplaceExtension returns path with everything after the last dot replaced
// by extension.  A path without a dot is returned unchanged.
func ReplaceExtension(path string, extension string) string {
	dot := strings.LastIndex(path, ".")
	if dot == -1 {
		return path
	}
	return path[:dot+1] + extension
}

// StripExtension returns path without its last extension, including the
// dot.  A path without a dot is returned unchanged.
func StripExtension(path string) string {
	dot := strings.LastIndex(filepath.Base(path), ".")
	if dot == -1 {
		return path
	}
	return path[:len(path)-len(filepath.Base(path))+dot]
}

// AddFileExt appends "." + extension unless path already carries an
// extension.
func AddFileExt(path string, extension string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	return path + "." + extension
}

// ExpandTilde resolves a leading "~" or "~/" against the current user's
// home directory.  Paths without the prefix are returned unchanged, as are
// paths when no home directory can be determined.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ToForwardSlash translates every backslash to a forward slash.  GCC-style
// response files treat backslashes as escapes, so Windows paths must be
// rewritten before they go into one.
func ToForwardSlash(s string) string {
	return strings.ReplaceAll(s, `\`, `/`)
}
