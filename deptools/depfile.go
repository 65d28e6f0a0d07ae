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

// Package deptools reads and writes gcc-style dependency files, the ".d"
// listings C compilers emit next to each object file.
package deptools

import (
	"fmt"
	"os"
	"strings"
)

// WriteDepFile creates a new gcc-style depfile and populates it with
// content indicating that target depends on deps.
func WriteDepFile(filename, target string, deps []string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%s: \\\n %s\n", target,
		strings.Join(deps, " \\\n "))
	if err != nil {
		return err
	}

	return nil
}

// ParseDepFile returns the dependency list of a gcc-style depfile: every
// path after the first colon, with line continuations unfolded.  Escaped
// spaces inside paths are preserved.
func ParseDepFile(filename string) ([]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	content := strings.ReplaceAll(string(data), "\\\r\n", " ")
	content = strings.ReplaceAll(content, "\\\n", " ")

	colon := strings.Index(content, ":")
	if colon < 0 {
		return nil, fmt.Errorf("%s: not a depfile, no target separator", filename)
	}
	rest := content[colon+1:]

	var deps []string
	var cur strings.Builder
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case c == '\\' && i+1 < len(rest) && rest[i+1] == ' ':
			cur.WriteByte(' ')
			i++
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if cur.Len() > 0 {
				deps = append(deps, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		deps = append(deps, cur.String())
	}
	return deps, nil
}
