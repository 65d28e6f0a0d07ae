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

package ccdrive

import (
	"fmt"
	"strings"
)

// bindings maps placeholder names (without the dollar sign) to their
// replacement text.  Values are shell-quoted by the caller where needed;
// expansion itself performs no escaping.
type bindings map[string]string

// expand substitutes every $name in tmpl left to right.  At each dollar
// sign the longest binding key that prefixes the remaining text wins, so a
// template may use both $objfile and $objfiles.  A dollar sign that starts
// no known placeholder is a programming error in the descriptor table, not
// a user error, and panics with the byte offset.
func expand(tmpl string, b bindings) string {
	if !strings.ContainsRune(tmpl, '$') {
		return tmpl
	}
	var sb strings.Builder
	sb.Grow(len(tmpl))
	for i := 0; i < len(tmpl); {
		if tmpl[i] != '$' {
			sb.WriteByte(tmpl[i])
			i++
			continue
		}
		rest := tmpl[i+1:]
		best := ""
		for key := range b {
			if len(key) > len(best) && strings.HasPrefix(rest, key) {
				best = key
			}
		}
		if best == "" {
			panic(fmt.Sprintf(
				"ccdrive: unknown placeholder in template %q at byte offset %d",
				tmpl, i))
		}
		sb.WriteString(b[best])
		i += 1 + len(best)
	}
	return sb.String()
}
