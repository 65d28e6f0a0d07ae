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
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/skald-lang/ccdrive/pathtools"
)

// baseHeader is the runtime support header every generated C file
// includes.  It travels next to the script so the script works without an
// installed toolchain tree.
const baseHeader = "skaldbase.h"

// generateScript writes every synthesized command, in order, to
// "<cache>/compile_<out>.<ext>" where the extension follows the target
// OS's scripting convention, and puts a copy of the base header beside
// it.
func (cfg *Config) generateScript(cmds []string) error {
	name := pathtools.StripExtension(filepath.Base(cfg.AbsOutFile()))
	ext := osInfos[cfg.TargetOS].scriptExt
	path := filepath.Join(cfg.CachePath, "compile_"+name+"."+ext)

	var sb strings.Builder
	if ext == "sh" {
		sb.WriteString("#!/bin/sh\nset -e\n")
	}
	for _, cmd := range cmds {
		sb.WriteString(cmd)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0755); err != nil {
		werr := errors.Wrapf(ErrWriteFailed, "%s: %v", path, err)
		cfg.diag().Error("%v", werr)
		return werr
	}

	src := filepath.Join(cfg.LibPath, baseHeader)
	dst := filepath.Join(cfg.CachePath, baseHeader)
	if err := copyFilePreserve(src, dst); err != nil {
		werr := errors.Wrapf(ErrWriteFailed, "%s: %v", dst, err)
		cfg.diag().Error("%v", werr)
		return werr
	}
	return nil
}
