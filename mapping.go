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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// WriteMapping emits "<project>/mapping.txt", an INI-shaped digest of the
// build for external tooling: the C files, the compiler and linker flags,
// the library path, and a symbol-mapping blob produced by the caller.
// It does nothing unless GenMapping is set.
func WriteMapping(cfg *Config, symbolMapping string) error {
	if cfg.GlobalOptions&GenMapping == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("[C_Files]\n")
	for i := range cfg.ToCompile {
		fmt.Fprintf(&sb, "--file:r\"%s\"\n", cfg.ToCompile[i].CName)
	}

	gui := ""
	if cfg.GlobalOptions&GenGuiApp != 0 && cfg.TargetOS == OSWindows {
		gui = cfg.CCompiler.Descriptor().BuildGui
	}
	sb.WriteString("[C_Compiler]\nFlags=")
	sb.WriteString(strconv.Quote(cfg.getCompileOptions()))
	sb.WriteString("\n[Linker]\nFlags=")
	sb.WriteString(strconv.Quote(cfg.getLinkOptions() + gui))
	sb.WriteString("\n[Environment]\nlibpath=r\"")
	sb.WriteString(cfg.LibPath)
	sb.WriteString("\"\n[Symbols]\n")
	sb.WriteString(symbolMapping)
	sb.WriteString("\n")

	path := filepath.Join(cfg.ProjectPath, "mapping.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0666); err != nil {
		werr := errors.Wrapf(ErrWriteFailed, "%s: %v", path, err)
		cfg.diag().Error("%v", werr)
		return werr
	}
	return nil
}
