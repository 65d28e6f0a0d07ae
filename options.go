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

import "strings"

// cFileSpecificOptions assembles the compile options for one translation
// unit: the global accumulator, the per-file extras, the command-line flags
// not already present (a substring check, see AddCompileOption), the
// debug/speed/size selection with its per-unit overrides, and the per-unit
// "always" options.
func (cfg *Config) cFileSpecificOptions(unitName, fullPath string) string {
	d := cfg.CCompiler.Descriptor()

	result := cfg.CompileOptions
	if extra, ok := cfg.CFileSpecificOptions[fullPath]; ok {
		addOpt(&result, extra)
	}
	for _, option := range cfg.CompileOptionsCmd {
		if !strings.Contains(result, option) {
			addOpt(&result, option)
		}
	}

	if cfg.GlobalOptions&CDebug != 0 {
		if key := unitName + ".debug"; cfg.ExistsConfigVar(key) {
			addOpt(&result, cfg.GetConfigVar(key))
		} else {
			addOpt(&result, d.Debug)
		}
	}
	if cfg.Options&OptimizeSpeed != 0 {
		if key := unitName + ".speed"; cfg.ExistsConfigVar(key) {
			addOpt(&result, cfg.GetConfigVar(key))
		} else {
			addOpt(&result, d.OptSpeed)
		}
	} else if cfg.Options&OptimizeSize != 0 {
		if key := unitName + ".size"; cfg.ExistsConfigVar(key) {
			addOpt(&result, cfg.GetConfigVar(key))
		} else {
			addOpt(&result, d.OptSize)
		}
	}
	if key := unitName + ".always"; cfg.ExistsConfigVar(key) {
		addOpt(&result, cfg.GetConfigVar(key))
	}
	return result
}

// getCompileOptions is the unit-independent variant, used for the mapping
// file.
func (cfg *Config) getCompileOptions() string {
	return cfg.cFileSpecificOptions("__dummy__", "__dummy__")
}

// getLinkOptions concatenates the link accumulator, the command-line link
// flags not already present, the descriptor fragments for linked libraries
// and library search directories, and the toolchain's extra linker options
// from the host configuration.
func (cfg *Config) getLinkOptions() string {
	d := cfg.CCompiler.Descriptor()

	result := cfg.LinkOptions
	for _, option := range cfg.LinkOptionsCmd {
		if !strings.Contains(result, option) {
			addOpt(&result, option)
		}
	}
	for _, lib := range cfg.CLinkedLibs {
		result += expand(d.LinkLibCmd, bindings{"1": cfg.quoteShell(lib)})
	}
	for _, dir := range cfg.CLibs {
		result += d.LinkDirCmd + cfg.quoteShell(dir)
	}
	if key := d.Name + ".options.linker"; cfg.ExistsConfigVar(key) {
		addOpt(&result, cfg.GetConfigVar(key))
	}
	return result
}
