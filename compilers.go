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
	"strings"

	"github.com/pkg/errors"
)

// Compiler identifies one supported back-end toolchain.  The set is closed;
// CompilerNone is a sentinel that must never reach the descriptor table.
type Compiler int

const (
	CompilerNone Compiler = iota
	Gcc
	SwitchGcc
	LLVMGcc
	Clang
	Lcc
	Bcc
	Dmc
	Wcc
	Vcc
	Tcc
	Pcc
	Ucc
	Icl
	Icc
	ClangCl

	numCompilers
)

// CompilerProp is a capability flag of a toolchain.
type CompilerProp uint16

const (
	HasSwitchRange CompilerProp = 1 << iota // ranges in case labels
	HasComputedGoto
	HasCpp
	HasAssume // __assume support
	HasGcGuard
	HasGnuAsm
	HasDeclspec
	HasAttribute
)

// Descriptor is the immutable record describing one toolchain: its
// executables, command templates and capability flags.  Placeholders in
// the templates are expanded by the command synthesizer; see expand.
type Descriptor struct {
	Name          string // short id, also a conditional-compilation symbol
	ObjExt        string // object file extension without the dot
	OptSpeed      string
	OptSize       string
	Debug         string
	CompilerExe   string
	CppCompiler   string
	LinkerExe     string // empty means "link with the compiler executable"
	CompileTmpl   string
	LinkTmpl      string
	BuildGui      string
	BuildDll      string
	BuildLib      string
	IncludeCmd    string
	LinkDirCmd    string
	LinkLibCmd    string // contains a single $1
	Pic           string
	AsmStmtFmt    string // cooperating code-gen format, not consumed here
	StructStmtFmt string // cooperating code-gen format, not consumed here
	ProduceAsm    string
	Props         CompilerProp
}

// The table is populated bottom-up: some entries derive from others by
// cloning and overriding named fields, so derivations materialize at
// initialization time and lookups stay O(1).
func derive(base Descriptor, override func(d *Descriptor)) Descriptor {
	d := base
	override(&d)
	return d
}

var gccDesc = Descriptor{
	Name:          "gcc",
	ObjExt:        "o",
	OptSpeed:      " -O3 -fno-ident",
	OptSize:       " -Os -fno-ident",
	Debug:         "",
	CompilerExe:   "gcc",
	CppCompiler:   "g++",
	LinkerExe:     "",
	CompileTmpl:   "-c $options $include -o $objfile $file",
	LinkTmpl:      "$buildgui $builddll -o $exefile $objfiles $options",
	BuildGui:      " -mwindows",
	BuildDll:      " -shared",
	BuildLib:      "ar rcs $libfile $objfiles",
	IncludeCmd:    " -I",
	LinkDirCmd:    " -L",
	LinkLibCmd:    " -l$1",
	Pic:           "-fPIC",
	AsmStmtFmt:    "__asm__($1);$n",
	StructStmtFmt: "$1 $3 $2 ",
	ProduceAsm:    "-Wa,-acdl=$asmfile -g -fverbose-asm -masm=intel",
	Props:         HasSwitchRange | HasComputedGoto | HasCpp | HasGcGuard | HasGnuAsm | HasAttribute,
}

var vccDesc = Descriptor{
	Name:          "vcc",
	ObjExt:        "obj",
	OptSpeed:      " /Ogityb2 ",
	OptSize:       " /O1 ",
	Debug:         " /RTC1 /Z7 ",
	CompilerExe:   "cl",
	CppCompiler:   "cl",
	LinkerExe:     "cl",
	CompileTmpl:   "/c$vccplatform $options $include /nologo /Fo$objfile $file",
	LinkTmpl:      "$builddll$vccplatform /Fe$exefile $objfiles $buildgui $options",
	BuildGui:      " /SUBSYSTEM:WINDOWS user32.lib ",
	BuildDll:      " /LD",
	BuildLib:      "lib /OUT:$libfile $objfiles",
	IncludeCmd:    " /I",
	LinkDirCmd:    " /LIBPATH:",
	LinkLibCmd:    " $1.lib",
	Pic:           "",
	AsmStmtFmt:    "__asm{$n$1$n}$n",
	StructStmtFmt: "$3$n$1 $2",
	ProduceAsm:    "/Fa$asmfile",
	Props:         HasCpp | HasAssume | HasDeclspec,
}

var descriptors = [numCompilers]Descriptor{
	Gcc: gccDesc,

	SwitchGcc: derive(gccDesc, func(d *Descriptor) {
		d.Name = "switch_gcc"
		d.CompilerExe = "aarch64-none-elf-gcc"
		d.CppCompiler = "aarch64-none-elf-g++"
	}),

	LLVMGcc: llvmGccDesc,

	Clang: derive(llvmGccDesc, func(d *Descriptor) {
		d.Name = "clang"
		d.CompilerExe = "clang"
		d.CppCompiler = "clang++"
	}),

	Lcc: {
		Name:          "lcc",
		ObjExt:        "obj",
		OptSpeed:      " -O -p6 ",
		OptSize:       "",
		Debug:         " -g5 ",
		CompilerExe:   "lcc",
		CppCompiler:   "",
		LinkerExe:     "lcclnk",
		CompileTmpl:   "$options $include -Fo$objfile $file",
		LinkTmpl:      "$options $buildgui $builddll -O $exefile $objfiles",
		BuildGui:      " -subsystem windows",
		BuildDll:      " -dll",
		BuildLib:      "",
		IncludeCmd:    " -I",
		LinkDirCmd:    " -L",
		LinkLibCmd:    " -l$1",
		Pic:           "",
		AsmStmtFmt:    "_asm{$n$1$n}$n",
		StructStmtFmt: "$1 $2",
		ProduceAsm:    "",
		Props:         0,
	},

	Bcc: {
		Name:          "bcc",
		ObjExt:        "obj",
		OptSpeed:      " -O3 -6 ",
		OptSize:       " -O1 -6 ",
		Debug:         "",
		CompilerExe:   "bcc32c",
		CppCompiler:   "cpp32c",
		LinkerExe:     "bcc32c",
		CompileTmpl:   "-c $options $include -o$objfile $file",
		LinkTmpl:      "$options $buildgui $builddll -e$exefile $objfiles",
		BuildGui:      " -tW",
		BuildDll:      " -tWD",
		BuildLib:      "",
		IncludeCmd:    " -I",
		LinkDirCmd:    "",
		LinkLibCmd:    "",
		Pic:           "",
		AsmStmtFmt:    "__asm{$n$1$n}$n",
		StructStmtFmt: "$1 $2",
		ProduceAsm:    "",
		Props:         HasSwitchRange | HasComputedGoto | HasCpp | HasGcGuard | HasAttribute,
	},

	Dmc: {
		Name:          "dmc",
		ObjExt:        "obj",
		OptSpeed:      " -ff -o -6 ",
		OptSize:       " -ff -o -6 ",
		Debug:         " -g ",
		CompilerExe:   "dmc",
		CppCompiler:   "",
		LinkerExe:     "dmc",
		CompileTmpl:   "-c $options $include -o$objfile $file",
		LinkTmpl:      "$options $buildgui $builddll -o$exefile $objfiles",
		BuildGui:      " -L/exet:nt/su:windows",
		BuildDll:      " -WD",
		BuildLib:      "",
		IncludeCmd:    " -I",
		LinkDirCmd:    "",
		LinkLibCmd:    "",
		Pic:           "",
		AsmStmtFmt:    "__asm{$n$1$n}$n",
		StructStmtFmt: "$3$n$1 $2",
		ProduceAsm:    "",
		Props:         HasCpp,
	},

	Wcc: {
		Name:          "wcc",
		ObjExt:        "obj",
		OptSpeed:      " -ox -on -6 -d0 -fp6 -zW ",
		OptSize:       "",
		Debug:         " -d2 ",
		CompilerExe:   "wcl386",
		CppCompiler:   "",
		LinkerExe:     "wcl386",
		CompileTmpl:   "-c $options $include -fo=$objfile $file",
		LinkTmpl:      "$options $buildgui $builddll -fe=$exefile $objfiles ",
		BuildGui:      " -bw",
		BuildDll:      " -bd",
		BuildLib:      "",
		IncludeCmd:    " -i=",
		LinkDirCmd:    "",
		LinkLibCmd:    "",
		Pic:           "",
		AsmStmtFmt:    "__asm{$n$1$n}$n",
		StructStmtFmt: "$1 $2",
		ProduceAsm:    "",
		Props:         HasCpp,
	},

	Vcc: vccDesc,

	Tcc: {
		Name:          "tcc",
		ObjExt:        "o",
		OptSpeed:      "",
		OptSize:       "",
		Debug:         " -g ",
		CompilerExe:   "tcc",
		CppCompiler:   "",
		LinkerExe:     "tcc",
		CompileTmpl:   "-c $options $include -o $objfile $file",
		LinkTmpl:      "-o $exefile $options $buildgui $builddll $objfiles",
		BuildGui:      " -Wl,-subsystem=gui",
		BuildDll:      " -shared",
		BuildLib:      "",
		IncludeCmd:    " -I",
		LinkDirCmd:    " -L",
		LinkLibCmd:    " -l$1",
		Pic:           "",
		AsmStmtFmt:    "asm($1);$n",
		StructStmtFmt: "$1 $2",
		ProduceAsm:    "",
		Props:         HasSwitchRange | HasComputedGoto | HasGnuAsm,
	},

	Pcc: {
		Name:          "pcc",
		ObjExt:        "o",
		OptSpeed:      " -Ox ",
		OptSize:       " -Os ",
		Debug:         " -g ",
		CompilerExe:   "cc",
		CppCompiler:   "",
		LinkerExe:     "cc",
		CompileTmpl:   "-c $options $include -Fo$objfile $file",
		LinkTmpl:      "$options $buildgui $builddll -Fe$exefile $objfiles",
		BuildGui:      " -SUBSYSTEM:WINDOWS",
		BuildDll:      " -DLL",
		BuildLib:      "",
		IncludeCmd:    " -I",
		LinkDirCmd:    "",
		LinkLibCmd:    "",
		Pic:           "",
		AsmStmtFmt:    "__asm{$n$1$n}$n",
		StructStmtFmt: "$1 $2",
		ProduceAsm:    "",
		Props:         0,
	},

	Ucc: {
		Name:          "ucc",
		ObjExt:        "o",
		OptSpeed:      " -O3 ",
		OptSize:       " -O1 ",
		Debug:         "",
		CompilerExe:   "cc",
		CppCompiler:   "",
		LinkerExe:     "cc",
		CompileTmpl:   "-c $options $include -o $objfile $file",
		LinkTmpl:      "-o $exefile $buildgui $builddll $objfiles $options",
		BuildGui:      "",
		BuildDll:      " -shared ",
		BuildLib:      "",
		IncludeCmd:    " -I",
		LinkDirCmd:    "",
		LinkLibCmd:    "",
		Pic:           "",
		AsmStmtFmt:    "__asm{$n$1$n}$n",
		StructStmtFmt: "$1 $2",
		ProduceAsm:    "",
		Props:         0,
	},

	Icl: derive(vccDesc, func(d *Descriptor) {
		d.Name = "icl"
		d.CompilerExe = "icl"
		d.CppCompiler = "icl"
		d.LinkerExe = "xilink"
	}),

	Icc: derive(gccDesc, func(d *Descriptor) {
		d.Name = "icc"
		d.CompilerExe = "icc"
		d.CppCompiler = "icpc"
		d.LinkerExe = "icc"
	}),

	ClangCl: derive(vccDesc, func(d *Descriptor) {
		d.Name = "clang_cl"
		d.CompilerExe = "clang-cl"
		d.CppCompiler = "clang-cl"
		d.LinkerExe = "clang-cl"
	}),
}

var llvmGccDesc = derive(gccDesc, func(d *Descriptor) {
	d.Name = "llvm_gcc"
	d.CompilerExe = "llvm-gcc"
	d.CppCompiler = "llvm-g++"
	d.BuildLib = "llvm-ar rcs $libfile $objfiles"
})

// Descriptor returns the toolchain descriptor.  Asking for the sentinel
// CompilerNone is a programming error.
func (c Compiler) Descriptor() *Descriptor {
	if c <= CompilerNone || c >= numCompilers {
		panic("ccdrive: no descriptor for compiler sentinel")
	}
	return &descriptors[c]
}

// Name returns the descriptor name, e.g. "clang_cl".
func (c Compiler) Name() string { return c.Descriptor().Name }

// HasProp reports whether the toolchain carries the capability flag.
func (c Compiler) HasProp(p CompilerProp) bool {
	return c.Descriptor().Props&p != 0
}

// normalizeCCName lowers a toolchain name and strips underscores, so that
// "clang_cl", "ClangCL" and "clangcl" compare equal.
func normalizeCCName(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '_' {
			continue
		}
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// KindFromName resolves a textual toolchain name case- and
// style-insensitively.  It returns CompilerNone when nothing matches.
func KindFromName(name string) Compiler {
	want := normalizeCCName(name)
	for c := CompilerNone + 1; c < numCompilers; c++ {
		if normalizeCCName(descriptors[c].Name) == want {
			return c
		}
	}
	return CompilerNone
}

// ListCCNames returns every descriptor name, in table order.
func ListCCNames() []string {
	names := make([]string, 0, int(numCompilers)-1)
	for c := CompilerNone + 1; c < numCompilers; c++ {
		names = append(names, descriptors[c].Name)
	}
	return names
}

// SetCompiler switches the active toolchain by textual name, maintaining
// the conditional-compilation symbol set: every descriptor name is
// undefined and the chosen one defined.  An unknown name yields
// ErrUnknownCompiler with the candidate list.
func SetCompiler(cfg *Config, name string) error {
	kind := KindFromName(name)
	if kind == CompilerNone {
		err := errors.Wrapf(ErrUnknownCompiler, "%q; known are: %s",
			name, strings.Join(ListCCNames(), ", "))
		cfg.diag().Error("%v", err)
		return err
	}
	cfg.CCompiler = kind
	for c := CompilerNone + 1; c < numCompilers; c++ {
		cfg.UndefSymbol(descriptors[c].Name)
	}
	cfg.DefineSymbol(kind.Name())
	return nil
}

// IsVSCompatible reports whether the active toolchain understands
// Visual-Studio-style command lines.
func IsVSCompatible(cfg *Config) bool {
	switch cfg.CCompiler {
	case Vcc, ClangCl:
		return true
	case Icl:
		return cfg.HostOS.IsWindowsFamily()
	}
	return false
}
