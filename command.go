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
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/skald-lang/ccdrive/pathtools"
)

// vccplatform resolves the $vccplatform placeholder.  Only the VCC family
// of templates consumes it; every other template binds it to "".
func vccplatform(cfg *Config) string {
	switch cfg.TargetCPU {
	case CPUI386:
		return " --platform:x86"
	case CPUArm:
		return " --platform:arm"
	case CPUAmd64:
		return " --platform:amd64"
	}
	return ""
}

// getCompilerExe picks the executable that compiles cname: the host
// override "<name>.exe" if present, the C++ driver when compiling to C++
// and the source is not plain C, the C driver otherwise.
func (cfg *Config) getCompilerExe(compiler Compiler, cname string) (string, error) {
	d := compiler.Descriptor()
	exe := cfg.GetConfigVar(d.Name + ".exe")
	if exe == "" {
		if cfg.Command == CompileToCpp && !strings.HasSuffix(cname, ".c") {
			exe = d.CppCompiler
		} else {
			exe = d.CompilerExe
		}
	}
	if exe == "" {
		err := errors.Wrapf(ErrUnsupportedTarget,
			"%s has no suitable driver for this source kind", d.Name)
		cfg.diag().Error("%v", err)
		return "", err
	}
	if cfg.needsExeExt() {
		exe = pathtools.AddFileExt(exe, "exe")
	}
	return exe, nil
}

// ObjFilePath returns the object file for cf.  An empty Obj derives
// "<source>.<objext>"; objects of external sources land in the cache
// directory.
func (cfg *Config) ObjFilePath(cf *CFile) string {
	if cf.Obj != "" {
		return cf.Obj
	}
	obj := cf.CName + "." + cfg.CCompiler.Descriptor().ObjExt
	if cf.Flags&FileExternal != 0 {
		obj = filepath.Join(cfg.CachePath, filepath.Base(obj))
	}
	return obj
}

// CompileCmd synthesizes the full compile invocation for one translation
// unit.  isMainFile marks the project's main unit (it never gets the PIC
// flag under hot code reload); produceOutput enables the side artifacts
// such as the assembler listing.
func (cfg *Config) CompileCmd(cf *CFile, isMainFile, produceOutput bool) (string, error) {
	compiler := cfg.CCompiler
	d := compiler.Descriptor()

	exe, err := cfg.getCompilerExe(compiler, cf.CName)
	if err != nil {
		return "", err
	}

	options := cfg.cFileSpecificOptions(cf.UnitName, cf.CName)
	if (cfg.GlobalOptions&GenDynLib != 0 || (cfg.HCROn && !isMainFile)) &&
		cfg.TargetOS.NeedsPIC() {
		options += " " + d.Pic
	}

	// Generated scripts must run on other machines, so they get the bare
	// executable name and no include directives with absolute paths.
	var includeCmd, compilePattern string
	if !cfg.noAbsolutePaths() {
		includeCmd = d.IncludeCmd + cfg.quoteShell(cfg.LibPath)
		for _, inc := range cfg.CIncludes {
			includeCmd += d.IncludeCmd + cfg.quoteShell(inc)
		}
		includeCmd += d.IncludeCmd + cfg.quoteShell(cfg.ProjectPath)
		compilePattern = filepath.Join(cfg.CCompilerPath, exe)
	} else {
		compilePattern = exe
	}

	source := cf.CName
	objfile := cfg.ObjFilePath(cf)
	if cfg.noAbsolutePaths() {
		source = filepath.Base(source)
		objfile = filepath.Base(objfile)
	}

	dfile := cfg.quoteShell(pathtools.ReplaceExtension(objfile, "d"))
	if cfg.GlobalOptions&ProduceAsm != 0 && produceOutput && d.ProduceAsm != "" {
		asmfile := cfg.quoteShell(pathtools.ReplaceExtension(objfile, "asm"))
		addOpt(&options, expand(d.ProduceAsm, bindings{"asmfile": asmfile}))
	}

	b := bindings{
		"dfile":       dfile,
		"file":        cfg.quoteShell(source),
		"objfile":     cfg.quoteShell(objfile),
		"options":     options,
		"include":     includeCmd,
		"prefix":      cfg.quoteShell(cfg.PrefixDir),
		"lib":         cfg.quoteShell(cfg.LibPath),
		"vccplatform": vccplatform(cfg),
	}
	cmd := expand(cfg.quoteShell(compilePattern), b)
	cmd += " "
	cmd += expand(d.CompileTmpl, b)
	return cmd, nil
}
