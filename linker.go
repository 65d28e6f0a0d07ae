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
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/skald-lang/ccdrive/pathtools"
)

// staticLibFile resolves the archive name for a static library build: the
// configured out file (tilde-expanded and made absolute), or the target
// OS's conventional name for the project.
func (cfg *Config) staticLibFile() string {
	if cfg.OutFile != "" {
		out := pathtools.ExpandTilde(cfg.OutFile)
		if !filepath.IsAbs(out) {
			if abs, err := filepath.Abs(out); err == nil {
				out = abs
			}
		}
		return out
	}
	if cfg.TargetOS.IsWindowsFamily() {
		return cfg.ProjectName + ".lib"
	}
	return "lib" + cfg.ProjectName + ".a"
}

// AbsOutFile resolves the final output path, defaulting to the project
// name (with the target's executable extension) inside the project
// directory.
func (cfg *Config) AbsOutFile() string {
	out := pathtools.ExpandTilde(cfg.OutFile)
	if out == "" {
		out = cfg.ProjectName
		if ext := osInfos[cfg.TargetOS].exeExt; ext != "" {
			out = pathtools.AddFileExt(out, ext)
		}
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(cfg.ProjectPath, out)
	}
	return out
}

// LinkCmd synthesizes the link invocation producing output from the
// already quoted, space-separated objfiles.  With GenStaticLib set the
// archive command is produced instead; isDll switches in the descriptor's
// shared-library flags.
func (cfg *Config) LinkCmd(output string, objfiles string, isDll bool) (string, error) {
	d := cfg.CCompiler.Descriptor()

	if cfg.GlobalOptions&GenStaticLib != 0 {
		return expand(d.BuildLib, bindings{
			"libfile":  cfg.quoteShell(cfg.staticLibFile()),
			"objfiles": objfiles,
		}), nil
	}

	linkerExe := cfg.GetConfigVar(d.Name + ".linkerexe")
	if linkerExe == "" {
		linkerExe = d.LinkerExe
	}
	if linkerExe == "" {
		// No dedicated linker: drive the link through the compiler.
		var err error
		linkerExe, err = cfg.getCompilerExe(cfg.CCompiler, "")
		if err != nil {
			return "", err
		}
	} else if cfg.needsExeExt() {
		linkerExe = pathtools.AddFileExt(linkerExe, "exe")
	}
	linkPattern := linkerExe
	if !cfg.noAbsolutePaths() {
		linkPattern = filepath.Join(cfg.CCompilerPath, linkerExe)
	}

	buildgui := ""
	if cfg.GlobalOptions&GenGuiApp != 0 && cfg.TargetOS == OSWindows {
		buildgui = d.BuildGui
	}
	builddll := ""
	if isDll {
		builddll = d.BuildDll
	}
	mapfile := cfg.quoteShell(filepath.Join(cfg.CachePath,
		pathtools.StripExtension(filepath.Base(output))+".map"))

	linkTmpl := cfg.GetConfigVar(d.Name + ".linkTmpl")
	if linkTmpl == "" {
		linkTmpl = d.LinkTmpl
	}

	b := bindings{
		"builddll":    builddll,
		"mapfile":     mapfile,
		"buildgui":    buildgui,
		"options":     cfg.getLinkOptions(),
		"objfiles":    objfiles,
		"exefile":     cfg.quoteShell(output),
		"prefix":      cfg.quoteShell(cfg.PrefixDir),
		"lib":         cfg.quoteShell(cfg.LibPath),
		"vccplatform": vccplatform(cfg),
	}
	cmd := expand(cfg.quoteShell(linkPattern), b)
	cmd += " "
	cmd += expand(linkTmpl, b)

	if cfg.HCROn && IsVSCompatible(cfg) {
		// A fresh PDB name per link keeps the debugger from holding a lock
		// on the previous one across reloads.
		cmd += " /link /PDB:" + pathtools.StripExtension(output) + "." +
			strconv.FormatInt(time.Now().UTC().UnixNano(), 10) + ".pdb"
	}
	if cfg.GlobalOptions&CDebug != 0 && cfg.CCompiler == Vcc {
		cmd += " /Zi /FS /Od"
	}
	return cmd, nil
}

// gccDescended reports whether the toolchain reads response files with
// GCC's escape rules.
func gccDescended(c Compiler) bool {
	switch c {
	case Gcc, SwitchGcc, LLVMGcc, Clang, Icc:
		return true
	}
	return false
}

// leadingExeEnd returns the index one past the command's leading
// executable, honoring a double-quoted head.
func leadingExeEnd(cmdline string) int {
	if strings.HasPrefix(cmdline, `"`) {
		if end := strings.Index(cmdline[1:], `"`); end >= 0 {
			return end + 2
		}
		return len(cmdline)
	}
	if sp := strings.IndexByte(cmdline, ' '); sp >= 0 {
		return sp
	}
	return len(cmdline)
}

// linkViaResponseFile works around command-line length limits: the
// arguments after the executable are moved into a transient
// "<project>_linkerArgs.txt" file and the linker is invoked with @file.
// GCC-descended toolchains get backslashes rewritten to forward slashes
// because their response files treat backslashes as escapes.
func (cfg *Config) linkViaResponseFile(linkCmd string) error {
	exeEnd := leadingExeEnd(linkCmd)
	args := strings.TrimLeft(linkCmd[exeEnd:], " ")
	if gccDescended(cfg.CCompiler) {
		args = pathtools.ToForwardSlash(args)
	}

	respFile := filepath.Join(cfg.ProjectPath, cfg.ProjectName+"_linkerArgs.txt")
	if err := os.WriteFile(respFile, []byte(args), 0666); err != nil {
		werr := errors.Wrapf(ErrWriteFailed, "%s: %v", respFile, err)
		cfg.diag().Error("%v", werr)
		return werr
	}
	defer os.Remove(respFile)

	return cfg.ExecExternalProgram(linkCmd[:exeEnd] + " @" + respFile)
}

// execLinkCmd runs the assembled link command, falling back to a response
// file when the command line exceeds the platform limit.
func (cfg *Config) execLinkCmd(linkCmd string) error {
	if len(linkCmd) > maxCmdLen {
		return cfg.linkViaResponseFile(linkCmd)
	}
	return cfg.ExecExternalProgram(linkCmd)
}
