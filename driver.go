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
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/skald-lang/ccdrive/pathtools"
)

// isMainUnit reports whether cf is the project's designated main unit.
func (cfg *Config) isMainUnit(cf *CFile) bool {
	return cf.UnitName == cfg.ProjectName
}

// compileCommands synthesizes one compile command per non-cached unit,
// plus the short names the verbosity-1 progress output uses.
func (cfg *Config) compileCommands() (cmds, pretty []string, err error) {
	for i := range cfg.ToCompile {
		cf := &cfg.ToCompile[i]
		if cf.Flags&FileCached != 0 {
			continue
		}
		cmd, err := cfg.CompileCmd(cf, cfg.isMainUnit(cf), true)
		if err != nil {
			return nil, nil, err
		}
		cmds = append(cmds, cmd)
		pretty = append(pretty, filepath.Base(cf.CName))
	}
	return cmds, pretty, nil
}

// linkObjFiles assembles the object list handed to the linker: every
// external object first, in their stored (reverse-insertion) order, then
// every generated object in ToCompile order.  The joined form has each
// path quoted.
func (cfg *Config) linkObjFiles() (joined string, list []string) {
	objExt := cfg.CCompiler.Descriptor().ObjExt
	for _, ext := range cfg.ExternalToLink {
		obj := pathtools.AddFileExt(ext, objExt)
		if cfg.noAbsolutePaths() {
			obj = filepath.Base(obj)
		}
		list = append(list, obj)
	}
	for i := range cfg.ToCompile {
		obj := cfg.ObjFilePath(&cfg.ToCompile[i])
		if cfg.noAbsolutePaths() {
			obj = filepath.Base(obj)
		}
		list = append(list, obj)
	}
	for i, obj := range list {
		if i > 0 {
			joined += " "
		}
		joined += cfg.quoteShell(obj)
	}
	return joined, list
}

// hcrLinkTarget names the per-object link output in the cache directory:
// the OS's shared-library name for ordinary objects, the executable name
// for the main object.  The executable drops the source extension too
// ("m.sk.c.o" becomes "m.sk"), so it never collides with the generated
// source in the same directory.
func (cfg *Config) hcrLinkTarget(objFile string, isMain bool) string {
	base := pathtools.StripExtension(filepath.Base(objFile))
	var name string
	if isMain {
		name = pathtools.StripExtension(base)
		if ext := osInfos[cfg.TargetOS].exeExt; ext != "" {
			name += "." + ext
		}
	} else {
		name = expand(osInfos[cfg.TargetOS].dllFmt, bindings{"1": base})
	}
	return filepath.Join(cfg.CachePath, name)
}

// removeStalePDBs deletes leftover timestamped PDB files for target.
// Best effort: the debugger may still hold some of them open.
func removeStalePDBs(target string) {
	matches, _ := filepath.Glob(pathtools.StripExtension(target) + ".*.pdb")
	for _, m := range matches {
		os.Remove(m)
	}
}

// copyFilePreserve copies src to dst, carrying over the permission bits.
func copyFilePreserve(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	// OpenFile's mode applies only to a new file and is masked by the
	// umask; set the bits explicitly.
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// hcrLink produces one link command per non-cached object, each yielding a
// separate shared library in the cache, except the main object which
// yields the executable.  After the links succeed the main binary is
// copied from the cache to the intended output path.
func (cfg *Config) hcrLink() (cmds []string, err error) {
	mainOutput := cfg.AbsOutFile()
	mainCached := ""
	for i := range cfg.ToCompile {
		cf := &cfg.ToCompile[i]
		if cf.Flags&FileCached != 0 {
			continue
		}
		objFile := cfg.ObjFilePath(cf)
		isMain := cfg.isMainUnit(cf)
		target := cfg.hcrLinkTarget(objFile, isMain)
		if isMain {
			mainCached = target
		}
		if IsVSCompatible(cfg) {
			removeStalePDBs(target)
		}
		cmd, err := cfg.LinkCmd(target, cfg.quoteShell(objFile), !isMain)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}

	if cfg.GlobalOptions&CompileOnly == 0 {
		if err := cfg.ExecCommandsInParallel(cmds, nil); err != nil {
			return cmds, err
		}
		if mainCached != "" && mainCached != mainOutput {
			if err := copyFilePreserve(mainCached, mainOutput); err != nil {
				werr := errors.Wrapf(ErrWriteFailed, "%s: %v", mainOutput, err)
				cfg.diag().Error("%v", werr)
				return cmds, werr
			}
		}
	}
	return cmds, nil
}

// CallCCompiler compiles every pending translation unit and links the
// result according to Config.  It honors CompileOnly and NoLinking, and
// collects the executed commands into a script when GenScript is set.
func CallCCompiler(cfg *Config) error {
	// CompileOnly means the host wanted the generated C, not the build.
	// Without a script to fill there is nothing to do at all.
	if cfg.GlobalOptions&(CompileOnly|GenScript) == CompileOnly {
		return nil
	}
	if len(cfg.ToCompile) == 0 && len(cfg.ExternalToLink) == 0 {
		return nil
	}

	cmds, pretty, err := cfg.compileCommands()
	if err != nil {
		return err
	}
	script := append([]string(nil), cmds...)

	if cfg.GlobalOptions&CompileOnly == 0 {
		prettyCb := func(idx int) { cfg.diag().Hint(pretty[idx]) }
		if err := cfg.ExecCommandsInParallel(cmds, prettyCb); err != nil {
			return err
		}
	}

	if cfg.GlobalOptions&NoLinking == 0 {
		if cfg.HCROn && cfg.GlobalOptions&GenStaticLib == 0 {
			hcrCmds, err := cfg.hcrLink()
			script = append(script, hcrCmds...)
			if err != nil {
				return err
			}
		} else {
			objfiles, _ := cfg.linkObjFiles()
			linkCmd, err := cfg.LinkCmd(cfg.AbsOutFile(), objfiles, cfg.GlobalOptions&GenDynLib != 0)
			if err != nil {
				return err
			}
			script = append(script, linkCmd)
			if cfg.GlobalOptions&CompileOnly == 0 {
				if err := cfg.execLinkCmd(linkCmd); err != nil {
					return err
				}
			}
		}
	}

	if cfg.GlobalOptions&GenScript != 0 {
		return cfg.generateScript(script)
	}
	return nil
}
