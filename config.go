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

	"github.com/kballard/go-shellquote"
)

// Command is the back-end mode the front end selected.
type Command int

const (
	CommandNone Command = iota
	CompileToC
	CompileToCpp
	CompileToOC
	CompileToJS
	CompileToLLVM
)

// compilesC reports whether the mode actually produces C sources that go
// through the external toolchain.  The footprint oracle is a no-op outside
// these modes.
func (c Command) compilesC() bool {
	switch c {
	case CommandNone, CompileToC, CompileToCpp, CompileToOC, CompileToLLVM:
		return true
	}
	return false
}

// TargetOS identifies an operating system, either as the build target or as
// the machine the driver runs on.
type TargetOS int

const (
	OSNone TargetOS = iota
	OSLinux
	OSWindows
	OSMacOSX
	OSFreeBSD
	OSNetBSD
	OSOpenBSD
	OSSolaris
	OSAndroid
	OSHaiku
	OSNintendoSwitch
	OSDOS
	OSJS
)

type osInfo struct {
	name      string
	scriptExt string
	exeExt    string // extension of executables, without the dot
	dllFmt    string // shared library name template, $1 is the base name
	needsPIC  bool   // shared libraries require position independent code
	winFamily bool   // DOS-descended command and path conventions
}

var osInfos = [...]osInfo{
	OSNone:           {name: "none", scriptExt: "sh", dllFmt: "lib$1.so"},
	OSLinux:          {name: "linux", scriptExt: "sh", dllFmt: "lib$1.so", needsPIC: true},
	OSWindows:        {name: "windows", scriptExt: "bat", exeExt: "exe", dllFmt: "$1.dll", winFamily: true},
	OSMacOSX:         {name: "macosx", scriptExt: "sh", dllFmt: "lib$1.dylib", needsPIC: true},
	OSFreeBSD:        {name: "freebsd", scriptExt: "sh", dllFmt: "lib$1.so", needsPIC: true},
	OSNetBSD:         {name: "netbsd", scriptExt: "sh", dllFmt: "lib$1.so", needsPIC: true},
	OSOpenBSD:        {name: "openbsd", scriptExt: "sh", dllFmt: "lib$1.so", needsPIC: true},
	OSSolaris:        {name: "solaris", scriptExt: "sh", dllFmt: "lib$1.so", needsPIC: true},
	OSAndroid:        {name: "android", scriptExt: "sh", dllFmt: "lib$1.so", needsPIC: true},
	OSHaiku:          {name: "haiku", scriptExt: "sh", dllFmt: "lib$1.so", needsPIC: true},
	OSNintendoSwitch: {name: "nintendoswitch", scriptExt: "sh", dllFmt: "lib$1.so", needsPIC: true},
	OSDOS:            {name: "dos", scriptExt: "bat", exeExt: "exe", dllFmt: "$1.dll", winFamily: true},
	OSJS:             {name: "js", scriptExt: "sh", dllFmt: "lib$1.so"},
}

// Name returns the canonical lower-case OS name.
func (os TargetOS) Name() string { return osInfos[os].name }

// NeedsPIC reports whether shared objects on this OS require position
// independent code.
func (os TargetOS) NeedsPIC() bool { return osInfos[os].needsPIC }

// IsWindowsFamily reports whether the OS follows Windows/DOS conventions
// for executables and command lines.
func (os TargetOS) IsWindowsFamily() bool { return osInfos[os].winFamily }

// CPU identifies a target processor.
type CPU int

const (
	CPUNone CPU = iota
	CPUI386
	CPUAmd64
	CPUArm
	CPUArm64
	CPURiscV64
)

var cpuNames = [...]string{
	CPUNone:    "none",
	CPUI386:    "i386",
	CPUAmd64:   "amd64",
	CPUArm:     "arm",
	CPUArm64:   "arm64",
	CPURiscV64: "riscv64",
}

// Name returns the canonical lower-case CPU name.
func (c CPU) Name() string { return cpuNames[c] }

// GlobalOption is a bit in the global option set the front end hands over.
type GlobalOption uint32

const (
	CompileOnly GlobalOption = 1 << iota
	GenScript
	GenMapping
	GenStaticLib
	GenDynLib
	GenGuiApp
	ListCmd
	NoLinking
	ForceFullMake
	ProduceAsm
	CDebug
	MixedMode
	Run
)

// Option is a bit in the optimization option set.
type Option uint32

const (
	OptimizeSpeed Option = 1 << iota
	OptimizeSize
)

// CFileFlags describe per-translation-unit state.
type CFileFlags uint8

const (
	// FileExternal marks a source that is tracked by content footprint
	// rather than regenerated every build.
	FileExternal CFileFlags = 1 << iota

	// FileCached is set by the footprint oracle when the unit does not
	// need recompilation.  It must never be set by callers.
	FileCached
)

// CFile is one generated C translation unit together with its per-file
// build state.
type CFile struct {
	// UnitName is the logical name of the translation unit, used to look
	// up per-unit option overrides such as "<unit>.speed".
	UnitName string

	// CName is the absolute path of the generated source file.
	CName string

	// Obj is the object file path.  Empty means "derive from CName".
	Obj string

	Flags CFileFlags
}

// Config is the shared configuration bundle the host populates before
// invoking the driver.  The driver both reads it and writes it: option
// accumulators accrue flags, and ToCompile entries gain the FileCached
// flag.  The driver assumes exclusive access for the duration of a build.
type Config struct {
	CCompiler Compiler
	Command   Command

	GlobalOptions GlobalOption
	Options       Option

	// HCROn selects the hot-code-reload build mode: one shared library per
	// object plus a main executable.
	HCROn bool

	TargetOS  TargetOS
	TargetCPU CPU
	HostOS    TargetOS

	// Option accumulators.  CompileOptions and LinkOptions are flat
	// strings grown with de-duplicating appends; the Cmd variants hold
	// command-line-originated flags that are merged in at synthesis time.
	CompileOptions       string
	LinkOptions          string
	CompileOptionsCmd    []string
	LinkOptionsCmd       []string
	CFileSpecificOptions map[string]string // full source path -> extra options

	Verbosity     int
	NumProcessors int // 0 means auto-detect

	// Paths.  All absolute except OutFile, which may still carry a tilde.
	LibPath       string
	PrefixDir     string
	ProjectPath   string
	ProjectName   string
	CachePath     string
	OutFile       string
	CCompilerPath string

	ToCompile      []CFile
	ExternalToLink []string
	CLibs          []string // library search directories
	CLinkedLibs    []string // libraries linked by name
	CIncludes      []string

	// ConfigVars holds textual overrides from the host configuration,
	// e.g. "gcc.exe", "clang.linkerexe", "<unit>.always".
	ConfigVars map[string]string

	// Defines is the conditional-compilation symbol set.  SetCompiler
	// undefines every descriptor name and defines the active one.
	Defines map[string]bool

	// CommandLine is the user's original invocation, recorded in build
	// plans for staleness detection.
	CommandLine string

	// DepFiles lists every absolute file of the module info table; the
	// plan writer records their hashes when run tracking is active.
	DepFiles []string

	// BetterRun requests plan-based staleness tracking without the
	// run-after-build behavior of the Run option.
	BetterRun bool

	Diagnostics Diagnostics
}

// ExistsConfigVar reports whether the host configuration defines key.
func (c *Config) ExistsConfigVar(key string) bool {
	_, ok := c.ConfigVars[key]
	return ok
}

// GetConfigVar returns the host configuration value for key, or "".
func (c *Config) GetConfigVar(key string) string {
	return c.ConfigVars[key]
}

// addOpt appends src to dest separated by a single space.  Descriptor flag
// fragments carry their own leading space, so no separator is inserted when
// dest is empty or already ends in one.
func addOpt(dest *string, src string) {
	if len(*dest) > 0 && !strings.HasSuffix(*dest, " ") {
		*dest += " "
	}
	*dest += src
}

// AddCompileOption appends option to the compile option accumulator unless
// it already occurs there.  The occurrence check is a plain substring
// search, not a token comparison; existing host configurations depend on
// that.
func (c *Config) AddCompileOption(option string) {
	if !strings.Contains(c.CompileOptions, option) {
		addOpt(&c.CompileOptions, option)
	}
}

// AddLinkOption appends option to the link option accumulator unless it
// already occurs there as a substring.
func (c *Config) AddLinkOption(option string) {
	if !strings.Contains(c.LinkOptions, option) {
		addOpt(&c.LinkOptions, option)
	}
}

// AddCompileOptionCmd records a compile flag given on the command line.
// These merge into each synthesized command after the configuration
// options, with the same substring de-duplication.
func (c *Config) AddCompileOptionCmd(option string) {
	c.CompileOptionsCmd = append(c.CompileOptionsCmd, option)
}

// AddLinkOptionCmd records a link flag given on the command line.
func (c *Config) AddLinkOptionCmd(option string) {
	c.LinkOptionsCmd = append(c.LinkOptionsCmd, option)
}

// AddFileToCompile appends a generated translation unit.
func (c *Config) AddFileToCompile(cf CFile) {
	c.ToCompile = append(c.ToCompile, cf)
}

// AddExternalFileToLink records an externally produced object file.  New
// entries go to the front of the list, so the final link order is the
// reverse of the insertion order.
func (c *Config) AddExternalFileToLink(objPath string) {
	c.ExternalToLink = append([]string{objPath}, c.ExternalToLink...)
}

// DefineSymbol records name in the conditional-compilation symbol set.
func (c *Config) DefineSymbol(name string) {
	if c.Defines == nil {
		c.Defines = make(map[string]bool)
	}
	c.Defines[name] = true
}

// UndefSymbol removes name from the conditional-compilation symbol set.
func (c *Config) UndefSymbol(name string) {
	delete(c.Defines, name)
}

// quoteShell quotes s for the shell the synthesized command will run
// under.  When quotingOS is Windows-family the value is wrapped in double
// quotes; elsewhere POSIX minimal quoting applies.
func (c *Config) quoteShell(s string) string {
	if c.quotingOS().IsWindowsFamily() {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return shellquote.Join(s)
}

// quotingOS is the OS whose quoting conventions apply: the target when a
// script is generated for it, the host otherwise.
func (c *Config) quotingOS() TargetOS {
	if c.GlobalOptions&GenScript != 0 {
		return c.TargetOS
	}
	return c.HostOS
}

// needsExeExt reports whether executable names must carry the ".exe"
// suffix, i.e. when the host is Windows or a script is generated for a
// Windows target.
func (c *Config) needsExeExt() bool {
	return c.HostOS == OSWindows ||
		(c.GlobalOptions&GenScript != 0 && c.TargetOS == OSWindows)
}

// noAbsolutePaths reports whether the synthesized commands must avoid
// absolute paths, which is the case for generated scripts that must work
// on other machines.
func (c *Config) noAbsolutePaths() bool {
	return c.GlobalOptions&GenScript != 0
}
