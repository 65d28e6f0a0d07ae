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
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/skald-lang/ccdrive/deptools"
	"github.com/skald-lang/ccdrive/pathtools"
)

// buildPlan is the JSON document describing a fully resolved build.  A
// later invocation replays it without re-running the front end.
type buildPlan struct {
	// Compile holds [source path, compile command] pairs for every
	// non-cached unit, in ToCompile order.
	Compile [][]string `json:"compile"`

	// Link lists every object file participating in the link.
	Link []string `json:"link"`

	LinkCmd string `json:"linkcmd"`

	// The remaining fields exist only when run tracking is active; the
	// staleness detector compares them against the current invocation.
	CmdLine     string     `json:"cmdline,omitempty"`
	DepFiles    [][]string `json:"depfiles,omitempty"`
	CompilerExe string     `json:"compilerexe,omitempty"`
}

// PlanPath returns the canonical plan location, "<cache>/<project>.json".
func (cfg *Config) PlanPath() string {
	return filepath.Join(cfg.CachePath, cfg.ProjectName+".json")
}

func (cfg *Config) runTracking() bool {
	return cfg.GlobalOptions&Run != 0 || cfg.BetterRun
}

// planDepFiles resolves the [path, hash] pairs recorded for staleness
// detection.  The host's module info table wins; absent that, the
// dependency listings the compiler wrote next to the objects are parsed.
func (cfg *Config) planDepFiles() ([][]string, error) {
	paths := cfg.DepFiles
	if len(paths) == 0 {
		seen := make(map[string]bool)
		for i := range cfg.ToCompile {
			dpath := pathtools.ReplaceExtension(cfg.ObjFilePath(&cfg.ToCompile[i]), "d")
			deps, err := deptools.ParseDepFile(dpath)
			if err != nil {
				continue // the toolchain was not asked for depfiles
			}
			for _, dep := range deps {
				if filepath.IsAbs(dep) && !seen[dep] {
					seen[dep] = true
					paths = append(paths, dep)
				}
			}
		}
		sort.Strings(paths)
	}

	pairs := make([][]string, 0, len(paths))
	for _, p := range paths {
		hash, err := sha1OfFile(p)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, []string{p, hash})
	}
	return pairs, nil
}

// WriteBuildPlan serializes the resolved build to PlanPath.
func WriteBuildPlan(cfg *Config) error {
	plan := buildPlan{Compile: [][]string{}, Link: []string{}}

	for i := range cfg.ToCompile {
		cf := &cfg.ToCompile[i]
		if cf.Flags&FileCached != 0 {
			continue
		}
		cmd, err := cfg.CompileCmd(cf, cfg.isMainUnit(cf), true)
		if err != nil {
			return err
		}
		plan.Compile = append(plan.Compile, []string{cf.CName, cmd})
	}

	objfiles, objList := cfg.linkObjFiles()
	plan.Link = objList
	if cfg.GlobalOptions&NoLinking == 0 {
		linkCmd, err := cfg.LinkCmd(cfg.AbsOutFile(), objfiles, cfg.GlobalOptions&GenDynLib != 0)
		if err != nil {
			return err
		}
		plan.LinkCmd = linkCmd
	}

	if cfg.runTracking() {
		plan.CmdLine = cfg.CommandLine
		pairs, err := cfg.planDepFiles()
		if err != nil {
			return err
		}
		plan.DepFiles = pairs
		if exe, err := os.Executable(); err == nil {
			if hash, err := sha1OfFile(exe); err == nil {
				plan.CompilerExe = hash
			}
		}
	}

	data, err := json.MarshalIndent(&plan, "", "  ")
	if err != nil {
		return err
	}
	path := cfg.PlanPath()
	if err := os.WriteFile(path, data, 0666); err != nil {
		werr := errors.Wrapf(ErrWriteFailed, "%s: %v", path, err)
		cfg.diag().Error("%v", werr)
		return werr
	}
	return nil
}

// BuildPlanStale reports whether the stored plan can no longer reproduce
// the build: the plan or the expected output is missing, the command line
// or the front-end binary changed, or any recorded dependency hash
// differs.  Unreadable or malformed plans count as stale, with a warning.
func BuildPlanStale(cfg *Config, planPath string) bool {
	data, err := os.ReadFile(planPath)
	if err != nil {
		return true
	}
	var plan buildPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		cfg.diag().Warning("cannot parse build plan %q: %v", planPath, err)
		return true
	}
	if _, err := os.Stat(cfg.AbsOutFile()); err != nil {
		return true
	}
	if plan.CmdLine == "" || plan.CmdLine != cfg.CommandLine {
		return true
	}
	if plan.CompilerExe == "" {
		return true
	}
	exe, err := os.Executable()
	if err != nil {
		return true
	}
	hash, err := sha1OfFile(exe)
	if err != nil || hash != plan.CompilerExe {
		return true
	}
	for _, pair := range plan.DepFiles {
		if len(pair) != 2 {
			return true
		}
		hash, err := sha1OfFile(pair[0])
		if err != nil || hash != pair[1] {
			return true
		}
	}
	return false
}

// RunBuildPlan parses and replays a stored plan: every compile command
// through the parallel executor, then the link command.  Structural
// mismatches are fatal.
func RunBuildPlan(cfg *Config, planPath string) error {
	data, err := os.ReadFile(planPath)
	if err != nil {
		merr := errors.Wrapf(ErrPlanMalformed, "%q: %v", planPath, err)
		cfg.diag().Error("%v", merr)
		return merr
	}
	var plan buildPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		merr := errors.Wrapf(ErrPlanMalformed, "%q: %v", planPath, err)
		cfg.diag().Error("%v", merr)
		return merr
	}
	if plan.Compile == nil {
		merr := errors.Wrapf(ErrPlanMalformed, "%q: missing \"compile\" key", planPath)
		cfg.diag().Error("%v", merr)
		return merr
	}

	cmds := make([]string, 0, len(plan.Compile))
	pretty := make([]string, 0, len(plan.Compile))
	for _, pair := range plan.Compile {
		if len(pair) != 2 {
			merr := errors.Wrapf(ErrPlanMalformed,
				"%q: compile entries must be [source, command] pairs", planPath)
			cfg.diag().Error("%v", merr)
			return merr
		}
		cmds = append(cmds, pair[1])
		pretty = append(pretty, filepath.Base(pair[0]))
	}

	prettyCb := func(idx int) { cfg.diag().Hint(pretty[idx]) }
	if err := cfg.ExecCommandsInParallel(cmds, prettyCb); err != nil {
		return err
	}
	if plan.LinkCmd != "" {
		return cfg.execLinkCmd(plan.LinkCmd)
	}
	return nil
}
