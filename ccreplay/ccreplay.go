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

// Ccreplay replays a build plan previously written by the driver, running
// every recorded compile command and the link command without the front
// end.  With -check it only reports whether the plan is stale.
//
//	ccreplay -plan out/cache/project.json
//	ccreplay -check -plan out/cache/project.json && ./project
//
// The job count defaults to $CCDRIVE_JOBS, then to the number of CPUs.
// Settings may also come from an optional ccdrive.toml next to the plan.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/xyproto/env/v2"

	"github.com/skald-lang/ccdrive"
)

type tomlSettings struct {
	Plan      string `toml:"plan"`
	Jobs      int    `toml:"jobs"`
	Verbosity int    `toml:"verbosity"`
}

func main() {
	var (
		planPath  string
		jobs      int
		verbosity int
		check     bool
		cmdline   string
	)
	flags := flag.NewFlagSet("ccreplay", flag.ExitOnError)
	flags.StringVar(&planPath, "plan", "", "Path of the build plan to replay")
	flags.IntVar(&jobs, "j", env.Int("CCDRIVE_JOBS", 0), "Concurrent compile processes (0 = all CPUs)")
	flags.IntVar(&verbosity, "v", 1, "Verbosity level (0..2)")
	flags.BoolVar(&check, "check", false, "Only report staleness; exit 2 when stale")
	flags.StringVar(&cmdline, "cmdline", "", "Original invocation, for the staleness check")
	flags.Parse(os.Args[1:])

	if env.Bool("NO_COLOR") {
		color.NoColor = true
	}

	if planPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: ccreplay -plan <project>.json [-check] [-j N]")
		flags.PrintDefaults()
		os.Exit(1)
	}

	// An optional ccdrive.toml beside the plan supplies the job count and
	// verbosity when the command line leaves them at their defaults.
	var settings tomlSettings
	tomlPath := filepath.Join(filepath.Dir(planPath), "ccdrive.toml")
	if _, err := toml.DecodeFile(tomlPath, &settings); err == nil {
		if jobs == 0 && settings.Jobs > 0 {
			jobs = settings.Jobs
		}
		if settings.Verbosity > 0 && verbosity == 1 {
			verbosity = settings.Verbosity
		}
	}

	// The staleness check locates the expected output from the project
	// name; derive it from the plan file, built as "<project>.json".
	cwd, _ := os.Getwd()
	cfg := &ccdrive.Config{
		NumProcessors: jobs,
		Verbosity:     verbosity,
		CommandLine:   cmdline,
		ProjectName:   strings.TrimSuffix(filepath.Base(planPath), ".json"),
		ProjectPath:   cwd,
		Diagnostics:   ccdrive.NewDiagnostics(os.Stderr),
	}

	if check {
		if ccdrive.BuildPlanStale(cfg, planPath) {
			fmt.Println("stale")
			os.Exit(2)
		}
		fmt.Println("up to date")
		return
	}

	if err := ccdrive.RunBuildPlan(cfg, planPath); err != nil {
		os.Exit(1)
	}
}
