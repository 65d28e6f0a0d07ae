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
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func planConfig(dir string) *Config {
	cfg := footprintConfig(dir)
	cfg.OutFile = filepath.Join(dir, "m")
	return cfg
}

func TestWriteBuildPlanShape(t *testing.T) {
	dir := t.TempDir()
	cfg := planConfig(dir)
	srcA := writeSource(t, dir, "a.c", "int a;\n")
	srcB := writeSource(t, dir, "b.c", "int b;\n")
	cfg.AddFileToCompile(CFile{UnitName: "a", CName: srcA})
	cfg.AddFileToCompile(CFile{UnitName: "b", CName: srcB, Flags: FileCached})
	cfg.AddExternalFileToLink(filepath.Join(dir, "ext.o"))

	if err := WriteBuildPlan(cfg); err != nil {
		t.Fatalf("WriteBuildPlan: %v", err)
	}

	data, err := os.ReadFile(cfg.PlanPath())
	if err != nil {
		t.Fatal(err)
	}
	var plan struct {
		Compile [][]string `json:"compile"`
		Link    []string   `json:"link"`
		LinkCmd string     `json:"linkcmd"`
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		t.Fatalf("plan is not valid JSON: %v", err)
	}

	// Only the non-cached unit compiles, but every object links.
	if len(plan.Compile) != 1 || plan.Compile[0][0] != srcA {
		t.Errorf("compile entries = %v", plan.Compile)
	}
	if len(plan.Link) != 3 {
		t.Errorf("link list = %v, want 3 objects", plan.Link)
	}
	if plan.Link[0] != filepath.Join(dir, "ext.o") {
		t.Errorf("externals must come first in the link list: %v", plan.Link)
	}
	if plan.LinkCmd == "" {
		t.Error("plan misses the link command")
	}
}

// Replaying a plan with trivially successful commands produces no
// diagnostics and succeeds.
func TestRunBuildPlan(t *testing.T) {
	dir := t.TempDir()
	plan := map[string]interface{}{
		"compile": [][]string{
			{"/t/a.c", "true"},
			{"/t/b.c", "true"},
		},
		"link":    []string{"/t/a.o", "/t/b.o"},
		"linkcmd": "true",
	}
	data, _ := json.Marshal(plan)
	planPath := filepath.Join(dir, "m.json")
	if err := os.WriteFile(planPath, data, 0666); err != nil {
		t.Fatal(err)
	}

	rec := &recordingDiagnostics{}
	cfg := &Config{NumProcessors: 2, Diagnostics: rec}
	if err := RunBuildPlan(cfg, planPath); err != nil {
		t.Fatalf("RunBuildPlan: %v", err)
	}
	if len(rec.errs) != 0 {
		t.Errorf("replay produced diagnostics: %v", rec.errs)
	}
}

func TestRunBuildPlanMalformed(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "m.json")

	cases := []string{
		`{`,
		`{"link": []}`,
		`{"compile": [["only-one-element"]], "link": [], "linkcmd": ""}`,
	}
	for _, content := range cases {
		if err := os.WriteFile(planPath, []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
		cfg := &Config{Diagnostics: NullDiagnostics()}
		err := RunBuildPlan(cfg, planPath)
		if !errors.Is(err, ErrPlanMalformed) {
			t.Errorf("plan %q: expected ErrPlanMalformed, got %v", content, err)
		}
		if err != nil && !strings.Contains(err.Error(), planPath) {
			t.Errorf("diagnostic must quote the plan path: %v", err)
		}
	}
}

func TestBuildPlanStale(t *testing.T) {
	dir := t.TempDir()
	cfg := planConfig(dir)
	cfg.GlobalOptions |= Run
	cfg.CommandLine = "skald c -r m.sk"
	src := writeSource(t, dir, "a.c", "int a;\n")
	dep := writeSource(t, dir, "m.sk", "echo 1\n")
	cfg.AddFileToCompile(CFile{UnitName: "a", CName: src})
	cfg.DepFiles = []string{dep}

	// The expected output must exist for the plan to count as fresh.
	if err := os.WriteFile(cfg.AbsOutFile(), []byte("bin"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := WriteBuildPlan(cfg); err != nil {
		t.Fatalf("WriteBuildPlan: %v", err)
	}

	if BuildPlanStale(cfg, cfg.PlanPath()) {
		t.Fatal("freshly written plan reported stale")
	}

	// A missing plan is stale.
	if !BuildPlanStale(cfg, filepath.Join(dir, "nope.json")) {
		t.Error("missing plan not reported stale")
	}

	// A different command line is stale.
	changed := planConfig(dir)
	changed.GlobalOptions |= Run
	changed.CommandLine = "skald c -d:release -r m.sk"
	if !BuildPlanStale(changed, cfg.PlanPath()) {
		t.Error("changed command line not reported stale")
	}

	// A touched dependency is stale.
	writeSource(t, dir, "m.sk", "echo 2\n")
	if !BuildPlanStale(cfg, cfg.PlanPath()) {
		t.Error("changed dependency not reported stale")
	}
}

func TestBuildPlanStaleWithoutTrackingKeys(t *testing.T) {
	dir := t.TempDir()
	cfg := planConfig(dir)
	src := writeSource(t, dir, "a.c", "int a;\n")
	cfg.AddFileToCompile(CFile{UnitName: "a", CName: src})

	if err := WriteBuildPlan(cfg); err != nil {
		t.Fatal(err)
	}
	// Without run tracking the plan has no cmdline/compilerexe keys, so
	// it can never prove freshness.
	if !BuildPlanStale(cfg, cfg.PlanPath()) {
		t.Error("plan without tracking keys must be stale")
	}
}
