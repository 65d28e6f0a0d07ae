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
	"testing"
)

func footprintConfig(dir string) *Config {
	return &Config{
		CCompiler:   Gcc,
		Command:     CompileToC,
		HostOS:      OSLinux,
		TargetOS:    OSLinux,
		TargetCPU:   CPUAmd64,
		LibPath:     "/usr/lib/skald",
		PrefixDir:   "/usr",
		ProjectPath: dir,
		ProjectName: "m",
		CachePath:   dir,
	}
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestFootprintSensitivity checks that every input of the footprint
// strictly changes it.
func TestFootprintSensitivity(t *testing.T) {
	dir := t.TempDir()
	cfg := footprintConfig(dir)
	src := writeSource(t, dir, "ext.c", "int f(void){return 1;}\n")
	cf := &CFile{UnitName: "ext", CName: src, Flags: FileExternal}

	base, err := cfg.footprint(cf)
	if err != nil {
		t.Fatalf("footprint: %v", err)
	}

	check := func(what string, mutate func(c *Config)) {
		mutated := footprintConfig(dir)
		mutate(mutated)
		got, err := mutated.footprint(cf)
		if err != nil {
			t.Fatalf("footprint after %s change: %v", what, err)
		}
		if got == base {
			t.Errorf("footprint ignores %s changes", what)
		}
	}
	check("target OS", func(c *Config) { c.TargetOS = OSFreeBSD })
	check("target CPU", func(c *Config) { c.TargetCPU = CPUArm64 })
	check("compiler", func(c *Config) { c.CCompiler = Clang })
	check("option", func(c *Config) { c.AddCompileOption("-DX") })

	writeSource(t, dir, "ext.c", "int f(void){return 2;}\n")
	got, err := cfg.footprint(cf)
	if err != nil {
		t.Fatalf("footprint: %v", err)
	}
	if got == base {
		t.Errorf("footprint ignores source content changes")
	}
}

// TestCachedIdempotence runs the oracle twice over an unchanged source and
// expects the second run to compile nothing.
func TestCachedIdempotence(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "ext.c", "int f(void){return 1;}\n")

	first := footprintConfig(dir)
	if err := first.AddExternalFileToCompile(CFile{UnitName: "ext", CName: src}); err != nil {
		t.Fatalf("AddExternalFileToCompile: %v", err)
	}
	if first.ToCompile[0].Flags&FileCached != 0 {
		t.Fatal("first run must not be cached")
	}

	// Simulate the successful compile.
	obj := first.ObjFilePath(&first.ToCompile[0])
	if err := os.WriteFile(obj, []byte("obj"), 0666); err != nil {
		t.Fatal(err)
	}

	second := footprintConfig(dir)
	if err := second.AddExternalFileToCompile(CFile{UnitName: "ext", CName: src}); err != nil {
		t.Fatalf("AddExternalFileToCompile: %v", err)
	}
	if second.ToCompile[0].Flags&FileCached == 0 {
		t.Error("unchanged source not cached on the second run")
	}
	if _, err := os.Stat(obj); err != nil {
		t.Error("cached object was deleted")
	}

	cmds, _, err := second.compileCommands()
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 0 {
		t.Errorf("second run synthesized %d compile commands, want 0", len(cmds))
	}
}

// TestFootprintDetectsSourceChange mutates one of two sources and expects
// exactly that one to recompile.
func TestFootprintDetectsSourceChange(t *testing.T) {
	dir := t.TempDir()
	srcA := writeSource(t, dir, "a.c", "int a(void){return 1;}\n")
	srcB := writeSource(t, dir, "b.c", "int b(void){return 1;}\n")

	build := func() *Config {
		cfg := footprintConfig(dir)
		for _, src := range []string{srcA, srcB} {
			if err := cfg.AddExternalFileToCompile(CFile{
				UnitName: filepath.Base(src), CName: src,
			}); err != nil {
				t.Fatal(err)
			}
		}
		// Simulate compiling whatever was not cached.
		for i := range cfg.ToCompile {
			cf := &cfg.ToCompile[i]
			if cf.Flags&FileCached == 0 {
				if err := os.WriteFile(cfg.ObjFilePath(cf), []byte("obj"), 0666); err != nil {
					t.Fatal(err)
				}
			}
		}
		return cfg
	}

	build()
	warm := build()
	for i := range warm.ToCompile {
		if warm.ToCompile[i].Flags&FileCached == 0 {
			t.Fatalf("%s not cached on warm rebuild", warm.ToCompile[i].CName)
		}
	}

	writeSource(t, dir, "a.c", "int a(void){return 2;}\n")
	third := build()
	if third.ToCompile[0].Flags&FileCached != 0 {
		t.Error("changed source still cached")
	}
	if third.ToCompile[1].Flags&FileCached == 0 {
		t.Error("untouched source lost its cache entry")
	}
}

// TestFootprintWrittenBeforeCompile pins down the retry behavior: the
// footprint goes to disk before any compile runs, and a failed compile
// still recompiles next time because the object was deleted up front.
func TestFootprintWrittenBeforeCompile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "ext.c", "int f(void){return 1;}\n")

	first := footprintConfig(dir)
	if err := first.AddExternalFileToCompile(CFile{UnitName: "ext", CName: src}); err != nil {
		t.Fatal(err)
	}
	obj := first.ObjFilePath(&first.ToCompile[0])
	if _, err := os.Stat(obj + ".sha1"); err != nil {
		t.Fatalf("first build left no footprint behind: %v", err)
	}

	// Established state: object and footprint both present.
	if err := os.WriteFile(obj, []byte("obj"), 0666); err != nil {
		t.Fatal(err)
	}
	warm := footprintConfig(dir)
	if err := warm.AddExternalFileToCompile(CFile{UnitName: "ext", CName: src}); err != nil {
		t.Fatal(err)
	}

	// The source changes; the oracle must store the new footprint at once
	// and delete the object, even though no compile has run yet.
	writeSource(t, dir, "ext.c", "int f(void){return 2;}\n")
	changed := footprintConfig(dir)
	if err := changed.AddExternalFileToCompile(CFile{UnitName: "ext", CName: src}); err != nil {
		t.Fatal(err)
	}
	if changed.ToCompile[0].Flags&FileCached != 0 {
		t.Fatal("changed source marked cached")
	}
	if _, err := os.Stat(obj); !os.IsNotExist(err) {
		t.Error("stale object not deleted before compilation")
	}
	newFootprint, err := changed.footprint(&changed.ToCompile[0])
	if err != nil {
		t.Fatal(err)
	}
	stored, err := os.ReadFile(obj + ".sha1")
	if err != nil {
		t.Fatalf("footprint file missing: %v", err)
	}
	if string(stored) != newFootprint+"\n" {
		t.Errorf("stored footprint not updated before compile:\nwant: %q\n got: %q",
			newFootprint+"\n", string(stored))
	}

	// Retry after the "failed compile": the object is absent, so the unit
	// recompiles even though the footprint already matches.
	retry := footprintConfig(dir)
	if err := retry.AddExternalFileToCompile(CFile{UnitName: "ext", CName: src}); err != nil {
		t.Fatal(err)
	}
	if retry.ToCompile[0].Flags&FileCached != 0 {
		t.Error("missing object must force recompilation")
	}
}

func TestOracleIdleOutsideCModes(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "ext.c", "int f(void){return 1;}\n")
	cfg := footprintConfig(dir)
	cfg.Command = CompileToJS

	cf := &CFile{UnitName: "ext", CName: src, Flags: FileExternal}
	changed, err := cfg.externalFileChanged(cf)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("oracle must answer unchanged outside C-compiling modes")
	}
	if _, err := os.Stat(cfg.ObjFilePath(cf) + ".sha1"); !os.IsNotExist(err) {
		t.Error("oracle wrote a footprint outside C-compiling modes")
	}
}
