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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

// recordingDiagnostics keeps everything for inspection.
type recordingDiagnostics struct {
	mu       sync.Mutex
	hints    []string
	commands []string
	errs     []string
}

func (d *recordingDiagnostics) Hint(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hints = append(d.hints, msg)
}

func (d *recordingDiagnostics) Command(cmd string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, cmd)
}

func (d *recordingDiagnostics) Warning(format string, args ...interface{}) {}

func (d *recordingDiagnostics) Error(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, fmt.Sprintf(format, args...))
}

func TestExecCommandsInParallelSuccess(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{NumProcessors: 4, Diagnostics: &recordingDiagnostics{}}

	var cmds []string
	for i := 0; i < 8; i++ {
		cmds = append(cmds, fmt.Sprintf("touch %s/out%d", dir, i))
	}
	if err := cfg.ExecCommandsInParallel(cmds, nil); err != nil {
		t.Fatalf("ExecCommandsInParallel: %v", err)
	}
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("out%d", i))); err != nil {
			t.Errorf("command %d never ran: %v", i, err)
		}
	}
}

func TestExecCommandsInParallelFailureReported(t *testing.T) {
	rec := &recordingDiagnostics{}
	cfg := &Config{NumProcessors: 2, Diagnostics: rec}

	err := cfg.ExecCommandsInParallel([]string{"true", "false", "true"}, nil)
	if !errors.Is(err, ErrProcessFailed) {
		t.Fatalf("expected ErrProcessFailed, got %v", err)
	}
	if len(rec.errs) == 0 {
		t.Fatal("failure produced no diagnostic")
	}
	found := false
	for _, e := range rec.errs {
		if strings.Contains(e, "false") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostic does not name the failing command: %v", rec.errs)
	}
}

// Single-processor mode is sequential and stops at the first failure.
func TestExecCommandsSequentialStopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingDiagnostics{}
	cfg := &Config{NumProcessors: 1, Diagnostics: rec}

	marker := filepath.Join(dir, "after")
	err := cfg.ExecCommandsInParallel([]string{"false", "touch " + marker}, nil)
	if !errors.Is(err, ErrProcessFailed) {
		t.Fatalf("expected ErrProcessFailed, got %v", err)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("command after the failure still ran in sequential mode")
	}
}

func TestExecVerbosityPolicy(t *testing.T) {
	rec := &recordingDiagnostics{}
	cfg := &Config{NumProcessors: 1, Verbosity: 2, Diagnostics: rec}
	if err := cfg.ExecCommandsInParallel([]string{"true"}, nil); err != nil {
		t.Fatal(err)
	}
	if len(rec.commands) != 1 {
		t.Errorf("verbosity 2 echoed %d commands, want 1", len(rec.commands))
	}

	rec = &recordingDiagnostics{}
	cfg = &Config{NumProcessors: 1, Verbosity: 1, Diagnostics: rec}
	var seen []int
	cb := func(idx int) { seen = append(seen, idx) }
	if err := cfg.ExecCommandsInParallel([]string{"true", "true"}, cb); err != nil {
		t.Fatal(err)
	}
	if len(rec.commands) != 0 {
		t.Errorf("verbosity 1 must not echo commands, echoed %d", len(rec.commands))
	}
	if len(seen) != 2 {
		t.Errorf("pretty callback ran %d times, want 2", len(seen))
	}

	rec = &recordingDiagnostics{}
	cfg = &Config{NumProcessors: 1, Verbosity: 0, GlobalOptions: ListCmd, Diagnostics: rec}
	if err := cfg.ExecCommandsInParallel([]string{"true"}, nil); err != nil {
		t.Fatal(err)
	}
	if len(rec.commands) != 1 {
		t.Errorf("ListCmd must echo commands regardless of verbosity")
	}
}

func TestExecExternalProgramLaunchFailure(t *testing.T) {
	rec := &recordingDiagnostics{}
	cfg := &Config{Diagnostics: rec}
	err := cfg.ExecExternalProgram("/nonexistent/binary --flag")
	if !errors.Is(err, ErrProcessFailed) {
		t.Fatalf("expected ErrProcessFailed, got %v", err)
	}
	if len(rec.errs) != 1 {
		t.Errorf("launch failure produced %d diagnostics, want 1", len(rec.errs))
	}
}
