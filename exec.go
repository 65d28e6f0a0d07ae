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
	"os/exec"
	"runtime"
	"sync"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// runCommand launches one self-contained command string and waits for it,
// returning the combined stdout and stderr.
func runCommand(cmdline string) (output []byte, err error) {
	argv, err := shellquote.Split(cmdline)
	if err != nil || len(argv) == 0 {
		return nil, errors.Wrapf(ErrProcessFailed, "cannot parse command %q", cmdline)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	return cmd.CombinedOutput()
}

// echoCmd applies the verbosity policy before a command runs: level 2 or
// command listing echoes the full command; level 1 leaves the reporting to
// the completion callback; level 0 stays silent.
func (cfg *Config) echoCmd(cmdline string) {
	if cfg.Verbosity >= 2 || cfg.GlobalOptions&ListCmd != 0 {
		cfg.diag().Command(cmdline)
	}
}

// reportProcessFailure reproduces the captured output verbatim together
// with the failing command.
func (cfg *Config) reportProcessFailure(cmdline string, output []byte, err error) {
	cfg.diag().Error("execution of an external program failed: %s\n%s%s",
		cmdline, output, describeProcessError(err))
}

// ExecExternalProgram runs a single command, honoring the verbosity
// policy, and reports a failure with the captured output.
func (cfg *Config) ExecExternalProgram(cmdline string) error {
	cfg.echoCmd(cmdline)
	output, err := runCommand(cmdline)
	if err != nil {
		cfg.reportProcessFailure(cmdline, output, err)
		return errors.Wrap(ErrProcessFailed, cmdline)
	}
	return nil
}

// ExecCommandsInParallel runs cmds with up to NumProcessors concurrent
// child processes (auto-detected when zero).  At verbosity level 1,
// prettyCb, if non-nil, is invoked with the command's index after it
// completes, in completion order.  A failure is reported immediately; commands already started run
// to completion, no new ones are spawned, and the overall call fails.
//
// With a single processor the commands run sequentially and the first
// failure stops the run at once.
func (cfg *Config) ExecCommandsInParallel(cmds []string, prettyCb func(idx int)) error {
	if len(cmds) == 0 {
		return nil
	}
	jobs := cfg.NumProcessors
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	if jobs == 1 || len(cmds) == 1 {
		for i, cmdline := range cmds {
			cfg.echoCmd(cmdline)
			output, err := runCommand(cmdline)
			if prettyCb != nil && cfg.Verbosity == 1 {
				prettyCb(i)
			}
			if err != nil {
				cfg.reportProcessFailure(cmdline, output, err)
				return errors.Wrap(ErrProcessFailed, cmdline)
			}
		}
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	sem := make(chan struct{}, jobs)
	for i, cmdline := range cmds {
		// Check for failures only after a slot frees up, so a command
		// that failed while we waited stops the next spawn.
		sem <- struct{}{}
		mu.Lock()
		stop := failed > 0
		mu.Unlock()
		if stop {
			<-sem
			break
		}
		wg.Add(1)
		go func(i int, cmdline string) {
			defer wg.Done()
			defer func() { <-sem }()

			cfg.echoCmd(cmdline)
			output, err := runCommand(cmdline)

			mu.Lock()
			defer mu.Unlock()
			if prettyCb != nil && cfg.Verbosity == 1 {
				prettyCb(i)
			}
			if err != nil {
				failed++
				cfg.reportProcessFailure(cmdline, output, err)
			}
		}(i, cmdline)
	}
	wg.Wait()

	if failed > 0 {
		return errors.Wrapf(ErrProcessFailed, "%d command(s) failed", failed)
	}
	return nil
}
