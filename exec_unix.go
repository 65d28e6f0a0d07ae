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

//go:build !windows

package ccdrive

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// describeProcessError renders the wait status of a failed child.  On unix
// a signal-terminated compiler (OOM kill, segfault) reads very differently
// from a plain non-zero exit, so the two are distinguished.
func describeProcessError(err error) string {
	ee, ok := err.(*exec.ExitError)
	if !ok {
		return fmt.Sprintf("(%v)", err)
	}
	ws, ok := ee.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		return fmt.Sprintf("(%v)", err)
	}
	if unix.WaitStatus(ws).Signaled() {
		return fmt.Sprintf("(terminated by signal %s)",
			unix.SignalName(unix.WaitStatus(ws).Signal()))
	}
	return fmt.Sprintf("(exit status %d)", unix.WaitStatus(ws).ExitStatus())
}
