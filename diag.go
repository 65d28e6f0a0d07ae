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
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Error kinds raised by the driver.  They are wrapped with context via
// pkg/errors, so callers test for them with errors.Is / errors.Cause.
var (
	// ErrUnknownCompiler is returned by SetCompiler for an unrecognized
	// toolchain name.
	ErrUnknownCompiler = errors.New("unknown C compiler")

	// ErrUnsupportedTarget is returned when the chosen toolchain has no
	// suitable executable for the requested mode, e.g. no C++ driver while
	// compiling to C++.
	ErrUnsupportedTarget = errors.New("toolchain cannot handle this target")

	// ErrWriteFailed is returned when a script, mapping, plan or footprint
	// file cannot be written.
	ErrWriteFailed = errors.New("cannot write file")

	// ErrProcessFailed is returned when an external compiler or linker
	// fails to launch or exits non-zero.
	ErrProcessFailed = errors.New("external program failed")

	// ErrPlanMalformed is returned by the plan replayer when the plan file
	// is missing fields or has wrong shapes.
	ErrPlanMalformed = errors.New("build plan is malformed")
)

// Diagnostics is the capability through which the driver reports to the
// user.  The driver never writes to stdout or stderr directly; hosts that
// embed the driver supply their own implementation, and standalone tools
// use NewDiagnostics.
type Diagnostics interface {
	// Hint reports build progress, e.g. the name of the unit being
	// compiled.  The executor reports it at verbosity level 1 only.
	Hint(msg string)

	// Command echoes a command line that is about to run.  Shown at
	// verbosity level 2 and above, or when command listing is requested.
	Command(cmd string)

	// Warning reports a recoverable condition.
	Warning(format string, args ...interface{})

	// Error reports a failure.  The build aborts after the current unit of
	// work drains.
	Error(format string, args ...interface{})
}

type logDiagnostics struct {
	log zerolog.Logger

	errColor *color.Color
	cmdColor *color.Color
}

// NewDiagnostics returns the default Diagnostics implementation, writing
// structured records to w.  Errors and echoed commands are colored unless
// color has been disabled globally (color.NoColor).
func NewDiagnostics(w io.Writer) Diagnostics {
	return &logDiagnostics{
		log:      zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger(),
		errColor: color.New(color.FgRed, color.Bold),
		cmdColor: color.New(color.FgCyan),
	}
}

func (d *logDiagnostics) Hint(msg string) {
	d.log.Info().Msg(msg)
}

func (d *logDiagnostics) Command(cmd string) {
	d.log.Info().Msg(d.cmdColor.Sprint(cmd))
}

func (d *logDiagnostics) Warning(format string, args ...interface{}) {
	d.log.Warn().Msg(fmt.Sprintf(format, args...))
}

func (d *logDiagnostics) Error(format string, args ...interface{}) {
	d.log.Error().Msg(d.errColor.Sprintf(format, args...))
}

// nullDiagnostics swallows everything.  Used when the host does not care
// about driver output, and in tests.
type nullDiagnostics struct{}

func (nullDiagnostics) Hint(string) {}
func (nullDiagnostics) Command(string) {}
func (nullDiagnostics) Warning(string, ...interface{}) {}
func (nullDiagnostics) Error(string, ...interface{}) {}

// NullDiagnostics returns a Diagnostics that discards all output.
func NullDiagnostics() Diagnostics { return nullDiagnostics{} }

func (c *Config) diag() Diagnostics {
	if c.Diagnostics == nil {
		return nullDiagnostics{}
	}
	return c.Diagnostics
}
