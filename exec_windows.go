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

//go:build windows

package ccdrive

import (
	"fmt"
	"os/exec"
)

func describeProcessError(err error) string {
	if ee, ok := err.(*exec.ExitError); ok {
		return fmt.Sprintf("(exit status %d)", ee.ExitCode())
	}
	return fmt.Sprintf("(%v)", err)
}
