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

// Ccdrive drives an external C toolchain on behalf of the skald compiler's
// back end.  The front end hands it a Config describing the chosen compiler,
// the target platform and the generated C translation units; ccdrive decides
// how to invoke the compiler and linker, runs the invocations with bounded
// parallelism, and skips translation units whose content-addressed footprint
// has not changed since the last build.
//
// The supported toolchains form a closed set of descriptors (gcc, clang,
// vcc, tcc, ...), each carrying command templates with $name placeholders.
// Command synthesis is a deliberately dumb template substitution: values are
// shell-quoted before they are bound, and the engine performs no escaping of
// its own.  This keeps the synthesized command strings byte-for-byte
// predictable, which the footprint hashing and the build-plan replay rely
// on.
//
// Besides compiling and linking, ccdrive can emit a JSON build plan that a
// later invocation replays without re-running the front end (see the
// ccreplay command), a standalone shell script of every command, and an INI
// mapping file for external tooling.
//
// Ccdrive never prints to stdout or stderr itself; all user-visible output
// flows through the Diagnostics capability on Config.
package ccdrive
