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
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// The footprint oracle decides whether an external source must be
// recompiled.  The footprint covers the source bytes, the target platform,
// the toolchain and the exact compile command, so any change to either
// forces a rebuild.  SHA-1 is kept for compatibility with existing on-disk
// footprint files; it is a content hash, not a security primitive.

func sha1OfFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// footprint computes the content-addressed fingerprint of cf.
func (cfg *Config) footprint(cf *CFile) (string, error) {
	fileHash, err := sha1OfFile(cf.CName)
	if err != nil {
		return "", err
	}
	cmd, err := cfg.CompileCmd(cf, false, true)
	if err != nil {
		return "", err
	}

	h := sha1.New()
	io.WriteString(h, fileHash)
	io.WriteString(h, cfg.TargetOS.Name())
	io.WriteString(h, cfg.TargetCPU.Name())
	io.WriteString(h, cfg.CCompiler.Name())
	io.WriteString(h, cmd)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// externalFileChanged compares cf's footprint with the one stored in the
// sibling "<object>.sha1" file.  On change the new footprint is written
// immediately, before any compilation runs; a later failed compile still
// recompiles on retry because the caller also deleted the object.
//
// Outside the modes that compile C the oracle always answers "unchanged".
func (cfg *Config) externalFileChanged(cf *CFile) (bool, error) {
	if !cfg.Command.compilesC() {
		return false, nil
	}

	current, err := cfg.footprint(cf)
	if err != nil {
		return false, err
	}

	hashFile := cfg.ObjFilePath(cf) + ".sha1"
	if stored, err := os.ReadFile(hashFile); err == nil {
		if strings.TrimSpace(string(stored)) == current {
			return false, nil
		}
	}
	if err := os.WriteFile(hashFile, []byte(current+"\n"), 0666); err != nil {
		werr := errors.Wrapf(ErrWriteFailed, "%s: %v", hashFile, err)
		cfg.diag().Error("%v", werr)
		return true, werr
	}
	return true, nil
}

// AddExternalFileToCompile runs the footprint oracle on cf and queues it
// for compilation.  An unchanged footprint together with an existing
// object marks the file cached; otherwise the object is deleted up front
// so a failed compile cannot leave stale output behind.
func (cfg *Config) AddExternalFileToCompile(cf CFile) error {
	cf.Flags |= FileExternal
	if cf.Obj == "" {
		cf.Obj = cfg.ObjFilePath(&cf)
	}

	// The footprint is generated unconditionally so the very first build
	// already leaves one behind for the next run to compare against.
	changed, err := cfg.externalFileChanged(&cf)
	if err != nil {
		return err
	}
	objExists := false
	if _, serr := os.Stat(cf.Obj); serr == nil {
		objExists = true
	}
	if cfg.GlobalOptions&ForceFullMake == 0 && objExists && !changed {
		cf.Flags |= FileCached
	} else {
		os.Remove(cf.Obj)
	}
	cfg.ToCompile = append(cfg.ToCompile, cf)
	return nil
}
