/*
 * Copyright 2025 The system-properties Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sysprop

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// contextNode lazily owns at most one property area file, identified by an
// opaque access tag that doubles as the file name under the property
// directory. The lock only serializes opening within one process; it never
// re-enters the store, so it is safe to take during early bringup.
type contextNode struct {
	lock    spinLock
	context string
	dir     string

	pa       *Area
	noAccess bool
}

func newContextNode(context, dir string) *contextNode {
	return &contextNode{context: context, dir: dir}
}

func (cn *contextNode) filename() string {
	return filepath.Join(cn.dir, cn.context)
}

// Open maps the node's area, idempotently. With accessRW the file is
// exclusively created and labelled with the node's context.
func (cn *contextNode) Open(accessRW bool, xattrFailed *bool) bool {
	cn.lock.lock()
	defer cn.lock.unlock()
	if cn.pa != nil {
		return true
	}

	if accessRW {
		pa, err := MapAreaRW(cn.filename(), cn.context, xattrFailed)
		if err != nil {
			return false
		}
		cn.pa = pa
	} else {
		pa, _, err := MapArea(cn.filename())
		if err != nil {
			return false
		}
		cn.pa = pa
	}
	return true
}

// CheckAccess tests the backing file for read access.
func (cn *contextNode) CheckAccess() bool {
	return unix.Access(cn.filename(), unix.R_OK) == nil
}

// CheckAccessAndOpen opens the node unless a previous attempt already
// failed; the cached no_access flag keeps foreach from repeating futile
// opens and audits.
func (cn *contextNode) CheckAccessAndOpen() bool {
	if cn.pa == nil && !cn.noAccess {
		if !cn.CheckAccess() || !cn.Open(false, nil) {
			cn.noAccess = true
		}
	}
	return cn.pa != nil
}

// ResetAccess re-evaluates read access, unmapping the area when it has been
// revoked.
func (cn *contextNode) ResetAccess() {
	if !cn.CheckAccess() {
		cn.Unmap()
		cn.noAccess = true
	} else {
		cn.noAccess = false
	}
}

// Unmap drops the node's mapping, if any.
func (cn *contextNode) Unmap() {
	cn.lock.lock()
	defer cn.lock.unlock()
	if cn.pa != nil {
		cn.pa.Unmap()
		cn.pa = nil
	}
}

func (cn *contextNode) area() *Area { return cn.pa }
