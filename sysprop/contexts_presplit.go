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

// contextsPreSplit serves installations where the property location is a
// single legacy area file rather than a directory of per-context areas. One
// area owns every name and doubles as the serial area.
type contextsPreSplit struct {
	path string
	rw   bool
	pa   *Area
}

func (cp *contextsPreSplit) Initialize(writable bool, location string, xattrFailed *bool) error {
	cp.path = location
	if writable {
		pa, err := MapAreaRW(cp.path, "", xattrFailed)
		if err != nil {
			return err
		}
		cp.pa = pa
		cp.rw = true
		return nil
	}
	pa, rw, err := MapArea(cp.path)
	if err != nil {
		return err
	}
	cp.pa = pa
	cp.rw = rw
	return nil
}

func (cp *contextsPreSplit) GetPropAreaForName(name string) (*Area, error) {
	if cp.pa == nil {
		return nil, ErrAccessDenied
	}
	return cp.pa, nil
}

// The pre-split file predates access tags; there is none to report.
func (cp *contextsPreSplit) GetContextForName(name string) string { return "" }

func (cp *contextsPreSplit) GetSerialPropArea() *Area { return cp.pa }

func (cp *contextsPreSplit) ForEach(fn func(pi *PropInfo)) {
	if cp.pa != nil {
		cp.pa.Foreach(fn)
	}
}

func (cp *contextsPreSplit) ResetAccess() {}

func (cp *contextsPreSplit) FreeAndUnmap() {
	if cp.pa != nil {
		cp.pa.Unmap()
		cp.pa = nil
	}
}

func (cp *contextsPreSplit) ReadWrite() bool { return cp.rw }
