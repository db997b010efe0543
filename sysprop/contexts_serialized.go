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
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/feicong/system-properties/propinfo"
)

// contextsSerialized routes names through the precompiled read-only trie
// file shipped alongside the areas. One context node is allocated per
// context string in the file; lookups index straight into that array.
type contextsSerialized struct {
	dir string
	rw  bool

	file       *propinfo.File
	nodes      []*contextNode
	serialArea *Area

	log *zap.Logger
}

func newContextsSerialized(log *zap.Logger) *contextsSerialized {
	return &contextsSerialized{log: log}
}

func (cx *contextsSerialized) triePath() string {
	return filepath.Join(cx.dir, TrieFileName)
}

func (cx *contextsSerialized) initializeContextNodes() {
	area := cx.file.Area()
	n := area.NumContexts()
	cx.nodes = make([]*contextNode, n)
	for i := uint32(0); i < n; i++ {
		cx.nodes[i] = newContextNode(area.Context(i), cx.dir)
	}
}

func (cx *contextsSerialized) mapSerialArea(accessRW bool, xattrFailed *bool) error {
	path := filepath.Join(cx.dir, SerialFileName)
	if accessRW {
		pa, err := MapAreaRW(path, serialAreaLabel, xattrFailed)
		if err != nil {
			return err
		}
		cx.serialArea = pa
		return nil
	}
	pa, rw, err := MapArea(path)
	if err != nil {
		return err
	}
	cx.serialArea = pa
	cx.rw = rw
	return nil
}

func (cx *contextsSerialized) Initialize(writable bool, location string, xattrFailed *bool) error {
	cx.dir = location

	file, err := propinfo.Load(cx.triePath())
	if err != nil {
		return fmt.Errorf("sysprop: load routing trie: %w", err)
	}
	cx.file = file
	cx.initializeContextNodes()

	if writable {
		if err := os.MkdirAll(cx.dir, 0o711); err != nil {
			cx.FreeAndUnmap()
			return fmt.Errorf("sysprop: mkdir %s: %w", cx.dir, err)
		}
		if xattrFailed != nil {
			*xattrFailed = false
		}
		openFailed := false
		for _, cn := range cx.nodes {
			if !cn.Open(true, xattrFailed) {
				openFailed = true
			}
		}
		if openFailed || cx.mapSerialArea(true, xattrFailed) != nil {
			cx.FreeAndUnmap()
			return fmt.Errorf("sysprop: initialize writable store in %s", cx.dir)
		}
		cx.rw = true
		return nil
	}

	if err := cx.mapSerialArea(false, nil); err != nil {
		cx.FreeAndUnmap()
		return err
	}
	return nil
}

func (cx *contextsSerialized) GetPropAreaForName(name string) (*Area, error) {
	index, _ := cx.file.Area().GetPropertyInfoIndexes(name)
	if index == propinfo.NoIndex || index >= uint32(len(cx.nodes)) {
		cx.log.Warn("no routing context for property", zap.String("name", name))
		return nil, ErrAccessDenied
	}
	cn := cx.nodes[index]
	if cn.area() == nil {
		// Deliberately ignores the cached no_access flag: unlike ForEach,
		// every denied lookup here should produce a fresh host audit.
		cn.Open(false, nil)
	}
	if cn.area() == nil {
		return nil, ErrAccessDenied
	}
	return cn.area(), nil
}

func (cx *contextsSerialized) GetContextForName(name string) string {
	context, _ := cx.file.Area().GetPropertyInfo(name)
	return context
}

func (cx *contextsSerialized) GetSerialPropArea() *Area { return cx.serialArea }

func (cx *contextsSerialized) ForEach(fn func(pi *PropInfo)) {
	for _, cn := range cx.nodes {
		if cn.CheckAccessAndOpen() {
			cn.area().Foreach(fn)
		}
	}
}

func (cx *contextsSerialized) ResetAccess() {
	for _, cn := range cx.nodes {
		cn.ResetAccess()
	}
}

func (cx *contextsSerialized) FreeAndUnmap() {
	for _, cn := range cx.nodes {
		cn.Unmap()
	}
	if cx.serialArea != nil {
		cx.serialArea.Unmap()
		cx.serialArea = nil
	}
	if cx.file != nil {
		cx.file.Close()
		cx.file = nil
	}
}

func (cx *contextsSerialized) ReadWrite() bool { return cx.rw }
