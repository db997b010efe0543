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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// serialAreaLabel is the access tag attached to the serial area file.
const serialAreaLabel = "u:object_r:properties_serial:s0"

// prefixEntry associates one name prefix with its owning context node.
type prefixEntry struct {
	prefix string
	node   *contextNode
}

// matches reports whether the entry owns name. The single wildcard "*"
// matches everything.
func (pe *prefixEntry) matches(name string) bool {
	return pe.prefix == "*" || strings.HasPrefix(name, pe.prefix)
}

// contextsSplit routes names using plain-text configuration of
// "<name-prefix> <access-tag>" lines. Prefixes are kept sorted by
// decreasing length so the first match is the longest, with the wildcard
// forced last.
type contextsSplit struct {
	dir string
	rw  bool

	configs    []string
	contexts   []*contextNode
	prefixes   []*prefixEntry
	serialArea *Area

	log *zap.Logger
}

func newContextsSplit(configs []string, log *zap.Logger) *contextsSplit {
	return &contextsSplit{configs: configs, log: log}
}

// addPrefix inserts before the first shorter entry, keeping longer prefixes
// first; a wildcard entry always sinks to the end.
func (cs *contextsSplit) addPrefix(prefix string, node *contextNode) {
	at := len(cs.prefixes)
	for i, e := range cs.prefixes {
		if len(e.prefix) < len(prefix) || e.prefix[0] == '*' {
			at = i
			break
		}
	}
	entry := &prefixEntry{prefix: prefix, node: node}
	cs.prefixes = append(cs.prefixes, nil)
	copy(cs.prefixes[at+1:], cs.prefixes[at:])
	cs.prefixes[at] = entry
}

func (cs *contextsSplit) findContext(context string) *contextNode {
	for _, cn := range cs.contexts {
		if cn.context == context {
			return cn
		}
	}
	return nil
}

// loadConfig parses one configuration file. Lines hold whitespace-separated
// tokens: a name prefix and an access tag; further tokens are ignored, as
// are blank lines and '#' comments. Entries in the reserved control
// namespace are parsed but never backed by a file.
func (cs *contextsSplit) loadConfig(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		prefix, context := fields[0], fields[1]
		if strings.HasPrefix(prefix, ReservedNamespace) {
			continue
		}

		node := cs.findContext(context)
		if node == nil {
			node = newContextNode(context, cs.dir)
			cs.contexts = append(cs.contexts, node)
		}
		cs.addPrefix(prefix, node)
	}
	return scanner.Err()
}

// loadConfigs loads the precedence list. Missing files are logged and
// tolerated; at least one must load.
func (cs *contextsSplit) loadConfigs() error {
	loaded := 0
	for _, path := range cs.configs {
		if err := cs.loadConfig(path); err != nil {
			if os.IsNotExist(err) {
				cs.log.Debug("skipping absent property config", zap.String("path", path))
				continue
			}
			return fmt.Errorf("sysprop: load config %s: %w", path, err)
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("sysprop: no property config could be loaded")
	}
	return nil
}

func (cs *contextsSplit) mapSerialArea(accessRW bool, xattrFailed *bool) error {
	path := filepath.Join(cs.dir, SerialFileName)
	if accessRW {
		pa, err := MapAreaRW(path, serialAreaLabel, xattrFailed)
		if err != nil {
			return err
		}
		cs.serialArea = pa
		return nil
	}
	pa, rw, err := MapArea(path)
	if err != nil {
		return err
	}
	cs.serialArea = pa
	cs.rw = rw
	return nil
}

func (cs *contextsSplit) Initialize(writable bool, location string, xattrFailed *bool) error {
	cs.dir = location
	if err := cs.loadConfigs(); err != nil {
		return err
	}

	if writable {
		if err := os.MkdirAll(cs.dir, 0o711); err != nil {
			return fmt.Errorf("sysprop: mkdir %s: %w", cs.dir, err)
		}
		if xattrFailed != nil {
			*xattrFailed = false
		}
		openFailed := false
		for _, cn := range cs.contexts {
			if !cn.Open(true, xattrFailed) {
				openFailed = true
			}
		}
		if openFailed || cs.mapSerialArea(true, xattrFailed) != nil {
			cs.FreeAndUnmap()
			return fmt.Errorf("sysprop: initialize writable store in %s", cs.dir)
		}
		cs.rw = true
		return nil
	}

	if err := cs.mapSerialArea(false, nil); err != nil {
		cs.FreeAndUnmap()
		return err
	}
	return nil
}

func (cs *contextsSplit) prefixNodeForName(name string) *prefixEntry {
	for _, e := range cs.prefixes {
		if e.matches(name) {
			return e
		}
	}
	return nil
}

func (cs *contextsSplit) GetPropAreaForName(name string) (*Area, error) {
	entry := cs.prefixNodeForName(name)
	if entry == nil {
		return nil, ErrAccessDenied
	}
	cn := entry.node
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

func (cs *contextsSplit) GetContextForName(name string) string {
	entry := cs.prefixNodeForName(name)
	if entry == nil {
		return ""
	}
	return entry.node.context
}

func (cs *contextsSplit) GetSerialPropArea() *Area { return cs.serialArea }

func (cs *contextsSplit) ForEach(fn func(pi *PropInfo)) {
	for _, cn := range cs.contexts {
		if cn.CheckAccessAndOpen() {
			cn.area().Foreach(fn)
		}
	}
}

func (cs *contextsSplit) ResetAccess() {
	for _, cn := range cs.contexts {
		cn.ResetAccess()
	}
}

func (cs *contextsSplit) FreeAndUnmap() {
	for _, cn := range cs.contexts {
		cn.Unmap()
	}
	if cs.serialArea != nil {
		cs.serialArea.Unmap()
		cs.serialArea = nil
	}
}

func (cs *contextsSplit) ReadWrite() bool { return cs.rw }
