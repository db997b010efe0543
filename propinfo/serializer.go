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

package propinfo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Entry is one routing rule fed to Build. A name ending in '.' (or the
// equivalent trailing ".*") labels everything below that point; any other
// non-exact name matches as a byte prefix at its trie level; an exact entry
// matches the full remaining name only.
type Entry struct {
	Name    string
	Context string
	Type    string
	Exact   bool
}

type builderEntry struct {
	name    string
	context string
	typ     string
}

type builderNode struct {
	name     string
	context  string
	typ      string
	hasValue bool

	children map[string]*builderNode
	prefixes []builderEntry
	exact    []builderEntry
}

func newBuilderNode(name string) *builderNode {
	return &builderNode{name: name, children: map[string]*builderNode{}}
}

func (n *builderNode) child(name string) *builderNode {
	c, ok := n.children[name]
	if !ok {
		c = newBuilderNode(name)
		n.children[name] = c
	}
	return c
}

// addToTrie walks the fully dotted segments of the entry's name and attaches
// the remainder as a node value, prefix, or exact match. A bare "*" labels
// the root itself, routing otherwise-unmatched names.
func addToTrie(root *builderNode, e Entry) error {
	if e.Name == "" {
		return errors.New("propinfo: empty entry name")
	}
	if e.Context == "" {
		return fmt.Errorf("propinfo: entry %q has no context", e.Name)
	}
	name := strings.TrimSuffix(e.Name, "*")

	current := root
	remaining := name
	for {
		sep := strings.IndexByte(remaining, '.')
		if sep < 0 {
			break
		}
		seg := remaining[:sep]
		if seg == "" {
			return fmt.Errorf("propinfo: entry %q has an empty segment", e.Name)
		}
		current = current.child(seg)
		remaining = remaining[sep+1:]
	}

	be := builderEntry{name: remaining, context: e.Context, typ: e.Type}
	switch {
	case e.Exact:
		current.exact = append(current.exact, be)
	case remaining == "":
		// The name ended at a '.': the node itself carries the value.
		current.context = e.Context
		current.typ = e.Type
		current.hasValue = true
	default:
		current.prefixes = append(current.prefixes, be)
	}
	return nil
}

// stringPool packs deduplicated NUL-terminated strings.
type stringPool struct {
	buf     []byte
	offsets map[string]uint32
}

func newStringPool() *stringPool {
	return &stringPool{offsets: map[string]uint32{}}
}

// add returns the pool-relative offset of s.
func (p *stringPool) add(s string) uint32 {
	if off, ok := p.offsets[s]; ok {
		return off
	}
	off := uint32(len(p.buf))
	p.buf = append(p.buf, s...)
	p.buf = append(p.buf, 0)
	p.offsets[s] = off
	return off
}

type serializer struct {
	pool      *stringPool
	poolBase  uint32
	contexts  []string
	types     []string
	nodes     []byte
	nodesBase uint32
}

func (s *serializer) stringOff(str string) uint32 {
	return s.poolBase + s.pool.add(str)
}

func (s *serializer) contextIndex(context string) uint32 {
	if context == "" {
		return NoIndex
	}
	i := sort.SearchStrings(s.contexts, context)
	return uint32(i)
}

func (s *serializer) typeIndex(typ string) uint32 {
	if typ == "" {
		return NoIndex
	}
	i := sort.SearchStrings(s.types, typ)
	return uint32(i)
}

func putU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}

// writeEntries appends an entry array and returns its absolute offset.
func (s *serializer) writeEntries(entries []builderEntry) uint32 {
	if len(entries) == 0 {
		return 0
	}
	off := s.nodesBase + uint32(len(s.nodes))
	for _, e := range entries {
		buf := make([]byte, entrySize)
		putU32(buf, entryNameOffset, s.stringOff(e.name))
		putU32(buf, entryNameLen, uint32(len(e.name)))
		putU32(buf, entryContextIndex, s.contextIndex(e.context))
		putU32(buf, entryTypeIndex, s.typeIndex(e.typ))
		s.nodes = append(s.nodes, buf...)
	}
	return off
}

// writeNode serializes the subtree under n post-order and returns the
// absolute offset of n's fixed record.
func (s *serializer) writeNode(n *builderNode) uint32 {
	// Children first, sorted by plain strcmp so lookup can binary-search.
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	childOffsets := make([]uint32, len(names))
	for i, name := range names {
		childOffsets[i] = s.writeNode(n.children[name])
	}

	var childArr uint32
	if len(childOffsets) > 0 {
		childArr = s.nodesBase + uint32(len(s.nodes))
		for _, off := range childOffsets {
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, off)
			s.nodes = append(s.nodes, buf...)
		}
	}
	prefixArr := s.writeEntries(n.prefixes)
	exactArr := s.writeEntries(n.exact)

	off := s.nodesBase + uint32(len(s.nodes))
	buf := make([]byte, nodeSize)
	putU32(buf, nodeNameOffset, s.stringOff(n.name))
	if n.hasValue {
		putU32(buf, nodeContextIndex, s.contextIndex(n.context))
		putU32(buf, nodeTypeIndex, s.typeIndex(n.typ))
	} else {
		putU32(buf, nodeContextIndex, NoIndex)
		putU32(buf, nodeTypeIndex, NoIndex)
	}
	putU32(buf, nodeNumChildNodes, uint32(len(names)))
	putU32(buf, nodeChildNodesOffset, childArr)
	putU32(buf, nodeNumPrefixes, uint32(len(n.prefixes)))
	putU32(buf, nodePrefixesOffset, prefixArr)
	putU32(buf, nodeNumExactMatches, uint32(len(n.exact)))
	putU32(buf, nodeExactMatchesOffset, exactArr)
	s.nodes = append(s.nodes, buf...)
	return off
}

// collectStrings seeds the pool with every string the trie will reference so
// the pool size is final before node offsets are assigned.
func (s *serializer) collectStrings(n *builderNode) {
	s.pool.add(n.name)
	for _, e := range n.prefixes {
		s.pool.add(e.name)
	}
	for _, e := range n.exact {
		s.pool.add(e.name)
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.collectStrings(n.children[name])
	}
}

// Build compiles routing entries into trie file bytes that Load and NewArea
// accept.
func Build(entries []Entry) ([]byte, error) {
	root := newBuilderNode("")
	contextSet := map[string]bool{}
	typeSet := map[string]bool{}
	for _, e := range entries {
		if err := addToTrie(root, e); err != nil {
			return nil, err
		}
		contextSet[e.Context] = true
		if e.Type != "" {
			typeSet[e.Type] = true
		}
	}

	s := &serializer{pool: newStringPool()}
	for c := range contextSet {
		s.contexts = append(s.contexts, c)
	}
	for t := range typeSet {
		s.types = append(s.types, t)
	}
	// Sorted arrays let both the reader and the index assignment below use
	// binary search.
	sort.Strings(s.contexts)
	sort.Strings(s.types)

	for _, c := range s.contexts {
		s.pool.add(c)
	}
	for _, t := range s.types {
		s.pool.add(t)
	}
	s.collectStrings(root)

	contextsOffset := uint32(headerSize)
	typesOffset := contextsOffset + uint32(len(s.contexts))*4
	s.poolBase = typesOffset + uint32(len(s.types))*4
	s.nodesBase = s.poolBase + uint32(len(s.pool.buf))

	rootOffset := s.writeNode(root)

	total := int(s.nodesBase) + len(s.nodes)
	out := make([]byte, total)
	putU32(out, hdrCurrentVersion, CurrentVersion)
	putU32(out, hdrMinimumSupportedVersion, MinimumSupportedVersion)
	putU32(out, hdrSize, uint32(total))
	putU32(out, hdrContextsOffset, contextsOffset)
	putU32(out, hdrTypesOffset, typesOffset)
	putU32(out, hdrRootOffset, rootOffset)
	putU32(out, hdrStringsOffset, s.poolBase)
	putU32(out, hdrNumContexts, uint32(len(s.contexts)))
	putU32(out, hdrNumTypes, uint32(len(s.types)))

	for i, c := range s.contexts {
		putU32(out, int(contextsOffset)+i*4, s.poolBase+s.pool.offsets[c])
	}
	for i, t := range s.types {
		putU32(out, int(typesOffset)+i*4, s.poolBase+s.pool.offsets[t])
	}
	copy(out[s.poolBase:], s.pool.buf)
	copy(out[s.nodesBase:], s.nodes)

	return out, nil
}
