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
	"strings"
)

// Area is a read-only view over trie file bytes. All dereferences are
// bounds-checked; a corrupt offset reads as zero or an empty string rather
// than escaping the buffer.
type Area struct {
	data []byte
}

// NewArea validates the header and returns a view over data.
func NewArea(data []byte) (*Area, error) {
	if len(data) < headerSize {
		return nil, errors.New("propinfo: file shorter than header")
	}
	a := &Area{data: data}
	if a.u32(hdrMinimumSupportedVersion) > CurrentVersion {
		return nil, errors.New("propinfo: unsupported trie version")
	}
	if a.u32(hdrSize) != uint32(len(data)) {
		return nil, errors.New("propinfo: size field does not match file size")
	}
	return a, nil
}

func (a *Area) u32(off uint32) uint32 {
	if int64(off)+4 > int64(len(a.data)) {
		return 0
	}
	return binary.LittleEndian.Uint32(a.data[off:])
}

// cString reads the NUL-terminated string at off.
func (a *Area) cString(off uint32) string {
	if int64(off) >= int64(len(a.data)) {
		return ""
	}
	end := off
	for end < uint32(len(a.data)) && a.data[end] != 0 {
		end++
	}
	return string(a.data[off:end])
}

// CurrentVersion returns the version the file was written with.
func (a *Area) CurrentVersion() uint32 { return a.u32(hdrCurrentVersion) }

// MinimumSupportedVersion returns the oldest reader the file supports.
func (a *Area) MinimumSupportedVersion() uint32 { return a.u32(hdrMinimumSupportedVersion) }

// Size returns the total file size recorded in the header.
func (a *Area) Size() uint32 { return a.u32(hdrSize) }

// NumContexts returns the number of context strings.
func (a *Area) NumContexts() uint32 { return a.u32(hdrNumContexts) }

// NumTypes returns the number of type strings.
func (a *Area) NumTypes() uint32 { return a.u32(hdrNumTypes) }

func (a *Area) contextOffset(i uint32) uint32 {
	return a.u32(a.u32(hdrContextsOffset) + i*4)
}

func (a *Area) typeOffset(i uint32) uint32 {
	return a.u32(a.u32(hdrTypesOffset) + i*4)
}

// Context returns the i-th context string.
func (a *Area) Context(i uint32) string {
	if i >= a.NumContexts() {
		return ""
	}
	return a.cString(a.contextOffset(i))
}

// Type returns the i-th type string.
func (a *Area) Type(i uint32) string {
	if i >= a.NumTypes() {
		return ""
	}
	return a.cString(a.typeOffset(i))
}

// find binary-searches array_length slots with a three-way comparison.
func find(arrayLength uint32, cmp func(uint32) int) int {
	bottom, top := 0, int(arrayLength)-1
	for top >= bottom {
		search := (top + bottom) / 2
		c := cmp(uint32(search))
		if c == 0 {
			return search
		}
		if c < 0 {
			bottom = search + 1
		} else {
			top = search - 1
		}
	}
	return -1
}

// FindContextIndex locates a context string's index by binary search on the
// sorted context array. The serializer uses it to assign indices.
func (a *Area) FindContextIndex(context string) int {
	return find(a.NumContexts(), func(i uint32) int {
		return strings.Compare(a.cString(a.contextOffset(i)), context)
	})
}

// FindTypeIndex locates a type string's index by binary search on the sorted
// type array.
func (a *Area) FindTypeIndex(typ string) int {
	return find(a.NumTypes(), func(i uint32) int {
		return strings.Compare(a.cString(a.typeOffset(i)), typ)
	})
}

// nodeName returns the segment name of the node at off.
func (a *Area) nodeName(off uint32) string {
	return a.cString(a.u32(off + nodeNameOffset))
}

// findChildForString binary-searches a node's sorted children for the
// initial segment of name. A child whose name merely starts with the segment
// compares greater, pushing the search toward a real match.
func (a *Area) findChildForString(nodeOff uint32, segment string) (uint32, bool) {
	num := a.u32(nodeOff + nodeNumChildNodes)
	arr := a.u32(nodeOff + nodeChildNodesOffset)

	idx := find(num, func(i uint32) int {
		childName := a.nodeName(a.u32(arr + i*4))
		prefix := childName
		if len(prefix) > len(segment) {
			prefix = prefix[:len(segment)]
		}
		cmp := strings.Compare(prefix, segment)
		if cmp == 0 && len(childName) != len(segment) {
			return 1
		}
		return cmp
	})
	if idx < 0 {
		return 0, false
	}
	return a.u32(arr + uint32(idx)*4), true
}

func (a *Area) entry(base uint32, i uint32) uint32 { return base + i*entrySize }

// checkPrefixMatch scans a node's prefix entries against the remaining name
// and overwrites the running indexes on the first hit. The prefix list is
// the finest-grained match at its level; it does not need to be longest.
func (a *Area) checkPrefixMatch(remaining string, nodeOff uint32, contextIndex, typeIndex *uint32) {
	num := a.u32(nodeOff + nodeNumPrefixes)
	base := a.u32(nodeOff + nodePrefixesOffset)
	for i := uint32(0); i < num; i++ {
		e := a.entry(base, i)
		prefixLen := a.u32(e + entryNameLen)
		if int64(prefixLen) > int64(len(remaining)) {
			continue
		}
		if a.cString(a.u32(e+entryNameOffset)) == remaining[:prefixLen] {
			if ci := a.u32(e + entryContextIndex); ci != NoIndex {
				*contextIndex = ci
			}
			if ti := a.u32(e + entryTypeIndex); ti != NoIndex {
				*typeIndex = ti
			}
			return
		}
	}
}

// GetPropertyInfoIndexes resolves name to its (context, type) index pair,
// NoIndex when unmatched.
func (a *Area) GetPropertyInfoIndexes(name string) (contextIndex, typeIndex uint32) {
	contextIndex, typeIndex = NoIndex, NoIndex
	remaining := name
	nodeOff := a.u32(hdrRootOffset)

	for {
		// The node's own value applies to everything below it.
		if ci := a.u32(nodeOff + nodeContextIndex); ci != NoIndex {
			contextIndex = ci
		}
		if ti := a.u32(nodeOff + nodeTypeIndex); ti != NoIndex {
			typeIndex = ti
		}
		// Prefixes after the node value: they are longer by definition.
		a.checkPrefixMatch(remaining, nodeOff, &contextIndex, &typeIndex)

		sep := strings.IndexByte(remaining, '.')
		if sep < 0 {
			break
		}
		child, ok := a.findChildForString(nodeOff, remaining[:sep])
		if !ok {
			break
		}
		nodeOff = child
		remaining = remaining[sep+1:]
	}

	// At the terminal node: an exact match wins, falling back to the
	// running values for either half marked NoIndex.
	numExact := a.u32(nodeOff + nodeNumExactMatches)
	exactBase := a.u32(nodeOff + nodeExactMatchesOffset)
	for i := uint32(0); i < numExact; i++ {
		e := a.entry(exactBase, i)
		if a.cString(a.u32(e+entryNameOffset)) == remaining {
			if ci := a.u32(e + entryContextIndex); ci != NoIndex {
				contextIndex = ci
			}
			if ti := a.u32(e + entryTypeIndex); ti != NoIndex {
				typeIndex = ti
			}
			return contextIndex, typeIndex
		}
	}

	// One more prefix pass for matches not ending at a '.'.
	a.checkPrefixMatch(remaining, nodeOff, &contextIndex, &typeIndex)
	return contextIndex, typeIndex
}

// GetPropertyInfo resolves name to its context and type strings, "" when
// unmatched.
func (a *Area) GetPropertyInfo(name string) (context, typ string) {
	ci, ti := a.GetPropertyInfoIndexes(name)
	if ci != NoIndex {
		context = a.Context(ci)
	}
	if ti != NoIndex {
		typ = a.Type(ti)
	}
	return context, typ
}
