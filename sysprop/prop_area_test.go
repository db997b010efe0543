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
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArea(t *testing.T) *Area {
	t.Helper()
	pa, err := MapAreaRW(filepath.Join(t.TempDir(), "area"), "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { pa.Unmap() })
	return pa
}

func readString(t *testing.T, pi *PropInfo) string {
	t.Helper()
	var buf [PropValueMax + 1]byte
	_, n := pi.readValue(buf[:])
	return string(buf[:n])
}

func TestAddAndFind(t *testing.T) {
	pa := newTestArea(t)

	require.NoError(t, pa.Add("a.b.c", []byte("hello")))

	pi := pa.Find("a.b.c")
	require.NotNil(t, pi)
	assert.Equal(t, "a.b.c", pi.Name())
	assert.Equal(t, "hello", readString(t, pi))
	assert.Equal(t, uint32(5), serialValueLen(pi.Serial()))

	assert.Nil(t, pa.Find("a.b"))
	assert.Nil(t, pa.Find("a.b.c.d"))
	assert.Nil(t, pa.Find("x"))
}

func TestAddRejectsEmptySegments(t *testing.T) {
	pa := newTestArea(t)

	for _, name := range []string{"", ".", "a.", ".a", "a..b"} {
		err := pa.Add(name, []byte("v"))
		assert.Error(t, err, "name %q", name)
	}
	assert.Nil(t, pa.Find(""))
	assert.Nil(t, pa.Find(".x"))
}

func TestFindDoesNotAllocate(t *testing.T) {
	pa := newTestArea(t)
	used := pa.bytesUsed()
	assert.Nil(t, pa.Find("not.there"))
	assert.Equal(t, used, pa.bytesUsed())
}

func TestBytesUsedMonotonic(t *testing.T) {
	pa := newTestArea(t)
	prev := pa.bytesUsed()
	for _, name := range []string{"a", "a.b", "b.c.d", "b.c.e"} {
		require.NoError(t, pa.Add(name, []byte("v")))
		used := pa.bytesUsed()
		assert.Greater(t, used, prev)
		prev = used
	}
}

func TestLongRecord(t *testing.T) {
	pa := newTestArea(t)
	long := strings.Repeat("x", 200)

	require.NoError(t, pa.Add("ro.big", []byte(long)))
	pi := pa.Find("ro.big")
	require.NotNil(t, pi)

	assert.True(t, pi.IsLong())
	assert.Equal(t, long, pi.LongValue())
	// The legacy read path observes the constant diagnostic instead.
	assert.Equal(t, longLegacyError, readString(t, pi))

	// Long records never update.
	assert.ErrorIs(t, pi.update([]byte("short")), ErrReadOnly)
}

func TestShortValueAtBoundary(t *testing.T) {
	pa := newTestArea(t)
	v := strings.Repeat("y", PropValueMax-1)
	require.NoError(t, pa.Add("p", []byte(v)))
	pi := pa.Find("p")
	require.NotNil(t, pi)
	assert.False(t, pi.IsLong())
	assert.Equal(t, v, readString(t, pi))

	require.NoError(t, pa.Add("q", []byte(strings.Repeat("z", PropValueMax))))
	assert.True(t, pa.Find("q").IsLong())
}

func TestUpdateInPlace(t *testing.T) {
	pa := newTestArea(t)
	require.NoError(t, pa.Add("k", []byte("first")))
	pi := pa.Find("k")
	require.NotNil(t, pi)

	s0 := pi.Serial()
	require.NoError(t, pi.update([]byte("second")))
	s1 := pi.Serial()

	assert.Equal(t, "second", readString(t, pi))
	assert.Equal(t, uint32(6), serialValueLen(s1))
	assert.Zero(t, s1&serialDirty)
	assert.Greater(t, s1&serialCtrMask, s0&serialCtrMask)
}

func TestForeachOrder(t *testing.T) {
	pa := newTestArea(t)
	for _, name := range []string{"b", "a", "ccc", "aa"} {
		require.NoError(t, pa.Add(name, []byte(name)))
	}

	var got []string
	pa.Foreach(func(pi *PropInfo) { got = append(got, pi.Name()) })
	// Sibling order is (length, lexicographic): shorter names first.
	assert.Equal(t, []string{"a", "b", "aa", "ccc"}, got)
}

func TestForeachVisitsNestedRecords(t *testing.T) {
	pa := newTestArea(t)
	names := []string{"net", "net.tcp", "net.tcp.port", "net.udp"}
	for _, name := range names {
		require.NoError(t, pa.Add(name, []byte("v")))
	}

	seen := map[string]bool{}
	pa.Foreach(func(pi *PropInfo) { seen[pi.Name()] = true })
	for _, name := range names {
		assert.True(t, seen[name], "missing %s", name)
	}
	assert.Len(t, seen, len(names))
}

func TestRemove(t *testing.T) {
	pa := newTestArea(t)
	require.NoError(t, pa.Add("a.b", []byte("v")))

	assert.True(t, pa.Remove("a.b", false))
	assert.Nil(t, pa.Find("a.b"))
	assert.False(t, pa.Remove("a.b", false))
	assert.False(t, pa.Remove("never.there", false))
}

func TestRemoveZeroesLongValue(t *testing.T) {
	pa := newTestArea(t)
	long := strings.Repeat("s", 150)
	require.NoError(t, pa.Add("ro.secret", []byte(long)))
	pi := pa.Find("ro.secret")
	require.NotNil(t, pi)
	buf := pi.longValueBytes()

	require.True(t, pa.Remove("ro.secret", false))
	// The arena slot is leaked but its bytes are wiped.
	for i := range buf {
		assert.Zero(t, buf[i])
	}
}

func TestRemovePrune(t *testing.T) {
	pa := newTestArea(t)
	require.NoError(t, pa.Add("a.b", []byte("v")))
	require.True(t, pa.Remove("a.b", true))
	require.NoError(t, pa.Add("a.c", []byte("w")))

	var got []string
	pa.Foreach(func(pi *PropInfo) { got = append(got, pi.Name()) })
	assert.Equal(t, []string{"a.c"}, got)

	// The pruned node for segment "b" is gone from level "a".
	node, err := pa.traverseTrie("a", false)
	require.NoError(t, err)
	children := pa.toPropBT(*node.childrenPtr())
	require.True(t, children.valid())
	assert.Equal(t, "c", string(children.name()))
	assert.Zero(t, *children.leftPtr())
	assert.Zero(t, *children.rightPtr())
}

func TestPruneKeepsOccupiedParents(t *testing.T) {
	pa := newTestArea(t)
	require.NoError(t, pa.Add("a", []byte("v")))
	require.NoError(t, pa.Add("a.b", []byte("w")))

	require.True(t, pa.Remove("a.b", true))
	pi := pa.Find("a")
	require.NotNil(t, pi)
	assert.Equal(t, "v", readString(t, pi))
}

func TestArenaExhaustion(t *testing.T) {
	pa, err := mapAreaRWSize(filepath.Join(t.TempDir(), "small"), "", 4096, nil)
	require.NoError(t, err)
	defer pa.Unmap()

	var sawNoSpace bool
	for i := 0; i < 1000; i++ {
		name := "key.number." + strings.Repeat("x", 10) + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26)) + string(rune('a'+i/676))
		if err := pa.Add(name, []byte("value")); err != nil {
			require.True(t, errors.Is(err, ErrNoSpace), "unexpected error: %v", err)
			sawNoSpace = true
			break
		}
	}
	assert.True(t, sawNoSpace, "arena never filled")
	assert.LessOrEqual(t, pa.bytesUsed(), pa.dataSize())
}

func TestReadOnlyMappingRefusesMutation(t *testing.T) {
	pa := newTestArea(t)
	ro := &Area{mem: pa.mem, rw: false}

	assert.ErrorIs(t, ro.Add("a", []byte("v")), ErrReadOnly)
	assert.False(t, ro.Remove("a", false))
}
