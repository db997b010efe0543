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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feicong/system-properties/propinfo"
)

// newIndexedStore builds a writer-mode store routed by a precompiled trie
// file placed in the property directory.
func newIndexedStore(t *testing.T) *SystemProperties {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "__properties__")
	require.NoError(t, os.MkdirAll(dir, 0o711))

	trie, err := propinfo.Build([]propinfo.Entry{
		{Name: "persist.", Context: "u:object_r:persist_prop:s0", Type: "string"},
		{Name: "persist.sys.", Context: "u:object_r:system_prop:s0", Type: "string"},
		{Name: "ro.", Context: "u:object_r:ro_prop:s0", Type: "string"},
		{Name: "*", Context: "u:object_r:default_prop:s0", Type: "string"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, TrieFileName), trie, 0o444))

	sp := New()
	var xattrFailed bool
	require.NoError(t, sp.AreaInit(dir, &xattrFailed))
	return sp
}

func TestIndexedRouterRoutes(t *testing.T) {
	sp := newIndexedStore(t)

	ctx, err := sp.GetContext("persist.sys.locale")
	require.NoError(t, err)
	assert.Equal(t, "u:object_r:system_prop:s0", ctx)

	ctx, err = sp.GetContext("persist.radio.state")
	require.NoError(t, err)
	assert.Equal(t, "u:object_r:persist_prop:s0", ctx)

	ctx, err = sp.GetContext("ro.build.id")
	require.NoError(t, err)
	assert.Equal(t, "u:object_r:ro_prop:s0", ctx)
}

func TestIndexedRouterReadWrite(t *testing.T) {
	sp := newIndexedStore(t)

	require.NoError(t, sp.Add("persist.sys.locale", "en-US"))
	require.NoError(t, sp.Add("persist.radio.state", "on"))
	assert.Equal(t, "en-US", sp.Get("persist.sys.locale"))
	assert.Equal(t, "on", sp.Get("persist.radio.state"))

	pi, err := sp.Find("persist.sys.locale")
	require.NoError(t, err)
	require.NoError(t, sp.Update(pi, "de-DE"))
	assert.Equal(t, "de-DE", sp.Get("persist.sys.locale"))

	var names []string
	require.NoError(t, sp.Foreach(func(pi *PropInfo) {
		names = append(names, pi.Name())
	}))
	assert.ElementsMatch(t, []string{"persist.sys.locale", "persist.radio.state"}, names)
}

func TestIndexedRouterContextAreasAreDistinctFiles(t *testing.T) {
	sp := newIndexedStore(t)
	require.NoError(t, sp.Add("persist.sys.a", "1"))
	require.NoError(t, sp.Add("persist.b", "2"))

	cx, ok := sp.contexts.(*contextsSerialized)
	require.True(t, ok)

	sys, err := cx.GetPropAreaForName("persist.sys.a")
	require.NoError(t, err)
	per, err := cx.GetPropAreaForName("persist.b")
	require.NoError(t, err)
	assert.NotSame(t, sys, per)

	// Each area only holds its own records.
	assert.NotNil(t, sys.Find("persist.sys.a"))
	assert.Nil(t, sys.Find("persist.b"))
	assert.NotNil(t, per.Find("persist.b"))
}
