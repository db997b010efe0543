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
	"go.uber.org/zap"
)

const testConfig = `# property routing for tests
persist.     u:object_r:persist_prop:s0
persist.sys. u:object_r:system_prop:s0
ctl.start    u:object_r:ctl_prop:s0
ro.          u:object_r:ro_prop:s0   extra tokens ignored
*            u:object_r:default_prop:s0

malformed-line-with-one-token
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "property_contexts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigParsing(t *testing.T) {
	cs := newContextsSplit([]string{writeConfig(t, testConfig)}, zap.NewNop())
	cs.dir = t.TempDir()
	require.NoError(t, cs.loadConfigs())

	// ctl.* entries and malformed lines are dropped; the remaining four
	// prefixes are ordered by decreasing length with the wildcard last.
	var prefixes []string
	for _, e := range cs.prefixes {
		prefixes = append(prefixes, e.prefix)
	}
	assert.Equal(t, []string{"persist.sys.", "persist.", "ro.", "*"}, prefixes)

	// Contexts are deduplicated.
	assert.Len(t, cs.contexts, 4)
}

func TestConfigSharedContextIsDeduplicated(t *testing.T) {
	cfg := "a. ctx_one\nb. ctx_one\nc. ctx_two\n"
	cs := newContextsSplit([]string{writeConfig(t, cfg)}, zap.NewNop())
	cs.dir = t.TempDir()
	require.NoError(t, cs.loadConfigs())

	assert.Len(t, cs.contexts, 2)
	assert.Len(t, cs.prefixes, 3)
	assert.Same(t, cs.prefixes[0].node, cs.prefixes[1].node)
}

func TestLongestPrefixRouting(t *testing.T) {
	cs := newContextsSplit([]string{writeConfig(t, testConfig)}, zap.NewNop())
	cs.dir = t.TempDir()
	require.NoError(t, cs.loadConfigs())

	assert.Equal(t, "u:object_r:system_prop:s0", cs.GetContextForName("persist.sys.foo"))
	assert.Equal(t, "u:object_r:persist_prop:s0", cs.GetContextForName("persist.bar"))
	assert.Equal(t, "u:object_r:default_prop:s0", cs.GetContextForName("other"))
	assert.Equal(t, "u:object_r:ro_prop:s0", cs.GetContextForName("ro.build.id"))
}

func TestNoRouteWithoutWildcard(t *testing.T) {
	cs := newContextsSplit([]string{writeConfig(t, "persist. ctx\n")}, zap.NewNop())
	cs.dir = t.TempDir()
	require.NoError(t, cs.loadConfigs())

	assert.Equal(t, "", cs.GetContextForName("unrouted"))
	_, err := cs.GetPropAreaForName("unrouted")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestMissingOptionalConfigTolerated(t *testing.T) {
	present := writeConfig(t, "a. ctx\n")
	cs := newContextsSplit([]string{"/does/not/exist", present}, zap.NewNop())
	cs.dir = t.TempDir()
	require.NoError(t, cs.loadConfigs())
	assert.Len(t, cs.prefixes, 1)
}

func TestAllConfigsMissingFails(t *testing.T) {
	cs := newContextsSplit([]string{"/does/not/exist"}, zap.NewNop())
	cs.dir = t.TempDir()
	assert.Error(t, cs.loadConfigs())
}

func TestLaterConfigAppendsEntries(t *testing.T) {
	first := writeConfig(t, "persist. ctx_a\n")
	second := writeConfig(t, "persist.sys. ctx_b\n")
	cs := newContextsSplit([]string{first, second}, zap.NewNop())
	cs.dir = t.TempDir()
	require.NoError(t, cs.loadConfigs())

	// Ordering is still by length, not load order.
	assert.Equal(t, "ctx_b", cs.GetContextForName("persist.sys.x"))
	assert.Equal(t, "ctx_a", cs.GetContextForName("persist.x"))
}
