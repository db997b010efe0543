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
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultSplitConfigs is the precedence list of prefix/context configuration
// files consulted by the split router. The first entry is the legacy
// single-file location; later files append entries. Missing files are
// tolerated.
var DefaultSplitConfigs = []string{
	"/property_contexts",
	"/system/etc/selinux/plat_property_contexts",
	"/vendor/etc/selinux/vendor_property_contexts",
}

// SystemProperties is the store facade: one router plus the bookkeeping to
// bump and wait on the store-wide serial. One process-wide instance is the
// normal deployment (see Default); independent instances exist for tests and
// tools.
type SystemProperties struct {
	mu           sync.Mutex
	initialized  bool
	contexts     contexts
	location     string
	splitConfigs []string
	log          *zap.Logger
}

// Option configures a SystemProperties instance.
type Option func(*SystemProperties)

// WithLogger routes the store's diagnostics through l.
func WithLogger(l *zap.Logger) Option {
	return func(sp *SystemProperties) { sp.log = l }
}

// WithSplitConfigs overrides the configuration file precedence list used by
// the split router.
func WithSplitConfigs(paths ...string) Option {
	return func(sp *SystemProperties) { sp.splitConfigs = paths }
}

// New returns an uninitialized store.
func New(opts ...Option) *SystemProperties {
	sp := &SystemProperties{
		splitConfigs: DefaultSplitConfigs,
		log:          zap.NewNop(),
	}
	for _, o := range opts {
		o(sp)
	}
	return sp
}

// newContexts picks the router for a property location: a precompiled trie
// when the installation ships one, the split router for a plain directory,
// and the pre-split router when the location is a single legacy file.
func (sp *SystemProperties) newContexts(location string) contexts {
	st, err := os.Stat(location)
	if err == nil && !st.IsDir() {
		return &contextsPreSplit{}
	}
	if _, err := os.Stat(filepath.Join(location, TrieFileName)); err == nil {
		return newContextsSerialized(sp.log)
	}
	return newContextsSplit(sp.splitConfigs, sp.log)
}

// Init prepares the store for reading. Calling Init again does not tear
// anything down; it only re-evaluates access.
func (sp *SystemProperties) Init(location string) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.initialized {
		sp.contexts.ResetAccess()
		return nil
	}

	cx := sp.newContexts(location)
	if err := cx.Initialize(false, location, nil); err != nil {
		return err
	}
	sp.location = location
	sp.contexts = cx
	sp.initialized = true
	return nil
}

// AreaInit creates the store's areas and prepares it for writing. Only the
// privileged writer calls this, once, at boot. Label failures are reported
// through xattrFailed rather than aborting, so unlabelled test runs proceed.
func (sp *SystemProperties) AreaInit(location string, xattrFailed *bool) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	cx := sp.newContexts(location)
	if err := cx.Initialize(true, location, xattrFailed); err != nil {
		return err
	}
	sp.location = location
	sp.contexts = cx
	sp.initialized = true
	return nil
}

// AreaSerial returns the store-wide serial.
func (sp *SystemProperties) AreaSerial() (uint32, error) {
	if !sp.initialized {
		return 0, ErrNotInitialized
	}
	pa := sp.contexts.GetSerialPropArea()
	if pa == nil {
		return 0, ErrNotInitialized
	}
	return atomic.LoadUint32(pa.serialPtr()), nil
}

func isReadOnly(name string) bool { return strings.HasPrefix(name, readOnlyPrefix) }

// Find routes name to its area and locates the record without allocating.
func (sp *SystemProperties) Find(name string) (*PropInfo, error) {
	if !sp.initialized {
		return nil, ErrNotInitialized
	}
	pa, err := sp.contexts.GetPropAreaForName(name)
	if err != nil {
		sp.log.Warn("access denied finding property", zap.String("name", name))
		return nil, err
	}
	pi := pa.Find(name)
	if pi == nil {
		return nil, ErrNotFound
	}
	return pi, nil
}

// Get returns the value for name. A missing or unroutable name reads as the
// empty value; callers that need to distinguish use Find.
func (sp *SystemProperties) Get(name string) string {
	pi, err := sp.Find(name)
	if err != nil {
		return ""
	}
	var buf [PropValueMax + 1]byte
	_, n := pi.readValue(buf[:])
	return string(buf[:n])
}

// Read seqlock-reads the record's value and serial. With wantName the name
// is copied out as well, truncated with a warning beyond the legacy name
// bound; such names need ReadCallback.
func (sp *SystemProperties) Read(pi *PropInfo, wantName bool) (name, value string, serial uint32) {
	var buf [PropValueMax + 1]byte
	serial, n := pi.readValue(buf[:])
	value = string(buf[:n])

	if wantName {
		name = pi.Name()
		if len(name) >= PropNameMax {
			truncated := name[:PropNameMax-1]
			sp.log.Error("property name is too long for Read; use ReadCallback",
				zap.String("name", name), zap.String("truncated", truncated))
			name = truncated
		}
	}
	if isReadOnly(pi.Name()) && pi.IsLong() {
		sp.log.Error("long property value requires ReadCallback",
			zap.String("name", pi.Name()))
	}
	return name, value, serial
}

// ReadCallback delivers the record's name, value, and serial to fn. For
// read-only names the value never changes, so the underlying bytes
// (including long values) are delivered without the seqlock; everything else
// goes through a stack copy.
func (sp *SystemProperties) ReadCallback(pi *PropInfo, fn func(name, value string, serial uint32)) {
	name := pi.Name()
	if isReadOnly(name) {
		serial := atomic.LoadUint32(pi.serialPtr())
		if pi.IsLong() {
			fn(name, string(pi.longValueBytes()), serial)
		} else {
			fn(name, string(buffered(pi.valueBytes())), serial)
		}
		return
	}
	var buf [PropValueMax + 1]byte
	serial, n := pi.readValue(buf[:])
	fn(name, string(buf[:n]), serial)
}

// buffered trims an inline value slice at its NUL.
func buffered(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// Update replaces the value of an existing short record and publishes the
// mutation through the store-wide serial. Writer-only.
func (sp *SystemProperties) Update(pi *PropInfo, value string) error {
	if len(value) >= PropValueMax {
		return ErrInvalidValue
	}
	if !sp.initialized {
		return ErrNotInitialized
	}
	if !sp.contexts.ReadWrite() {
		return ErrReadOnly
	}
	serialPA := sp.contexts.GetSerialPropArea()
	if serialPA == nil {
		return ErrNotInitialized
	}

	if err := pi.update([]byte(value)); err != nil {
		return err
	}
	sp.bumpGlobalSerial(serialPA)
	return nil
}

// Add inserts a new record. Values beyond the inline bound are only
// permitted for read-only names, which become immutable long records.
func (sp *SystemProperties) Add(name, value string) error {
	if len(value) >= PropValueMax && !isReadOnly(name) {
		return ErrInvalidValue
	}
	if len(name) < 1 {
		return ErrInvalidName
	}
	if !sp.initialized {
		return ErrNotInitialized
	}
	if !sp.contexts.ReadWrite() {
		return ErrReadOnly
	}
	serialPA := sp.contexts.GetSerialPropArea()
	if serialPA == nil {
		return ErrNotInitialized
	}

	pa, err := sp.contexts.GetPropAreaForName(name)
	if err != nil {
		sp.log.Error("access denied adding property", zap.String("name", name))
		return err
	}
	if err := pa.Add(name, []byte(value)); err != nil {
		return err
	}
	sp.bumpGlobalSerial(serialPA)
	return nil
}

// Delete removes the record for name, optionally pruning emptied trie
// nodes. Pruning must not run while readers traverse the area; that is the
// writer's responsibility.
func (sp *SystemProperties) Delete(name string, prune bool) error {
	if !sp.initialized {
		return ErrNotInitialized
	}
	if !sp.contexts.ReadWrite() {
		return ErrReadOnly
	}
	serialPA := sp.contexts.GetSerialPropArea()
	if serialPA == nil {
		return ErrNotInitialized
	}

	pa, err := sp.contexts.GetPropAreaForName(name)
	if err != nil {
		sp.log.Error("access denied deleting property", zap.String("name", name))
		return err
	}
	if !pa.Remove(name, prune) {
		return ErrNotFound
	}
	sp.bumpGlobalSerial(serialPA)
	return nil
}

// GetContext returns the access tag owning name.
func (sp *SystemProperties) GetContext(name string) (string, error) {
	if !sp.initialized {
		return "", ErrNotInitialized
	}
	return sp.contexts.GetContextForName(name), nil
}

// bumpGlobalSerial publishes a mutation to waiters. The single writer owns
// the word; the release-ordered store makes the mutation visible to any
// reader that observes the new serial.
func (sp *SystemProperties) bumpGlobalSerial(serialPA *Area) {
	p := serialPA.serialPtr()
	atomic.StoreUint32(p, atomic.LoadUint32(p)+1)
	futexWake(p, math.MaxInt32)
}

// WaitAny blocks until the store-wide serial differs from oldSerial and
// returns the new value.
func (sp *SystemProperties) WaitAny(oldSerial uint32) (uint32, error) {
	return sp.Wait(nil, oldSerial, -1)
}

// Wait blocks until the watched serial differs from oldSerial: the record's
// own serial when pi is non-nil, the store-wide serial otherwise. A negative
// timeout waits forever. On expiry the old serial is returned alongside
// ErrTimedOut.
func (sp *SystemProperties) Wait(pi *PropInfo, oldSerial uint32, timeout time.Duration) (uint32, error) {
	var serialPtr *uint32
	if pi == nil {
		if !sp.initialized {
			return oldSerial, ErrNotInitialized
		}
		serialPA := sp.contexts.GetSerialPropArea()
		if serialPA == nil {
			return oldSerial, ErrNotInitialized
		}
		serialPtr = serialPA.serialPtr()
	} else {
		serialPtr = pi.serialPtr()
	}

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		var timeoutNs int64
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return oldSerial, ErrTimedOut
			}
			timeoutNs = remaining.Nanoseconds()
		}
		if err := futexWaitTimeout(serialPtr, oldSerial, timeoutNs); err != nil {
			if err == ErrFutexTimeout {
				return oldSerial, ErrTimedOut
			}
			return oldSerial, err
		}
		newSerial := atomic.LoadUint32(serialPtr)
		if newSerial != oldSerial {
			return newSerial, nil
		}
	}
}

// Foreach visits every record in every accessible area. Enumeration is
// best-effort: there is no snapshot across areas.
func (sp *SystemProperties) Foreach(fn func(pi *PropInfo)) error {
	if !sp.initialized {
		return ErrNotInitialized
	}
	sp.contexts.ForEach(fn)
	return nil
}

// FindNth returns the n-th record of a Foreach enumeration, or nil.
func (sp *SystemProperties) FindNth(n uint32) *PropInfo {
	var current uint32
	var result *PropInfo
	sp.Foreach(func(pi *PropInfo) {
		if current == n {
			result = pi
		}
		current++
	})
	return result
}
