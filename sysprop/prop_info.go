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
	"bytes"
	"math"
	"sync/atomic"
)

// The legacy diagnostic must fit the error-message slot of a long record.
const _ = uint(infoLongAlign - 1 - len(longLegacyError))

// PropInfo is a handle to one record inside an Area. Handles stay valid for
// the lifetime of the mapping; a removed record reads as zero-length.
type PropInfo struct {
	pa  *Area
	off uint32
}

func (pa *Area) toPropInfo(off uint32) *PropInfo {
	if off == 0 || off > pa.dataSize() {
		return nil
	}
	return &PropInfo{pa: pa, off: off}
}

func (pi *PropInfo) serialPtr() *uint32 {
	return pi.pa.u32(dataOff(pi.off) + infoSerial)
}

// Serial returns the record's seqlock word with acquire ordering.
func (pi *PropInfo) Serial() uint32 {
	return atomic.LoadUint32(pi.serialPtr())
}

// IsLong reports whether the record's value lives outside the inline slot.
// Long records are immutable after creation.
func (pi *PropInfo) IsLong() bool {
	return atomic.LoadUint32(pi.serialPtr())&serialLongFlag != 0
}

func (pi *PropInfo) nameBytes() []byte {
	start := dataOff(pi.off) + infoName
	mem := pi.pa.mem
	end := start
	for end < uint32(len(mem)) && mem[end] != 0 {
		end++
	}
	return mem[start:end]
}

// Name returns the record's full name, however long.
func (pi *PropInfo) Name() string { return string(pi.nameBytes()) }

func (pi *PropInfo) valueBytes() []byte {
	start := dataOff(pi.off) + infoValue
	return pi.pa.mem[start : start+PropValueMax+1]
}

// longValueBytes returns the separately allocated value buffer of a long
// record, without its NUL.
func (pi *PropInfo) longValueBytes() []byte {
	rel := *pi.pa.u32(dataOff(pi.off) + infoLongOff)
	start := dataOff(pi.off + rel)
	mem := pi.pa.mem
	if start >= uint32(len(mem)) {
		return nil
	}
	end := start
	for end < uint32(len(mem)) && mem[end] != 0 {
		end++
	}
	return mem[start:end]
}

// LongValue returns the full value of a long record, or "" for short ones.
func (pi *PropInfo) LongValue() string {
	if !pi.IsLong() {
		return ""
	}
	return string(pi.longValueBytes())
}

// newPropInfo allocates and fully constructs a record. Values that reach the
// inline capacity get a separate arena buffer, a legacy diagnostic in the
// inline slot, and a self-relative offset so the record stays relocatable.
func (pa *Area) newPropInfo(name string, value []byte) (*PropInfo, uint32, error) {
	off, err := pa.allocate(infoFixedSize + uint32(len(name)) + 1)
	if err != nil {
		return nil, 0, err
	}

	base := dataOff(off)
	copy(pa.mem[base+infoName:], name)
	pa.mem[base+infoName+uint32(len(name))] = 0

	if len(value) >= PropValueMax {
		longOff, err := pa.allocate(uint32(len(value)) + 1)
		if err != nil {
			return nil, 0, err
		}
		copy(pa.mem[dataOff(longOff):], value)
		pa.mem[dataOff(longOff)+uint32(len(value))] = 0

		copy(pa.mem[base+infoValue:], longLegacyError)
		pa.mem[base+infoValue+uint32(len(longLegacyError))] = 0
		// Both offsets are arena-relative; store the difference so the
		// record does not need to know where the arena starts.
		*pa.u32(base + infoLongOff) = longOff - off

		atomic.StoreUint32(pa.u32(base+infoSerial),
			uint32(len(longLegacyError))<<24|serialLongFlag)
	} else {
		copy(pa.mem[base+infoValue:], value)
		pa.mem[base+infoValue+uint32(len(value))] = 0
		atomic.StoreUint32(pa.u32(base+infoSerial), uint32(len(value))<<24)
	}

	return &PropInfo{pa: pa, off: off}, off, nil
}

// readValue is the seqlock read loop. It copies the record's current value
// (from the area's dirty backup while the dirty bit is set) into buf and
// returns the serial it matched plus the value length. buf must hold
// PropValueMax+1 bytes. For every completed call there was a moment at which
// the returned bytes and serial were simultaneously current.
func (pi *PropInfo) readValue(buf []byte) (serial uint32, n int) {
	newSerial := atomic.LoadUint32(pi.serialPtr())
	for {
		serial = newSerial
		n = int(serialValueLen(serial))
		if serial&serialDirty != 0 {
			copy(buf[:n+1], pi.pa.dirtyBackup())
		} else {
			copy(buf[:n+1], pi.valueBytes())
		}
		// The atomic re-load orders after the copy; retry until the word
		// is unchanged across it.
		newSerial = atomic.LoadUint32(pi.serialPtr())
		if serial == newSerial {
			return serial, n
		}
	}
}

// update replaces the value of a short record in place. Writer-only; the
// contract with readers is that whenever the dirty bit is set, an intact
// copy of the pre-dirty value is present in the area's dirty backup.
func (pi *PropInfo) update(value []byte) error {
	if len(value) >= PropValueMax {
		return ErrInvalidValue
	}
	if !pi.pa.rw {
		return ErrReadOnly
	}

	serial := atomic.LoadUint32(pi.serialPtr())
	if serial&serialLongFlag != 0 {
		return ErrReadOnly
	}
	oldLen := serialValueLen(serial)

	copy(pi.pa.dirtyBackup()[:oldLen+1], pi.valueBytes())
	serial |= serialDirty
	atomic.StoreUint32(pi.serialPtr(), serial)

	inline := pi.valueBytes()
	copy(inline, value)
	inline[len(value)] = 0

	// The final store clears the dirty bit and bumps the counter; readers
	// that see it also see the new inline bytes.
	atomic.StoreUint32(pi.serialPtr(),
		uint32(len(value))<<24|((serial+1)&serialCtrMask))
	futexWake(pi.serialPtr(), math.MaxInt32)
	return nil
}

// equalValue reports whether the record's current value, read through the
// seqlock, equals v. It is not part of the read fast path.
func (pi *PropInfo) equalValue(v []byte) bool {
	var buf [PropValueMax + 1]byte
	_, n := pi.readValue(buf[:])
	return bytes.Equal(buf[:n], v)
}
