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

// Shared binary layout. The on-disk representation is little-endian 32-bit
// words; areas are only mapped on little-endian hosts, so in-memory access
// goes through native atomic loads and stores on the mapped bytes.

const (
	// PropValueMax is the capacity of a record's inline value buffer,
	// including the terminating NUL. Values whose initial length reaches
	// this bound become immutable long records.
	PropValueMax = 92

	// PropNameMax bounds the name copied out by the legacy Read path
	// (31 usable bytes). Records themselves store names of any length.
	PropNameMax = 32

	// AreaMagic and AreaVersion identify a property area file.
	AreaMagic   = 0x504f5250
	AreaVersion = 0xfc6ed0ab

	// DefaultAreaSize is the fixed size every area file is truncated to.
	DefaultAreaSize = 128 * 1024

	// SerialFileName names the distinguished area holding the store-wide
	// serial within a property directory.
	SerialFileName = "properties_serial"

	// TrieFileName names the precompiled routing trie within a property
	// directory, when the installation ships one.
	TrieFileName = "property_info"

	// ReservedNamespace names are IPC-only and never get a backing file.
	ReservedNamespace = "ctl."

	readOnlyPrefix = "ro."
)

// Area header, 140 bytes. All arena offsets are relative to the first byte
// after the header.
//
//	off  0  bytes_used   u32
//	off  4  serial       u32 (atomic, futex word for the serial area)
//	off  8  magic        u32
//	off 12  version      u32
//	off 16  reserved     [28]byte
//	off 44  dirty_backup [PropValueMax+1]byte
//	pad to 4-byte multiple
const (
	hdrBytesUsed   = 0
	hdrSerial      = 4
	hdrMagic       = 8
	hdrVersion     = 12
	hdrReserved    = 16
	hdrDirtyBackup = 44

	areaHeaderSize = (hdrDirtyBackup + PropValueMax + 1 + 3) &^ 3 // 140
)

// Property record, a fixed 96-byte head followed by the NUL-terminated name.
//
//	off  0  serial  u32 (atomic seqlock word, futex word)
//	off  4  value   [PropValueMax]byte, or for long records:
//	off  4    error_message [56]byte  (legacy diagnostic, incl NUL)
//	off 60    long_offset   u32      (value buffer offset relative to record)
//	off 96  name    []byte + NUL
const (
	infoSerial    = 0
	infoValue     = 4
	infoLongAlign = 56 // capacity of the legacy error message, incl NUL
	infoLongOff   = infoValue + infoLongAlign
	infoName      = infoValue + PropValueMax
	infoFixedSize = infoName
)

// Record serial word encoding. The low bit is the dirty flag; bit 16 marks
// long records; the upper byte is the current value length. The low 24 bits
// double as a monotonically increasing counter: the final store of an update
// adds one, which also clears the dirty bit.
const (
	serialDirty    = uint32(1)
	serialLongFlag = uint32(1) << 16
	serialCtrMask  = uint32(0xffffff)
)

func serialValueLen(serial uint32) uint32 { return serial >> 24 }

// Trie node, a fixed 20-byte head followed by the NUL-terminated segment
// name. left/right form a BST over siblings at one dotted level, ordered by
// (name length, lexicographic); children roots the next level; prop names
// this node's record. All four are atomically published arena offsets,
// 0 meaning none.
const (
	btNameLen   = 0
	btProp      = 4
	btLeft      = 8
	btRight     = 12
	btChildren  = 16
	btFixedSize = 20
)

// longLegacyError is stored in the error_message slot of long records so
// consumers of the legacy read path observe a constant diagnostic instead of
// a truncated value.
const longLegacyError = "Must use ReadCallback() to read this property"
