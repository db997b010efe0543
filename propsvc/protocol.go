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

// Package propsvc implements the privileged property-setter socket protocol.
//
// Unprivileged processes cannot write property areas; they send mutation
// requests to the write daemon over a unix socket instead. A protocol
// version >= 2 request is framed as
//
//	u32 cmd, u32 name_len, name bytes, u32 value_len, value bytes
//
// little-endian, and the reply is a single u32 status word.
package propsvc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultSocketPath is the conventional daemon socket on a running system.
const DefaultSocketPath = "/dev/socket/property_service"

// ProtocolVersion is the framing version this package speaks.
const ProtocolVersion = 2

// CmdSetProp2 requests a property set using version-2 framing.
const CmdSetProp2 uint32 = 0x00020001

// Status is the daemon's reply word.
type Status uint32

const (
	StatusSuccess            Status = 0
	StatusErrorReadCmd       Status = 0x0004
	StatusErrorReadData      Status = 0x0008
	StatusErrorReadOnly      Status = 0x000B
	StatusErrorInvalidName   Status = 0x0010
	StatusErrorInvalidValue  Status = 0x0014
	StatusErrorPermission    Status = 0x0018
	StatusErrorInvalidCmd    Status = 0x001B
	StatusErrorHandleControl Status = 0x001C
	StatusErrorSetFailed     Status = 0x0024
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusErrorReadCmd:
		return "error reading command"
	case StatusErrorReadData:
		return "error reading request data"
	case StatusErrorReadOnly:
		return "property is read-only"
	case StatusErrorInvalidName:
		return "invalid property name"
	case StatusErrorInvalidValue:
		return "invalid property value"
	case StatusErrorPermission:
		return "permission denied"
	case StatusErrorInvalidCmd:
		return "invalid command"
	case StatusErrorHandleControl:
		return "control message not handled"
	case StatusErrorSetFailed:
		return "set failed"
	default:
		return fmt.Sprintf("status 0x%x", uint32(s))
	}
}

// maxStringLen bounds incoming name and value lengths; anything larger is a
// malformed or hostile frame.
const maxStringLen = 1 << 16

var errStringTooLong = errors.New("propsvc: string exceeds frame limit")

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// encodeSetProp2 builds a complete request frame in one buffer so the write
// is a single send.
func encodeSetProp2(name, value string) []byte {
	buf := make([]byte, 0, 12+len(name)+len(value))
	var word [4]byte

	binary.LittleEndian.PutUint32(word[:], CmdSetProp2)
	buf = append(buf, word[:]...)
	binary.LittleEndian.PutUint32(word[:], uint32(len(name)))
	buf = append(buf, word[:]...)
	buf = append(buf, name...)
	binary.LittleEndian.PutUint32(word[:], uint32(len(value)))
	buf = append(buf, word[:]...)
	buf = append(buf, value...)
	return buf
}

// readString reads a u32-length-prefixed string.
func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", errStringTooLong
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
