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

//go:build linux

package sysprop

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The futex words live in MAP_SHARED memory and are waited on across
// processes, so the private-futex optimization must not be used.

// Linux futex(2) operation codes (linux/uapi/linux/futex.h). x/sys/unix does
// not export these, only unix.SYS_FUTEX.
const (
	futexWaitOp = 0
	futexWakeOp = 1
)

// futexWait waits for the value at addr to change from val. It returns nil
// on wake, on interruption, and when the value already differs; callers must
// re-check their condition in a loop.
func futexWait(addr *uint32, val uint32) error {
	return futexWaitTimeout(addr, val, 0)
}

// futexWaitTimeout waits on addr until the value changes from val or the
// relative timeout elapses. timeoutNs <= 0 waits forever. Returns
// ErrFutexTimeout on expiry.
func futexWaitTimeout(addr *uint32, val uint32, timeoutNs int64) error {
	// Re-check atomically before entering the syscall: a waker may have
	// bumped the word between our snapshot and the futex entry, and the
	// wake would otherwise be lost.
	if atomic.LoadUint32(addr) != val {
		return nil
	}

	var errno unix.Errno
	if timeoutNs > 0 {
		spec := unix.NsecToTimespec(timeoutNs)
		_, _, errno = unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			uintptr(futexWaitOp),
			uintptr(val),
			uintptr(unsafe.Pointer(&spec)),
			0,
			0,
		)
	} else {
		_, _, errno = unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			uintptr(futexWaitOp),
			uintptr(val),
			0,
			0,
			0,
		)
	}

	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		return nil
	case unix.ETIMEDOUT:
		return ErrFutexTimeout
	default:
		return fmt.Errorf("sysprop: futex wait: %w", errno)
	}
}

// futexWake wakes up to n waiters on addr, returning the number woken.
func futexWake(addr *uint32, n int) (int, error) {
	r1, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWakeOp),
		uintptr(n),
		0,
		0,
		0,
	)
	if errno != 0 {
		return 0, fmt.Errorf("sysprop: futex wake: %w", errno)
	}
	return int(r1), nil
}
