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

//go:build linux || darwin || freebsd || netbsd || openbsd

package sysprop

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MapAreaRW exclusively creates, labels, sizes, and maps a fresh property
// area read-write. The privileged writer calls this once per area at boot.
// A label failure does not abort creation; it is reported through
// xattrFailed so callers that cannot carry labels may proceed.
func MapAreaRW(path, label string, xattrFailed *bool) (*Area, error) {
	return mapAreaRWSize(path, label, DefaultAreaSize, xattrFailed)
}

func mapAreaRWSize(path, label string, size int, xattrFailed *bool) (*Area, error) {
	fd, err := unix.Open(path,
		unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0444)
	if err != nil {
		if err == unix.EEXIST {
			return nil, fmt.Errorf("%w: %s", ErrConflictOnCreate, path)
		}
		return nil, fmt.Errorf("sysprop: create %s: %w", path, err)
	}
	defer unix.Close(fd)

	if label != "" {
		if err := setFileLabel(fd, label); err != nil && xattrFailed != nil {
			*xattrFailed = true
		}
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Unlink(path)
		return nil, fmt.Errorf("sysprop: truncate %s: %w", path, err)
	}

	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Unlink(path)
		return nil, fmt.Errorf("sysprop: mmap %s: %w", path, err)
	}

	pa := &Area{mem: mem, rw: true}
	if err := pa.initHeader(); err != nil {
		unix.Munmap(mem)
		unix.Unlink(path)
		return nil, err
	}
	return pa, nil
}

// MapArea maps an existing property area, read-write when the caller may
// write it and read-only otherwise. The second result reports which.
func MapArea(path string) (*Area, bool, error) {
	rw := true
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		rw = false
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
		if err != nil {
			return nil, false, fmt.Errorf("sysprop: open %s: %w", path, err)
		}
	}
	defer unix.Close(fd)

	pa, err := mapFD(fd, rw)
	if err != nil {
		return nil, false, fmt.Errorf("sysprop: map %s: %w", path, err)
	}
	return pa, rw, nil
}

// mapFD validates and maps an already-open area file. Ownership and mode
// checks keep readers from mapping an area a non-privileged writer could
// have tampered with.
func mapFD(fd int, rw bool) (*Area, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, err
	}
	if st.Uid != 0 || st.Gid != 0 ||
		st.Mode&(unix.S_IWGRP|unix.S_IWOTH) != 0 ||
		st.Size < int64(areaHeaderSize) {
		return nil, ErrInvalidLayout
	}

	prot := unix.PROT_READ
	if rw {
		prot |= unix.PROT_WRITE
	}
	mem, err := unix.Mmap(fd, 0, int(st.Size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	pa := &Area{mem: mem, rw: rw}
	if pa.magic() != AreaMagic || pa.version() != AreaVersion {
		unix.Munmap(mem)
		return nil, ErrInvalidLayout
	}
	return pa, nil
}

// Unmap releases the mapping. Any outstanding PropInfo handles become
// invalid.
func (pa *Area) Unmap() error {
	if pa.mem == nil {
		return nil
	}
	err := unix.Munmap(pa.mem)
	pa.mem = nil
	return err
}
