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

package propinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// File is an mmapped trie file.
type File struct {
	mem  []byte
	area *Area
}

// Load maps the trie file at path read-only. The same ownership and mode
// checks as property areas apply: the file must be root-owned and not
// writable by group or other, since every process trusts its routing.
func Load(path string) (*File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("propinfo: open %s: %w", path, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("propinfo: stat %s: %w", path, err)
	}
	if st.Uid != 0 || st.Gid != 0 ||
		st.Mode&(unix.S_IWGRP|unix.S_IWOTH) != 0 ||
		st.Size < int64(headerSize) {
		return nil, fmt.Errorf("propinfo: %s fails ownership or size checks", path)
	}

	mem, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("propinfo: mmap %s: %w", path, err)
	}

	area, err := NewArea(mem)
	if err != nil {
		unix.Munmap(mem)
		return nil, err
	}
	return &File{mem: mem, area: area}, nil
}

// Area returns the parsed view of the mapping.
func (f *File) Area() *Area { return f.area }

// Close unmaps the file.
func (f *File) Close() error {
	if f.mem == nil {
		return nil
	}
	err := unix.Munmap(f.mem)
	f.mem = nil
	f.area = nil
	return err
}
