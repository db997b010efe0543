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

import "errors"

var (
	// ErrInvalidLayout indicates a magic, version, size, permission, or
	// ownership mismatch on a mapped file.
	ErrInvalidLayout = errors.New("sysprop: invalid area layout")

	// ErrNoSpace indicates the area's bump arena is full.
	ErrNoSpace = errors.New("sysprop: no space left in area")

	// ErrInvalidName indicates an empty name, an empty dotted segment, or a
	// name that is otherwise malformed.
	ErrInvalidName = errors.New("sysprop: invalid property name")

	// ErrInvalidValue indicates a value too long for a non-"ro." record.
	ErrInvalidValue = errors.New("sysprop: invalid property value")

	// ErrAccessDenied indicates that no route exists for a name or the
	// backing file is unreadable.
	ErrAccessDenied = errors.New("sysprop: access denied")

	// ErrNotFound indicates that no record exists for the name.
	ErrNotFound = errors.New("sysprop: property not found")

	// ErrReadOnly indicates a mutation attempted through a store that was
	// opened read-only, or an update of an immutable long record.
	ErrReadOnly = errors.New("sysprop: store is read-only")

	// ErrConflictOnCreate indicates the area file already existed on an
	// exclusive create.
	ErrConflictOnCreate = errors.New("sysprop: area file already exists")

	// ErrTimedOut is returned by Wait when the relative timeout expires
	// before the watched serial changes.
	ErrTimedOut = errors.New("sysprop: wait timed out")

	// ErrNotInitialized indicates the store has not been initialized.
	ErrNotInitialized = errors.New("sysprop: not initialized")
)
