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

// Package sysprop implements a crash-safe shared-memory key/value store used
// as a process-wide configuration registry.
//
// Many reader processes and a single privileged writer coordinate through
// memory-mapped property area files. Readers never block and never enter the
// kernel on the fast path: each record carries a seqlock-versioned serial
// word, and a per-area dirty-backup slot preserves the pre-update value while
// the writer mutates a record in place. Everything inside an area is
// addressed by 32-bit offsets rather than pointers, so the same bytes can be
// mapped at different virtual addresses in different processes.
//
// Properties are sharded across areas by name prefix. Two router
// implementations provide the mapping: a split router driven by plain-text
// prefix/context configuration files, and an indexed router backed by a
// precompiled read-only trie file (see the propinfo package). A third,
// pre-split router serves a single legacy area file that holds every name.
// Waiters sleep
// on futex words, either a record's own serial or the store-wide serial that
// is bumped after every mutation.
package sysprop
