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

// Package propinfo reads and writes the precompiled property routing trie.
//
// The trie file maps property names to a (context index, type index) pair
// and is consumed read-only by every process; the serializer runs offline
// when the routing configuration is compiled. The whole structure is
// addressed by 32-bit little-endian offsets from the start of the file, so
// it can be mmapped anywhere. Contexts and types are indirected through
// sorted string-offset arrays to keep nodes small and lookups logarithmic.
package propinfo
