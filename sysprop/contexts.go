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

// contexts routes property names to their owning areas. Three
// implementations exist: contextsSplit (plain-text prefix configs),
// contextsSerialized (precompiled trie file), and contextsPreSplit (one
// legacy area file for everything).
type contexts interface {
	// Initialize prepares the router for the property location. With
	// writable set, every context's area is exclusively created and the
	// router becomes the store's unique mutator.
	Initialize(writable bool, location string, xattrFailed *bool) error

	// GetPropAreaForName returns the area owning name, lazily opening it
	// read-only. Unlike ForEach, a failed open here is not absorbed: the
	// caller surfaces it so host-side access audits are generated.
	GetPropAreaForName(name string) (*Area, error)

	// GetContextForName returns the access tag owning name, or "".
	GetContextForName(name string) string

	// GetSerialPropArea returns the area carrying the store-wide serial.
	GetSerialPropArea() *Area

	// ForEach visits every record in every accessible area.
	ForEach(fn func(pi *PropInfo))

	// ResetAccess re-evaluates cached access decisions on every node.
	ResetAccess()

	// FreeAndUnmap releases every mapping the router holds.
	FreeAndUnmap()

	// ReadWrite reports whether the router was initialized writable.
	ReadWrite() bool
}
