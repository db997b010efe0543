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

import "sync"

// DefaultLocation is the conventional property directory on a running
// system.
const DefaultLocation = "/dev/__properties__"

var (
	defaultOnce  sync.Once
	defaultStore *SystemProperties
)

// Default returns the process-wide store instance, created lazily. It still
// needs Init or AreaInit before use; repeated Init calls only re-evaluate
// access.
func Default() *SystemProperties {
	defaultOnce.Do(func() {
		defaultStore = New()
	})
	return defaultStore
}
