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

import "golang.org/x/sys/unix"

// securityLabelXattr is where the host's access label for an area file is
// stored. The label string itself is opaque to the store.
const securityLabelXattr = "security.selinux"

func setFileLabel(fd int, label string) error {
	value := append([]byte(label), 0)
	return unix.Fsetxattr(fd, securityLabelXattr, value, 0)
}
