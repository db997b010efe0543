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

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHeaderLayout(t *testing.T) {
	// The header layout is frozen by the on-disk format.
	if areaHeaderSize != 140 {
		t.Errorf("areaHeaderSize = %d, want 140", areaHeaderSize)
	}
	if hdrDirtyBackup != 44 {
		t.Errorf("hdrDirtyBackup = %d, want 44", hdrDirtyBackup)
	}
	if infoName != 96 {
		t.Errorf("infoName = %d, want 96", infoName)
	}
	if infoLongOff != 60 {
		t.Errorf("infoLongOff = %d, want 60", infoLongOff)
	}
	if btFixedSize != 20 {
		t.Errorf("btFixedSize = %d, want 20", btFixedSize)
	}
	if len(longLegacyError) >= infoLongAlign {
		t.Errorf("legacy error message length %d does not fit %d-byte slot",
			len(longLegacyError), infoLongAlign)
	}
}

func TestCreateAndReopenArea(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u:object_r:default_prop:s0")

	pa, err := MapAreaRW(path, "", nil)
	if err != nil {
		t.Fatalf("MapAreaRW: %v", err)
	}
	if pa.magic() != AreaMagic || pa.version() != AreaVersion {
		t.Fatalf("fresh area has magic %#x version %#x", pa.magic(), pa.version())
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() != DefaultAreaSize {
		t.Errorf("area file size = %d, want %d", st.Size(), DefaultAreaSize)
	}
	if st.Mode().Perm()&0o022 != 0 {
		t.Errorf("area file is group/other writable: %v", st.Mode())
	}

	if err := pa.Add("a.b", []byte("v")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ro, rw, err := MapArea(path)
	if err != nil {
		t.Fatalf("MapArea: %v", err)
	}
	defer ro.Unmap()
	_ = rw
	if pi := ro.Find("a.b"); pi == nil {
		t.Fatal("record written through one mapping not visible through another")
	}
	pa.Unmap()
}

func TestCreateExistingAreaFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area")
	pa, err := MapAreaRW(path, "", nil)
	if err != nil {
		t.Fatalf("MapAreaRW: %v", err)
	}
	defer pa.Unmap()

	if _, err := MapAreaRW(path, "", nil); err == nil {
		t.Fatal("second exclusive create succeeded")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area")
	pa, err := MapAreaRW(path, "", nil)
	if err != nil {
		t.Fatalf("MapAreaRW: %v", err)
	}
	*pa.u32(hdrMagic) = 0xdeadbeef
	pa.Unmap()

	if _, _, err := MapArea(path); err == nil {
		t.Fatal("open accepted corrupt magic")
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area")
	if err := os.WriteFile(path, make([]byte, areaHeaderSize/2), 0o444); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := MapArea(path); err == nil {
		t.Fatal("open accepted a file smaller than the header")
	}
}

func TestOpenRejectsWritableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area")
	pa, err := MapAreaRW(path, "", nil)
	if err != nil {
		t.Fatalf("MapAreaRW: %v", err)
	}
	pa.Unmap()

	if err := os.Chmod(path, 0o666); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if _, _, err := MapArea(path); err == nil {
		t.Fatal("open accepted a group/other writable area")
	}
}
