// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tectonicdb/tectonicdb/dtf"
)

func testLogf(t *testing.T) Logf {
	return func(format string, args ...interface{}) { t.Logf(format, args...) }
}

// dtfRecordSize is the on-disk size of one dtf.Update record, derived
// from dtf.Update.Canonical() rather than duplicating the constant.
var dtfRecordSize = len(dtf.Update{}.Canonical())

// recordBytes packs n synthetic records into their canonical on-disk
// form, giving upload tests payloads shaped like what actually crosses
// this path: whole DTF files, never arbitrary byte streams.
func recordBytes(n int) []byte {
	var buf []byte
	for i := 0; i < n; i++ {
		u := dtf.Update{Ts: uint64(i), Seq: uint32(i), Price: float32(i), Size: 1}
		rec := u.Canonical()
		buf = append(buf, rec[:]...)
	}
	return buf
}

// recordAlignedUploader is an in-memory Uploader test double that
// enforces the one invariant every real cold-storage backend for this
// domain can rely on: every part and the final chunk are a whole
// number of dtfRecordSize bytes, since the only objects ever pushed
// through Uploader are staged DTF files (spec §6's fixed record
// layout), never arbitrary byte streams.
type recordAlignedUploader struct {
	partSize int
	mu       sync.Mutex
	buf      bytes.Buffer
}

func (u *recordAlignedUploader) MinPartSize() int {
	if u.partSize == 0 {
		return 1
	}
	return u.partSize
}

func (u *recordAlignedUploader) Upload(part int64, contents []byte) error {
	if len(contents)%dtfRecordSize != 0 {
		return fmt.Errorf("part %d: %d bytes is not a whole number of %d-byte records", part, len(contents), dtfRecordSize)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.buf.Write(contents)
	return nil
}

func (u *recordAlignedUploader) Close(final []byte) error {
	if len(final)%dtfRecordSize != 0 {
		return fmt.Errorf("final chunk: %d bytes is not a whole number of %d-byte records", len(final), dtfRecordSize)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.buf.Write(final)
	return nil
}

func (u *recordAlignedUploader) Bytes() []byte { return u.buf.Bytes() }
func (u *recordAlignedUploader) Size() int64   { return int64(u.buf.Len()) }

func TestUploadFileSmallerThanMinPart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.dtf")
	content := recordBytes(2)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dst := &recordAlignedUploader{partSize: 1024}
	n, err := UploadFile(dst, path)
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if n != int64(len(content)) {
		t.Fatalf("Size() = %d, want %d", n, len(content))
	}
	if !bytes.Equal(dst.Bytes(), content) {
		t.Fatalf("uploaded bytes mismatch, got %d bytes want %d", len(dst.Bytes()), len(content))
	}
}

func TestUploadFileMultiPart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.dtf")
	content := recordBytes(50) // 50 * 22 = 1100 bytes
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dst := &recordAlignedUploader{partSize: 5 * dtfRecordSize}
	n, err := UploadFile(dst, path)
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if n != int64(len(content)) {
		t.Fatalf("Size() = %d, want %d", n, len(content))
	}
	if !bytes.Equal(dst.Bytes(), content) {
		t.Fatalf("uploaded bytes mismatch, got %d bytes want %d", len(dst.Bytes()), len(content))
	}
}

func TestStageFilesSkipsSmallFiles(t *testing.T) {
	src, stage := t.TempDir(), t.TempDir()
	small := filepath.Join(src, "small.dtf")
	big := filepath.Join(src, "big.dtf")
	if err := os.WriteFile(small, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(big, bytes.Repeat([]byte("x"), 100), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	staged, err := StageFiles(src, stage, 50, testLogf(t))
	if err != nil {
		t.Fatalf("StageFiles: %v", err)
	}
	if len(staged) != 1 {
		t.Fatalf("staged %d files, want 1", len(staged))
	}
	if _, err := os.Stat(small); err != nil {
		t.Fatalf("small file should remain in src: %v", err)
	}
	if _, err := os.Stat(big); !os.IsNotExist(err) {
		t.Fatalf("big file should have been moved out of src")
	}
}

// noopUploader is a minimal Uploader test double for the orchestration
// tests below: UploadAll/RunUpload only care about which staged files
// got removed after success and left behind after failure, not about
// what was actually written, so there is nothing worth validating here.
type noopUploader struct{}

func (noopUploader) MinPartSize() int           { return 1 }
func (noopUploader) Upload(int64, []byte) error { return nil }
func (noopUploader) Close([]byte) error         { return nil }
func (noopUploader) Size() int64                { return 0 }

func TestUploadAllRemovesSucceededFilesAndContinuesPastFailures(t *testing.T) {
	stage := t.TempDir()
	if err := os.WriteFile(filepath.Join(stage, "ok.dtf"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stage, "fail.dtf"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var mu sync.Mutex
	uploaded := map[string]bool{}
	newUploader := func(name string) (Uploader, error) {
		if name == "fail.dtf" {
			return nil, errFakeUpload
		}
		mu.Lock()
		uploaded[name] = true
		mu.Unlock()
		return noopUploader{}, nil
	}

	UploadAll(stage, 2, newUploader, testLogf(t))

	if !uploaded["ok.dtf"] {
		t.Fatalf("expected ok.dtf to be uploaded")
	}
	if _, err := os.Stat(filepath.Join(stage, "ok.dtf")); !os.IsNotExist(err) {
		t.Fatalf("ok.dtf should have been removed after upload")
	}
	if _, err := os.Stat(filepath.Join(stage, "fail.dtf")); err != nil {
		t.Fatalf("fail.dtf should remain after a failed upload attempt: %v", err)
	}
}

var errFakeUpload = &fakeUploadErr{}

type fakeUploadErr struct{}

func (*fakeUploadErr) Error() string { return "fake upload failure" }

func TestRunUploadStopsOnContextCancel(t *testing.T) {
	srcDir, stageDir := t.TempDir(), t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunUpload(ctx, 5*time.Millisecond, srcDir, stageDir, 0, 1, func(name string) (Uploader, error) {
			return noopUploader{}, nil
		}, testLogf(t))
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("RunUpload did not return after context cancellation")
	}
}
