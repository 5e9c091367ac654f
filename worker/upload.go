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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Uploader describes what we expect a cold-storage upload API to look
// like. The shape is copied from the teacher's aws/s3.Uploader
// consumer in ion/blockfmt/uploader.go; here it is backed by a plain
// io.Writer-oriented destination instead of S3 multipart upload, since
// the merge core's Non-goals exclude a specific cloud backend.
type Uploader interface {
	// MinPartSize is the minimum supported part size for the Uploader.
	MinPartSize() int
	// Upload should upload contents as the given part number. Part
	// numbers are monotonically increasing starting at 1. Upload is not
	// required to handle len(contents) < MinPartSize().
	Upload(part int64, contents []byte) error
	// Close appends final to the object contents and finalizes the
	// object. Close must handle len(final) < MinPartSize().
	Close(final []byte) error
	// Size returns the final size of the uploaded object. It is only
	// required to return a valid value after Close has been called.
	Size() int64
}

// uploadReader drains src in MinPartSize()-ish chunks via dst.Upload,
// starting at part number startpart, and returns the next free part
// number. Adapted from the teacher's uploadReader in
// ion/blockfmt/uploader.go with the S3 server-side-copy fast path
// removed, since Uploader here is a generic destination, not
// necessarily backed by S3.
func uploadReader(dst Uploader, startpart int64, src io.Reader, size int64) (int64, error) {
	if size < int64(dst.MinPartSize()) {
		return startpart, fmt.Errorf("cannot upload %d bytes (less than min part size %d)", size, dst.MinPartSize())
	}
	var buffer []byte
	target := dst.MinPartSize()
	n := int64(0)
	for n < size {
		remaining := size - n
		amt := target
		if remaining < int64(2*amt) {
			amt = int(remaining)
		}
		if cap(buffer) >= amt {
			buffer = buffer[:amt]
		} else {
			buffer = make([]byte, amt)
		}
		if _, err := io.ReadFull(src, buffer); err != nil {
			return startpart, err
		}
		if err := dst.Upload(startpart, buffer); err != nil {
			return startpart, err
		}
		startpart++
		n += int64(amt)
	}
	return startpart, nil
}

// UploadFile uploads the full contents of path to dst via uploadReader
// followed by Close, returning the number of bytes sent.
func UploadFile(dst Uploader, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	if size < int64(dst.MinPartSize()) {
		data, err := io.ReadAll(f)
		if err != nil {
			return 0, err
		}
		if err := dst.Close(data); err != nil {
			return 0, err
		}
		return dst.Size(), nil
	}
	tail := size % int64(dst.MinPartSize())
	body := size - tail
	if _, err := uploadReader(dst, 1, io.LimitReader(f, body), body); err != nil {
		return 0, err
	}
	final := make([]byte, tail)
	if _, err := io.ReadFull(f, final); err != nil {
		return 0, err
	}
	if err := dst.Close(final); err != nil {
		return 0, err
	}
	return dst.Size(), nil
}

// StageFiles moves every regular file directly within srcDir whose
// size is >= minSize into stageDir, renaming it with a uuid v4 prefix
// to avoid collisions — grounded on gstorage/run.rs's copy_files,
// which does the same rename-to-a-temp-dir step with a
// `format!("{}-{}", Uuid::new_v4(), name)` prefix, and on the
// teacher's identical "packed-"+uuid()+... naming in
// ion/blockfmt/concat.go. Returns the staged paths.
func StageFiles(srcDir, stageDir string, minSize int64, logf Logf) ([]string, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("worker: reading %s: %w", srcDir, err)
	}
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return nil, fmt.Errorf("worker: creating stage dir %s: %w", stageDir, err)
	}
	var staged []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			logf("worker: stat %s: %s", ent.Name(), err)
			continue
		}
		if info.Size() < minSize {
			continue
		}
		src := filepath.Join(srcDir, ent.Name())
		dst := filepath.Join(stageDir, uuid.NewString()+"-"+ent.Name())
		if err := os.Rename(src, dst); err != nil {
			logf("worker: staging %s: %s", src, err)
			continue
		}
		staged = append(staged, dst)
	}
	return staged, nil
}

// NewUploader opens a destination Uploader for the cold-storage object
// named name (derived from the staged file's basename). Concrete
// backends (S3, GCS, a local mirror directory for tests) implement
// this; the worker package stays backend-agnostic.
type NewUploader func(name string) (Uploader, error)

// UploadAll uploads every file under stageDir via newUploader, fanning
// the work out across a bounded pool of concurrency goroutines (a
// plain sync.WaitGroup plus semaphore channel, matching the teacher's
// IndexConfig.Compact concurrency style in ion/blockfmt/concat.go
// rather than an external errgroup dependency). A per-file failure is
// logged and does not abort the remaining uploads (spec §7). Files
// that upload successfully are removed from stageDir afterward.
func UploadAll(stageDir string, concurrency int, newUploader NewUploader, logf Logf) {
	entries, err := os.ReadDir(stageDir)
	if err != nil {
		logf("worker: reading stage dir %s: %s", stageDir, err)
		return
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		path := filepath.Join(stageDir, ent.Name())
		wg.Add(1)
		sem <- struct{}{}
		go func(path, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			dst, err := newUploader(name)
			if err != nil {
				logf("worker: opening uploader for %s: %s", name, err)
				return
			}
			if _, err := UploadFile(dst, path); err != nil {
				logf("worker: uploading %s: %s", path, err)
				return
			}
			if err := os.Remove(path); err != nil {
				logf("worker: removing staged file %s after upload: %s", path, err)
			}
		}(path, ent.Name())
	}
	wg.Wait()
}

// RunUpload mirrors the upstream gstorage plugin's loop
// (original_source/src/bin/server/plugins/gstorage/run.rs): every
// interval it stages files above minSize out of srcDir and uploads the
// staged batch, logging and continuing on any failure. It blocks until
// ctx is canceled.
func RunUpload(ctx context.Context, interval time.Duration, srcDir, stageDir string, minSize int64, concurrency int, newUploader NewUploader, logf Logf) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logf("upload: checking %s for files to upload", srcDir)
			staged, err := StageFiles(srcDir, stageDir, minSize, logf)
			if err != nil {
				logf("upload: staging failed: %s", err)
				continue
			}
			if len(staged) == 0 {
				continue
			}
			UploadAll(stageDir, concurrency, newUploader, logf)
		}
	}
}

// FileUploader is an Uploader backed by a plain file on disk — the
// default cold-storage backend dtfd falls back to when no real object
// store is configured, writing parts in order as they arrive since
// part numbers are assigned sequentially by uploadReader.
type FileUploader struct {
	f    *os.File
	size int64
}

// NewFileUploader creates (or truncates) path and returns a FileUploader
// writing to it.
func NewFileUploader(path string) (*FileUploader, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileUploader{f: f}, nil
}

// MinPartSize implements Uploader.
func (*FileUploader) MinPartSize() int { return 1 }

// Upload implements Uploader.
func (u *FileUploader) Upload(part int64, contents []byte) error {
	n, err := u.f.Write(contents)
	u.size += int64(n)
	return err
}

// Close implements Uploader.
func (u *FileUploader) Close(final []byte) error {
	n, err := u.f.Write(final)
	u.size += int64(n)
	if err != nil {
		u.f.Close()
		return err
	}
	return u.f.Close()
}

// Size implements Uploader.
func (u *FileUploader) Size() int64 { return u.size }
