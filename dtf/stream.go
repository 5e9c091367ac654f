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

package dtf

import (
	"io"
	"os"
)

// BatchReader produces a finite, single-pass, non-restartable sequence
// of Update batches read from a DTF file (spec §4.2 "stream"). Each
// batch preserves in-file order; the last batch may be shorter than
// batchSize.
type BatchReader struct {
	f         *os.File
	path      string
	batchSize int
	remaining uint64
	off       int64
	closeErr  error
}

// Stream opens path and returns a BatchReader that yields batches of up
// to batchSize records at a time.
func Stream(path string, batchSize int) (*BatchReader, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr(path, err)
	}
	h, hdrLen, err := decodeHeader(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &BatchReader{
		f:         f,
		path:      path,
		batchSize: batchSize,
		remaining: h.count,
		off:       hdrLen,
	}, nil
}

// Next returns the next batch, or io.EOF once the stream is exhausted.
func (b *BatchReader) Next() ([]Update, error) {
	if b.remaining == 0 {
		return nil, io.EOF
	}
	n := uint64(b.batchSize)
	if n > b.remaining {
		n = b.remaining
	}
	buf := make([]byte, n*recordSize)
	if _, err := b.f.ReadAt(buf, b.off); err != nil {
		return nil, corruptErr(b.path, "reading batch: %w", err)
	}
	b.off += int64(len(buf))
	b.remaining -= n
	out := make([]Update, n)
	for i := uint64(0); i < n; i++ {
		out[i] = unpackUpdate(buf[i*recordSize : (i+1)*recordSize])
	}
	return out, nil
}

// Close releases the underlying file handle.
func (b *BatchReader) Close() error {
	return b.f.Close()
}

// ChunkReader regroups a BatchReader's output so that each yielded
// batch's serialized size is approximately targetBytes, with boundaries
// always falling on whole records (spec §4.2 "chunks").
type ChunkReader struct {
	src         *BatchReader
	targetBytes int64
	pending     []Update
}

// Chunks wraps src to regroup its batches by approximate byte size.
func Chunks(src *BatchReader, targetBytes int64) *ChunkReader {
	if targetBytes < recordSize {
		targetBytes = recordSize
	}
	return &ChunkReader{src: src, targetBytes: targetBytes}
}

// Next returns the next size-targeted batch, or io.EOF when exhausted.
func (c *ChunkReader) Next() ([]Update, error) {
	target := int(c.targetBytes / recordSize)
	if target < 1 {
		target = 1
	}
	for len(c.pending) < target {
		batch, err := c.src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		c.pending = append(c.pending, batch...)
	}
	if len(c.pending) == 0 {
		return nil, io.EOF
	}
	n := target
	if n > len(c.pending) {
		n = len(c.pending)
	}
	out := c.pending[:n]
	c.pending = c.pending[n:]
	return out, nil
}
