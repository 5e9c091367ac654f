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

// Package worker holds the two background loops a running tectonicdb
// daemon keeps alive alongside its command server: autoflush (periodic
// write-buffer drain) and cloud upload (periodic cold-storage offload).
package worker

import (
	"context"
	"sync"
	"time"
)

// Autoflush mirrors the upstream autoflusher plugin
// (original_source/src/bin/server/plugins/autoflusher/run.rs): every
// interval it calls flush, logging but not crashing on error. flush runs
// while flushLock is held; it excludes only other code that takes the
// same lock (dtfd's server does not take it around MERGE). Two writers
// targeting the same file are kept apart by dtf.Encode's lock file.
//
// Autoflush blocks until ctx is canceled; callers run it in its own
// goroutine.
func Autoflush(ctx context.Context, interval time.Duration, flushLock *sync.Mutex, flush func() error, logf Logf) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logf("autoflush: flushing all stores to disk")
			flushLock.Lock()
			err := flush()
			flushLock.Unlock()
			if err != nil {
				logf("autoflush: flush failed: %s", err)
				continue
			}
			logf("autoflush: all stores flushed")
		}
	}
}

// Logf is the logging callback type shared across the worker package;
// it matches dtf.Logf's fmt.Fprintf-to-stderr shape.
type Logf func(format string, args ...interface{})
