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

//go:build unix

package dtf

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockPath takes an advisory, non-blocking exclusive lock on a sidecar
// ".lock" file next to path, so two writers (e.g. a merge and the
// autoflush worker) targeting the same destination fail fast instead of
// racing (spec §5: "no two writers may target the same path"). The
// returned unlock func must be called exactly once.
//
// Grounded on cmd/sdb/mmap_linux.go's pattern of a Unix-only build-tagged
// file alongside a portable fallback for other platforms.
func lockPath(path string) (unlock func(), err error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, ioErr(path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, ioErr(path, os.ErrExist)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		os.Remove(path + ".lock")
	}, nil
}
