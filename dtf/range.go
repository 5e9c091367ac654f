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

import "os"

// Range returns the subsequence of path's updates with
// minTs <= ts <= maxTs (both ends inclusive). The header is used to
// fast-reject files that cannot overlap the window; otherwise the file
// is scanned sequentially, since records are stored in sorted order
// (spec §4.2, §9 "Scanner determinism").
func Range(path string, minTs, maxTs uint64) ([]Update, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr(path, err)
	}
	defer f.Close()

	h, hdrLen, err := decodeHeader(path, f)
	if err != nil {
		return nil, err
	}
	if h.count == 0 || h.maxTs < minTs || h.minTs > maxTs {
		return nil, nil
	}

	body := make([]byte, h.count*recordSize)
	if _, err := f.ReadAt(body, hdrLen); err != nil {
		return nil, corruptErr(path, "reading body: %w", err)
	}

	var out []Update
	for i := uint64(0); i < h.count; i++ {
		u := unpackUpdate(body[i*recordSize : (i+1)*recordSize])
		if u.Ts > maxTs {
			break
		}
		if u.Ts >= minTs {
			out = append(out, u)
		}
	}
	return out, nil
}
