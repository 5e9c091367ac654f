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

// Metadata is the header-only summary of a DTF file: everything the
// scanner and merge engine need without reading the body.
type Metadata struct {
	Path   string
	Symbol string
	Count  uint64
	MinTs  uint64
	MaxTs  uint64
}

// Less orders Metadata by (MinTs, MaxTs, Count, Symbol, Path), giving a
// total deterministic order across files regardless of directory
// enumeration order (spec §4.4 step 4, §9 "Scanner determinism").
func (m Metadata) Less(o Metadata) bool {
	if m.MinTs != o.MinTs {
		return m.MinTs < o.MinTs
	}
	if m.MaxTs != o.MaxTs {
		return m.MaxTs < o.MaxTs
	}
	if m.Count != o.Count {
		return m.Count < o.Count
	}
	if m.Symbol != o.Symbol {
		return m.Symbol < o.Symbol
	}
	return m.Path < o.Path
}

// Overlaps reports whether the file's [MinTs, MaxTs] range intersects
// the closed window [lo, hi].
func (m Metadata) Overlaps(lo, hi uint64) bool {
	return m.MinTs <= hi && m.MaxTs >= lo
}

// ReadMeta reads only the fixed-offset header of the DTF file at path
// (C3: Metadata Probe). It never opens a read of the body.
func ReadMeta(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, ioErr(path, err)
	}
	defer f.Close()
	h, _, err := decodeHeader(path, f)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Path:   path,
		Symbol: h.symbol,
		Count:  h.count,
		MinTs:  h.minTs,
		MaxTs:  h.maxTs,
	}, nil
}
