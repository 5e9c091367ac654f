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

// magic identifies the DTF format; version is bumped if the fixed-offset
// layout below ever changes.
var magic = [4]byte{'D', 'T', 'F', '1'}

const formatVersion = 1

// MaxSymbolLen bounds the header's length-prefixed symbol field.
const MaxSymbolLen = 64

// checksumSize is the width of the keyed BLAKE2b-256 body checksum.
const checksumSize = 32

// headerFixedSize is the portion of the header before the
// variable-length symbol field: magic + version + symbolLen.
const headerFixedSize = 4 + 1 + 2

// headerTailSize is the portion of the header after the symbol field:
// count + minTs + maxTs + checksum.
const headerTailSize = 8 + 8 + 8 + checksumSize

// header is the fixed-offset file header described in spec.md §6.
type header struct {
	symbol   string
	count    uint64
	minTs    uint64
	maxTs    uint64
	checksum [checksumSize]byte
	hasSum   bool
}

func validateSymbol(symbol string) error {
	if len(symbol) == 0 {
		return invalidSymbolErr(symbol, "symbol must not be empty")
	}
	if len(symbol) > MaxSymbolLen {
		return invalidSymbolErr(symbol, "symbol exceeds maximum length")
	}
	for i := 0; i < len(symbol); i++ {
		c := symbol[i]
		if c < 0x20 || c == 0x7f {
			return invalidSymbolErr(symbol, "symbol contains control bytes")
		}
	}
	return nil
}

func encodeHeader(buf []byte, h *header) []byte {
	buf = append(buf, magic[:]...)
	buf = append(buf, formatVersion)
	var lenbuf [2]byte
	le.PutUint16(lenbuf[:], uint16(len(h.symbol)))
	buf = append(buf, lenbuf[:]...)
	buf = append(buf, h.symbol...)
	var tail [headerTailSize]byte
	le.PutUint64(tail[0:8], h.count)
	le.PutUint64(tail[8:16], h.minTs)
	le.PutUint64(tail[16:24], h.maxTs)
	copy(tail[24:24+checksumSize], h.checksum[:])
	buf = append(buf, tail[:]...)
	return buf
}

// decodeHeader reads the fixed-offset header from r, returning the
// number of bytes consumed.
func decodeHeader(path string, r readerAt) (*header, int64, error) {
	fixed := make([]byte, headerFixedSize)
	if _, err := r.ReadAt(fixed, 0); err != nil {
		return nil, 0, corruptErr(path, "reading header: %w", err)
	}
	if fixed[0] != magic[0] || fixed[1] != magic[1] || fixed[2] != magic[2] || fixed[3] != magic[3] {
		return nil, 0, corruptErr(path, "bad magic bytes")
	}
	version := fixed[4]
	if version != formatVersion {
		return nil, 0, corruptErr(path, "unsupported version %d", version)
	}
	symLen := int(le.Uint16(fixed[5:7]))
	if symLen > MaxSymbolLen {
		return nil, 0, corruptErr(path, "symbol length %d exceeds maximum", symLen)
	}
	rest := make([]byte, symLen+headerTailSize)
	if _, err := r.ReadAt(rest, headerFixedSize); err != nil {
		return nil, 0, corruptErr(path, "reading header tail: %w", err)
	}
	symbol := string(rest[:symLen])
	tail := rest[symLen:]
	h := &header{
		symbol: symbol,
		count:  le.Uint64(tail[0:8]),
		minTs:  le.Uint64(tail[8:16]),
		maxTs:  le.Uint64(tail[16:24]),
	}
	copy(h.checksum[:], tail[24:24+checksumSize])
	for _, b := range h.checksum {
		if b != 0 {
			h.hasSum = true
			break
		}
	}
	return h, int64(headerFixedSize + symLen + headerTailSize), nil
}

type readerAt interface {
	ReadAt(p []byte, off int64) (int, error)
}
