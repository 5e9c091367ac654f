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

// Package dtf implements the "Dense Tick Format" binary file format:
// the Update record, its total order, and the header/body codec used
// to read and write DTF files.
package dtf

import "math"

// recordSize is the on-disk size in bytes of one Update record.
const recordSize = 8 + 4 + 1 + 1 + 4 + 4

// Update is one market event: a trade or a book quote.
//
// Equality and ordering are defined over all six fields (see Equal
// and Less); float comparison is bitwise, so two NaN payloads are equal
// only when their bit patterns are identical. Producers are required
// never to emit NaN.
type Update struct {
	Ts      uint64
	Seq     uint32
	IsTrade bool
	IsBid   bool
	Price   float32
	Size    float32
}

// Less implements the total order (ts, seq, is_trade, is_bid, price, size).
func (u Update) Less(o Update) bool {
	if u.Ts != o.Ts {
		return u.Ts < o.Ts
	}
	if u.Seq != o.Seq {
		return u.Seq < o.Seq
	}
	if u.IsTrade != o.IsTrade {
		return !u.IsTrade && o.IsTrade
	}
	if u.IsBid != o.IsBid {
		return !u.IsBid && o.IsBid
	}
	pu, po := math.Float32bits(u.Price), math.Float32bits(o.Price)
	if pu != po {
		return pu < po
	}
	su, so := math.Float32bits(u.Size), math.Float32bits(o.Size)
	return su < so
}

// Equal reports whether u and o are bitwise equal across all six fields.
func (u Update) Equal(o Update) bool {
	return u.Ts == o.Ts &&
		u.Seq == o.Seq &&
		u.IsTrade == o.IsTrade &&
		u.IsBid == o.IsBid &&
		math.Float32bits(u.Price) == math.Float32bits(o.Price) &&
		math.Float32bits(u.Size) == math.Float32bits(o.Size)
}

// Compare returns -1, 0, or 1 per the total order. (The sorts in this
// module pass Less, since the pinned golang.org/x/exp/slices.SortFunc
// and slices.IsSortedFunc take a boolean less function.)
func Compare(a, b Update) int {
	if a.Equal(b) {
		return 0
	}
	if a.Less(b) {
		return -1
	}
	return 1
}

// canonical writes the fixed-width little-endian packing of u into buf,
// which must have length recordSize. This is the canonical form used
// both for on-disk storage and as the dedup hash input.
func (u Update) canonical(buf []byte) {
	le.PutUint64(buf[0:8], u.Ts)
	le.PutUint32(buf[8:12], u.Seq)
	if u.IsTrade {
		buf[12] = 1
	} else {
		buf[12] = 0
	}
	if u.IsBid {
		buf[13] = 1
	} else {
		buf[13] = 0
	}
	le.PutUint32(buf[14:18], math.Float32bits(u.Price))
	le.PutUint32(buf[18:22], math.Float32bits(u.Size))
}

// Canonical returns the canonical fixed-width little-endian packing
// of u, suitable for hashing or byte-for-byte comparison.
func (u Update) Canonical() [recordSize]byte {
	var buf [recordSize]byte
	u.canonical(buf[:])
	return buf
}

// hashKey0, hashKey1 are the fixed SipHash keys used for the in-process
// dedup hash. The hash is never used as a security boundary (it only
// buckets a structural-equality set within one merge call), so a fixed,
// publicly-known key is correct here.
const (
	hashKey0 = 0x746563746f6e6963 // "tectonic"
	hashKey1 = 0x6474662d6d657267 // "dtf-merg"
)

// Hash returns the SipHash-2-4 dedup key for u, computed over its
// canonical packing. Two updates that are Equal always have the same
// Hash; a hash collision does not imply Equal.
func (u Update) Hash() uint64 {
	buf := u.Canonical()
	return siphashSum(hashKey0, hashKey1, buf[:])
}

func unpackUpdate(buf []byte) Update {
	_ = buf[recordSize-1]
	return Update{
		Ts:      le.Uint64(buf[0:8]),
		Seq:     le.Uint32(buf[8:12]),
		IsTrade: buf[12] != 0,
		IsBid:   buf[13] != 0,
		Price:   math.Float32frombits(le.Uint32(buf[14:18])),
		Size:    math.Float32frombits(le.Uint32(buf[18:22])),
	}
}
