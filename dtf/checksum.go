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

import "golang.org/x/crypto/blake2b"

// checksumKey is a fixed, publicly-known key: the checksum exists to
// catch accidental body corruption (truncated writes, bit rot), not to
// authenticate the file against tampering, so a secret key buys nothing.
var checksumKey = []byte("tectonicdb-dtf-body-checksum-v1!")

// sumBody returns the keyed BLAKE2b-256 digest of an encoded DTF body.
func sumBody(body []byte) [checksumSize]byte {
	h, err := blake2b.New256(checksumKey)
	if err != nil {
		// only fails for a bad key size, which checksumKey's
		// fixed length never triggers
		panic(err)
	}
	h.Write(body)
	var out [checksumSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
