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
	"encoding/binary"

	"github.com/dchest/siphash"
)

// le is the byte order used throughout the DTF format (§6: "binary,
// little-endian").
var le = binary.LittleEndian

func siphashSum(k0, k1 uint64, p []byte) uint64 {
	return siphash.Hash(k0, k1, p)
}
