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
	"math"
	"testing"
)

func TestUpdateLessTotalOrder(t *testing.T) {
	a := Update{Ts: 100, Seq: 1, Price: 1}
	b := Update{Ts: 100, Seq: 2, Price: 1}
	if !a.Less(b) {
		t.Fatal("expected a < b by seq")
	}
	if b.Less(a) {
		t.Fatal("b should not be less than a")
	}

	c := Update{Ts: 100, Seq: 1, IsTrade: false, Price: 1}
	d := Update{Ts: 100, Seq: 1, IsTrade: true, Price: 1}
	if !c.Less(d) {
		t.Fatal("quote should sort before trade at same (ts, seq)")
	}

	e := Update{Ts: 500, Seq: 7, Price: 1.0}
	f := Update{Ts: 500, Seq: 7, Price: 2.0}
	if !e.Less(f) {
		t.Fatal("expected price=1.0 before price=2.0")
	}
}

func TestUpdateEqualRequiresAllFields(t *testing.T) {
	a := Update{Ts: 500, Seq: 7, IsBid: true, Price: 1.0, Size: 1.0}
	b := a
	if !a.Equal(b) {
		t.Fatal("identical updates must be equal")
	}
	b.Price = 2.0
	if a.Equal(b) {
		t.Fatal("differing price must not be equal")
	}
}

func TestUpdateEqualNaNBitPattern(t *testing.T) {
	nan1 := math.Float32frombits(0x7fc00000)
	nan2 := math.Float32frombits(0x7fc00001)
	a := Update{Ts: 1, Price: nan1}
	b := Update{Ts: 1, Price: nan1}
	c := Update{Ts: 1, Price: nan2}
	if !a.Equal(b) {
		t.Fatal("identical NaN bit patterns must compare equal")
	}
	if a.Equal(c) {
		t.Fatal("differing NaN bit patterns must not compare equal")
	}
}

func TestUpdateHashConsistentWithEqual(t *testing.T) {
	a := Update{Ts: 10, Seq: 3, IsBid: true, Price: 1.5, Size: 2.5}
	b := a
	if a.Hash() != b.Hash() {
		t.Fatal("equal updates must hash equal")
	}
	b.Size = 3.5
	if a.Hash() == b.Hash() {
		t.Fatal("hash collision is allowed but this specific case should differ")
	}
}

func TestCompareMatchesLessAndEqual(t *testing.T) {
	a := Update{Ts: 1, Seq: 1}
	b := Update{Ts: 2, Seq: 1}
	if Compare(a, b) != -1 {
		t.Fatal("expected -1")
	}
	if Compare(b, a) != 1 {
		t.Fatal("expected 1")
	}
	if Compare(a, a) != 0 {
		t.Fatal("expected 0")
	}
}
