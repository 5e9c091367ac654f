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
	"path/filepath"
	"testing"

	"golang.org/x/exp/slices"
)

func TestReadMetaDoesNotReadBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.dtf")
	updates := seqUpdates([]uint64{1, 2, 3}, 0)
	if err := Encode(path, "BTC", updates); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// drop the whole body: ReadMeta must still succeed from the header alone
	b := readFile(t, path)
	writeFile(t, path, b[:len(b)-len(updates)*recordSize])
	meta, err := ReadMeta(path)
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if meta.Symbol != "BTC" || meta.Count != 3 || meta.MinTs != 1 || meta.MaxTs != 3 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestMetadataOrderingDeterministic(t *testing.T) {
	lst := []Metadata{
		{Path: "b", MinTs: 10, MaxTs: 20, Count: 5, Symbol: "BTC"},
		{Path: "a", MinTs: 10, MaxTs: 20, Count: 5, Symbol: "BTC"},
		{Path: "c", MinTs: 5, MaxTs: 9, Count: 1, Symbol: "BTC"},
	}
	slices.SortFunc(lst, func(a, b Metadata) bool { return a.Less(b) })
	want := []string{"c", "a", "b"}
	for i, m := range lst {
		if m.Path != want[i] {
			t.Fatalf("sorted[%d].Path = %q, want %q", i, m.Path, want[i])
		}
	}
}

func TestMetadataOverlaps(t *testing.T) {
	m := Metadata{MinTs: 50, MaxTs: 150}
	cases := []struct {
		lo, hi uint64
		want   bool
	}{
		{0, 49, false},
		{0, 50, true},
		{150, 300, true},
		{151, 300, false},
		{60, 70, true},
	}
	for _, c := range cases {
		if got := m.Overlaps(c.lo, c.hi); got != c.want {
			t.Fatalf("Overlaps(%d,%d) = %v, want %v", c.lo, c.hi, got, c.want)
		}
	}
}
