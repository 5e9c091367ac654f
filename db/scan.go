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

// Package db implements the range scanner and the merge/split engine
// that operate over a folder of DTF files.
package db

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"

	"github.com/tectonicdb/tectonicdb/dtf"
)

// Scan enumerates folder (non-recursively), retains the DTF files whose
// symbol matches and whose [min_ts, max_ts] overlaps [minTs, maxTs], and
// returns their matching updates concatenated in the deterministic file
// order defined by dtf.Metadata.Less (spec §4.4).
//
// A file whose metadata cannot be read is logged (via logf, if non-nil)
// and skipped; it does not abort the scan. A folder that cannot be
// listed at all is a hard error.
//
// Scan does not deduplicate across files; see db.Combine for that.
func Scan(folder, symbol string, minTs, maxTs uint64, logf dtf.Logf) ([]dtf.Update, error) {
	metas, err := probeFolder(folder, symbol, minTs, maxTs, logf)
	if err != nil {
		return nil, err
	}
	var out []dtf.Update
	for i := range metas {
		ups, err := dtf.Range(metas[i].Path, minTs, maxTs)
		if err != nil {
			return nil, fmt.Errorf("db.Scan: %s: %w", metas[i].Path, err)
		}
		out = append(out, ups...)
	}
	return out, nil
}

// FolderUpdateCount returns the sum of meta.Count over all probeable
// DTF files directly within folder (spec §4.4 total_folder_updates_len).
func FolderUpdateCount(folder string, logf dtf.Logf) (uint64, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0, fmt.Errorf("db.FolderUpdateCount: reading dir %s: %w", folder, err)
	}
	var total uint64
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		meta, err := dtf.ReadMeta(filepath.Join(folder, ent.Name()))
		if err != nil {
			if logf != nil {
				logf("db: skipping %s: %s", ent.Name(), err)
			}
			continue
		}
		total += meta.Count
	}
	return total, nil
}

// Info reports the aggregate metadata for a symbol across folder,
// without reading any record bodies: total record count and the
// overall [min_ts, max_ts] span across every matching file (spec §4.3
// "metadata probe", lifted to folder scope for the server's INFO
// command).
func Info(folder, symbol string, logf dtf.Logf) (count, minTs, maxTs uint64, err error) {
	metas, err := probeFolder(folder, symbol, 0, math.MaxUint64, logf)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(metas) == 0 {
		return 0, 0, 0, nil
	}
	minTs = metas[0].MinTs
	for _, m := range metas {
		count += m.Count
		if m.MinTs < minTs {
			minTs = m.MinTs
		}
		if m.MaxTs > maxTs {
			maxTs = m.MaxTs
		}
	}
	return count, minTs, maxTs, nil
}

// probeFolder lists folder (non-recursively), probes each entry's header
// metadata, retains symbol/time-window matches, and returns them sorted
// into the deterministic order spec §4.4 step 4 requires.
func probeFolder(folder, symbol string, minTs, maxTs uint64, logf dtf.Logf) ([]dtf.Metadata, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("db: reading dir %s: %w", folder, err)
	}
	var metas []dtf.Metadata
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		path := filepath.Join(folder, ent.Name())
		meta, err := dtf.ReadMeta(path)
		if err != nil {
			// a bad file (or one that appeared mid-enumeration and
			// vanished before we could probe it) does not abort
			// the scan; spec §4.4 step 2 and §7.
			if logf != nil {
				logf("db: skipping %s: %s", path, err)
			}
			continue
		}
		if meta.Symbol != symbol || !meta.Overlaps(minTs, maxTs) {
			continue
		}
		metas = append(metas, meta)
	}
	slices.SortFunc(metas, dtf.Metadata.Less)
	return metas, nil
}
