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

package db

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/tectonicdb/tectonicdb/dtf"
)

// InputFile pairs a DTF file path with its already-probed metadata; it
// is the merge engine's working-set record (spec §3 "InputFile record").
type InputFile struct {
	Path     string
	Metadata dtf.Metadata
}

// Combine merges inputs into a single ordered, deduplicated DTF file at
// outputPath (spec §4.5). inputs must contain at least two entries and
// must all share the same symbol; Combine re-sorts them by
// Metadata.MinTs for safety even though callers are expected to have
// already sorted them.
//
// gapToleranceMs bounds the permitted millisecond gap between the
// max_ts of one file and the min_ts of the next; 0 means the ranges
// must abut or overlap.
//
// Combine never leaves a partially written file at outputPath: the
// merged result is only handed to dtf.Encode (which itself writes via
// temp-file-then-rename) once the entire input set has been read and
// validated.
func Combine(inputs []InputFile, outputPath string, gapToleranceMs uint64, logf dtf.Logf) error {
	if len(inputs) < 2 {
		return &InvalidArgsError{Msg: "Combine requires at least 2 input files"}
	}

	symbol, err := checkSameSymbol(inputs)
	if err != nil {
		return err
	}

	sorted := make([]InputFile, len(inputs))
	copy(sorted, inputs)
	slices.SortFunc(sorted, func(a, b InputFile) bool { return a.Metadata.Less(b.Metadata) })

	if err := checkContinuity(sorted, gapToleranceMs); err != nil {
		return err
	}

	merged, err := mergeSorted(sorted, logf)
	if err != nil {
		return err
	}

	if err := dtf.Encode(outputPath, symbol, merged); err != nil {
		return fmt.Errorf("db.Combine: writing %s: %w", outputPath, err)
	}
	return nil
}

func checkSameSymbol(inputs []InputFile) (string, error) {
	var observed []string
	seen := map[string]bool{}
	for i := range inputs {
		sym := inputs[i].Metadata.Symbol
		if !seen[sym] {
			seen[sym] = true
			observed = append(observed, sym)
		}
	}
	if len(observed) > 1 {
		slices.Sort(observed)
		return "", &SymbolMismatchError{Observed: observed}
	}
	return inputs[0].Metadata.Symbol, nil
}

func checkContinuity(sorted []InputFile, gapToleranceMs uint64) error {
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Metadata.MaxTs+gapToleranceMs < cur.Metadata.MinTs {
			gap := cur.Metadata.MinTs - prev.Metadata.MaxTs
			return &DiscontinuousError{
				PrevPath:    prev.Path,
				NextPath:    cur.Path,
				PrevMaxTs:   prev.Metadata.MaxTs,
				NextMinTs:   cur.Metadata.MinTs,
				GapMs:       gap,
				ToleranceMs: gapToleranceMs,
			}
		}
	}
	return nil
}

// mergeSorted implements the carry-buffer partition algorithm of
// spec §4.5: each file's records are split into a left-overlap region
// shared with the predecessor, a middle region unique to the file, and
// a right-overlap region shared with the successor. The left-overlap is
// unioned with the carry buffer from the previous iteration (deduped by
// full structural equality, then re-sorted) before being emitted.
func mergeSorted(sorted []InputFile, logf dtf.Logf) ([]dtf.Update, error) {
	var out []dtf.Update
	var overlapCarry []dtf.Update
	var prevMaxTs uint64
	// havePrev is false until a non-empty file has been processed; the
	// first such file has no predecessor, so none of its records (not
	// even those at ts 0) form a left overlap.
	var havePrev bool

	for i := range sorted {
		cur := sorted[i]
		if cur.Metadata.Count == 0 {
			// spec §4.5 edge case: empty input file is skipped at
			// load and does not update prev_max_ts.
			continue
		}

		var nextMinTs uint64
		if i+1 < len(sorted) {
			nextMinTs = sorted[i+1].Metadata.MinTs
		} else {
			nextMinTs = cur.Metadata.MaxTs + 1
		}

		updates, err := dtf.Decode(cur.Path, 0, logf)
		if err != nil {
			return nil, fmt.Errorf("db.Combine: loading %s: %w", cur.Path, err)
		}

		var leftOverlap, middle, rightOverlap []dtf.Update
		for _, u := range updates {
			switch {
			case havePrev && u.Ts <= prevMaxTs:
				leftOverlap = append(leftOverlap, u)
			case u.Ts < nextMinTs:
				middle = append(middle, u)
			default:
				rightOverlap = append(rightOverlap, u)
			}
		}

		deduped := dedupUnion(overlapCarry, leftOverlap)
		out = append(out, deduped...)
		out = append(out, middle...)

		overlapCarry = rightOverlap
		prevMaxTs = cur.Metadata.MaxTs
		havePrev = true
	}

	out = append(out, overlapCarry...)
	return out, nil
}

// dedupUnion returns the set union of a and b under structural equality
// (spec §4.1), sorted by the total order. The hash set is keyed by
// Update.Hash (SipHash over the canonical packing, spec §9 design
// notes); a bucket per hash key resolves collisions via Update.Equal.
func dedupUnion(a, b []dtf.Update) []dtf.Update {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	buckets := make(map[uint64][]dtf.Update, len(a)+len(b))
	add := func(u dtf.Update) {
		h := u.Hash()
		bucket := buckets[h]
		for _, existing := range bucket {
			if existing.Equal(u) {
				return
			}
		}
		buckets[h] = append(bucket, u)
	}
	for _, u := range a {
		add(u)
	}
	for _, u := range b {
		add(u)
	}
	out := make([]dtf.Update, 0, len(a)+len(b))
	for _, bucket := range buckets {
		out = append(out, bucket...)
	}
	slices.SortFunc(out, dtf.Update.Less)
	return out
}
