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

import "fmt"

// SymbolMismatchError is returned by Combine when the input files do not
// all share the same symbol.
type SymbolMismatchError struct {
	Observed []string
}

func (e *SymbolMismatchError) Error() string {
	return fmt.Sprintf("db: input files have different symbols: %v", e.Observed)
}

// DiscontinuousError is returned by Combine when an adjacent pair of
// input files has a gap larger than the configured tolerance.
type DiscontinuousError struct {
	PrevPath, NextPath string
	PrevMaxTs, NextMinTs uint64
	GapMs                uint64
	ToleranceMs          uint64
}

func (e *DiscontinuousError) Error() string {
	return fmt.Sprintf(
		"db: discontinuous input set: %s (max_ts=%d) -> %s (min_ts=%d), gap %dms exceeds tolerance %dms",
		e.PrevPath, e.PrevMaxTs, e.NextPath, e.NextMinTs, e.GapMs, e.ToleranceMs,
	)
}

// InvalidArgsError reports CLI/API misuse, e.g. fewer than two inputs.
type InvalidArgsError struct {
	Msg string
}

func (e *InvalidArgsError) Error() string { return "db: invalid arguments: " + e.Msg }
