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

// Command dtfmerge merges two or more time-sorted DTF files into one,
// deduplicating their overlap (spec §6 "dtfmerge in1.dtf in2.dtf ...
// -o OUTPUT [-c GAP_MS]").
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tectonicdb/tectonicdb/db"
	"github.com/tectonicdb/tectonicdb/dtf"
)

var (
	dasho string
	dashc uint64
	dashv bool
)

func init() {
	flag.StringVar(&dasho, "o", "", "output DTF file path (required)")
	flag.Uint64Var(&dashc, "c", 0, "maximum gap, in milliseconds, tolerated between adjacent input files")
	flag.BoolVar(&dashv, "v", false, "verbose")
}

// exitf prints a human-readable error to stdout and exits 1, matching
// spec §6's exit contract and the original dtfconcat2/main.rs's
// println!("{}", err) on failure.
func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, f, args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	if !dashv {
		return
	}
	if f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, f, args...)
}

func main() {
	flag.Parse()
	paths := flag.Args()
	if dasho == "" {
		exitf("dtfmerge: -o OUTPUT is required\n")
	}
	if len(paths) < 2 {
		exitf("dtfmerge: at least 2 input files are required, got %d\n", len(paths))
	}

	inputs := make([]db.InputFile, 0, len(paths))
	for _, p := range paths {
		meta, err := dtf.ReadMeta(p)
		if err != nil {
			exitf("dtfmerge: %s\n", err)
		}
		inputs = append(inputs, db.InputFile{Path: p, Metadata: meta})
	}

	if err := db.Combine(inputs, dasho, dashc, logf); err != nil {
		exitf("dtfmerge: %s\n", err)
	}
	logf("dtfmerge: wrote %s", dasho)
}
