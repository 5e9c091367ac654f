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
	"io"
	"path/filepath"
	"strings"

	"github.com/tectonicdb/tectonicdb/dtf"
)

// Split is a thin inversion of the writer (spec §4.6): it streams path's
// records out in fixed-size batches (when batch is non-nil) or
// byte-sized chunks (when targetSize is non-nil) and re-encodes each
// group through dtf.Encode, producing a sequence of sibling files named
// after the input's stem: stem-0.dtf, stem-1.dtf, ... inside outDir
// (spec §4.6/§6, matching original_source/src/bin/dtfsplit/main.rs's
// `format!("{}-{}.dtf", file_stem, i)`). Exactly one of batch,
// targetSize must be given.
func Split(path, outDir string, batch *int, targetSize *int64) ([]string, error) {
	if (batch == nil) == (targetSize == nil) {
		return nil, &InvalidArgsError{Msg: "Split requires exactly one of batch or targetSize"}
	}

	meta, err := dtf.ReadMeta(path)
	if err != nil {
		return nil, err
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var next func() ([]dtf.Update, error)
	if batch != nil {
		b, err := dtf.Stream(path, *batch)
		if err != nil {
			return nil, err
		}
		defer b.Close()
		next = b.Next
	} else {
		src, err := dtf.Stream(path, 4096)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		c := dtf.Chunks(src, *targetSize)
		next = c.Next
	}

	var outPaths []string
	for i := 0; ; i++ {
		group, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("db.Split: %s: %w", path, err)
		}
		outPath := filepath.Join(outDir, fmt.Sprintf("%s-%d.dtf", stem, i))
		if err := dtf.Encode(outPath, meta.Symbol, group); err != nil {
			return nil, err
		}
		outPaths = append(outPaths, outPath)
	}
	return outPaths, nil
}
