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

package server

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tectonicdb/tectonicdb/db"
	"github.com/tectonicdb/tectonicdb/dtf"
)

// dispatch parses one command line and runs it against s.folder,
// returning the single-line response (spec §4.10: PING, INFO <symbol>,
// SCAN <symbol> <lo> <hi>, MERGE <out> <in...>).
func (s *Server) dispatch(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERR empty command"
	}
	switch strings.ToUpper(fields[0]) {
	case "PING":
		return s.cmdPing(fields[1:])
	case "INFO":
		return s.cmdInfo(fields[1:])
	case "SCAN":
		return s.cmdScan(fields[1:])
	case "MERGE":
		return s.cmdMerge(fields[1:])
	default:
		return fmt.Sprintf("ERR unknown command %q", fields[0])
	}
}

func (s *Server) cmdPing(args []string) string {
	if len(args) != 0 {
		return "ERR PING takes no arguments"
	}
	return "PONG"
}

func (s *Server) cmdInfo(args []string) string {
	if len(args) != 1 {
		return "ERR usage: INFO <symbol>"
	}
	count, minTs, maxTs, err := db.Info(s.folder, args[0], s.dtfLogf())
	if err != nil {
		return "ERR " + err.Error()
	}
	return fmt.Sprintf("OK count=%d min_ts=%d max_ts=%d", count, minTs, maxTs)
}

func (s *Server) cmdScan(args []string) string {
	if len(args) != 3 {
		return "ERR usage: SCAN <symbol> <lo> <hi>"
	}
	lo, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return "ERR bad lo: " + err.Error()
	}
	hi, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return "ERR bad hi: " + err.Error()
	}
	updates, err := db.Scan(s.folder, args[0], lo, hi, s.dtfLogf())
	if err != nil {
		return "ERR " + err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "OK count=%d", len(updates))
	for _, u := range updates {
		fmt.Fprintf(&b, " %d,%d,%t,%t,%v,%v", u.Ts, u.Seq, u.IsTrade, u.IsBid, u.Price, u.Size)
	}
	return b.String()
}

func (s *Server) cmdMerge(args []string) string {
	if len(args) < 3 {
		return "ERR usage: MERGE <out> <in1> <in2> [...]"
	}
	out := filepath.Join(s.folder, args[0])
	var inputs []db.InputFile
	for _, name := range args[1:] {
		path := filepath.Join(s.folder, name)
		meta, err := dtf.ReadMeta(path)
		if err != nil {
			return "ERR " + err.Error()
		}
		inputs = append(inputs, db.InputFile{Path: path, Metadata: meta})
	}
	if err := db.Combine(inputs, out, 0, s.dtfLogf()); err != nil {
		return "ERR " + err.Error()
	}
	return "OK"
}
