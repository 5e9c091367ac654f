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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesUpstreamDefaults(t *testing.T) {
	c := Default()
	if c.DTFFolder != "db" || c.Host != "0.0.0.0" || c.Port != 9001 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.FlushIntervalMs != 1000 || c.UploadInterval != 21600 || c.UploadMinSize != 0 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestFromEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("TECTONICDB_HOST", "127.0.0.1")
	t.Setenv("TECTONICDB_PORT", "9999")
	t.Setenv("TECTONICDB_AUTOFLUSH", "true")

	c, err := FromEnvironment()
	if err != nil {
		t.Fatalf("FromEnvironment: %v", err)
	}
	if c.Host != "127.0.0.1" || c.Port != 9999 || !c.Autoflush {
		t.Fatalf("env overrides not applied: %+v", c)
	}
	if c.DTFFolder != "db" {
		t.Fatalf("unset env var should keep default: %+v", c)
	}
}

func TestFromEnvironmentRejectsBadInt(t *testing.T) {
	t.Setenv("TECTONICDB_PORT", "not-a-number")
	if _, err := FromEnvironment(); err == nil {
		t.Fatalf("expected error for non-numeric TECTONICDB_PORT")
	}
}

func TestLoadFileOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tectonicdb.yaml")
	writeTestFile(t, path, "host: 10.0.0.5\nport: 1234\n")

	base := Default()
	out, err := LoadFile(path, base)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if out.Host != "10.0.0.5" || out.Port != 1234 {
		t.Fatalf("file overrides not applied: %+v", out)
	}
	if out.DTFFolder != base.DTFFolder {
		t.Fatalf("field absent from file should keep base value: %+v", out)
	}
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	base := Default()
	out, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), base)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if out != base {
		t.Fatalf("missing file should return base unchanged: %+v", out)
	}
}

func TestLoadAppliesCLIOverridesLast(t *testing.T) {
	t.Setenv("TECTONICDB_HOST", "127.0.0.1")
	host := "192.168.1.1"
	c, err := Load("", Overrides{Host: &host})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Host != "192.168.1.1" {
		t.Fatalf("CLI override should win over env var: %+v", c)
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
