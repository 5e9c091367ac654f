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

// Command dtfd is the tectonicdb daemon (spec §6): it starts the TCP
// command server plus the autoflush and cloud-upload background
// workers, all configured via config.Load.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/tectonicdb/tectonicdb/config"
	"github.com/tectonicdb/tectonicdb/server"
	"github.com/tectonicdb/tectonicdb/worker"
)

var (
	dashConfig string
	dashHost   string
	dashPort   int
	dashFlush  bool
)

func init() {
	flag.StringVar(&dashConfig, "config", "", "path to a tectonicdb.yaml/.json override file")
	flag.StringVar(&dashHost, "host", "", "override TECTONICDB_HOST")
	flag.IntVar(&dashPort, "port", 0, "override TECTONICDB_PORT")
	flag.BoolVar(&dashFlush, "autoflush", false, "override TECTONICDB_AUTOFLUSH to true")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func main() {
	flag.Parse()

	overrides := config.Overrides{}
	if dashHost != "" {
		overrides.Host = &dashHost
	}
	if dashPort != 0 {
		overrides.Port = &dashPort
	}
	if dashFlush {
		t := true
		overrides.Autoflush = &t
	}

	cfg, err := config.Load(dashConfig, overrides)
	if err != nil {
		exitf("dtfd: %s\n", err)
	}
	if err := os.MkdirAll(cfg.DTFFolder, 0o755); err != nil {
		exitf("dtfd: creating DTF folder %s: %s\n", cfg.DTFFolder, err)
	}

	logger := log.New(os.Stderr, "dtfd: ", log.LstdFlags)
	logf := func(format string, args ...interface{}) { logger.Printf(format, args...) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var flushLock sync.Mutex
	if cfg.Autoflush {
		go worker.Autoflush(ctx, time.Duration(cfg.FlushIntervalMs)*time.Millisecond, &flushLock, func() error {
			// the in-memory write buffer this flushes is an external
			// collaborator out of merge-core scope (spec §4.8); dtfd
			// itself has nothing to drain besides what's already on disk.
			return nil
		}, logf)
	}

	stageDir := filepath.Join(cfg.DTFFolder, ".upload-staging")
	go worker.RunUpload(ctx, time.Duration(cfg.UploadInterval)*time.Second, cfg.DTFFolder, stageDir, cfg.UploadMinSize, 4, localMirrorUploader(stageDir), logf)

	srv := server.New(cfg.DTFFolder, logger)
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		exitf("dtfd: %s\n", err)
	}
	logger.Printf("listening on %s, serving %s", cfg.Addr(), cfg.DTFFolder)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Printf("shutting down")
		cancel()
		srv.Close()
	}()

	if err := srv.Serve(ln); err != nil {
		exitf("dtfd: %s\n", err)
	}
}

// localMirrorUploader is the default cold-storage backend: it copies
// staged files into an "uploaded" subdirectory of stageDir's parent.
// Operators who want a real object-store backend (S3, GCS) supply
// their own worker.NewUploader; this one exists so dtfd runs out of
// the box without cloud credentials.
func localMirrorUploader(stageDir string) worker.NewUploader {
	dest := filepath.Join(filepath.Dir(stageDir), "uploaded")
	return func(name string) (worker.Uploader, error) {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return nil, err
		}
		return worker.NewFileUploader(filepath.Join(dest, name))
	}
}
