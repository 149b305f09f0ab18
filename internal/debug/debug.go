// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package debug configures the process-wide logger.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes where and how verbosely the node logs
type Config struct {
	Verbosity  int    // 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace
	Vmodule    string `toml:",omitempty"`
	Format     string // terminal, logfmt or json
	File       string `toml:",omitempty"` // rotated log file, stderr when empty
	MaxSize    int    // megabytes before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig logs at info level to the terminal
var DefaultConfig = Config{
	Verbosity:  3,
	Format:     "terminal",
	MaxSize:    100,
	MaxBackups: 10,
	MaxAge:     30,
}

var (
	mu      sync.Mutex
	logFile *lumberjack.Logger
)

// Setup installs the default logger described by cfg.
func Setup(cfg Config) error {
	if cfg.Verbosity < 0 || cfg.Verbosity > 5 {
		return fmt.Errorf("verbosity %d out of range [0, 5]", cfg.Verbosity)
	}
	var (
		output   io.Writer = os.Stderr
		useColor           = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		rotator  *lumberjack.Logger
	)
	if useColor {
		output = colorable.NewColorableStderr()
	}
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		output, useColor = rotator, false
	}

	var handler slog.Handler
	switch cfg.Format {
	case "", "terminal":
		handler = log.NewTerminalHandlerWithLevel(output, log.LevelTrace, useColor)
	case "logfmt":
		handler = log.LogfmtHandler(output)
	case "json":
		handler = log.JSONHandlerWithLevel(output, log.LevelTrace)
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(cfg.Verbosity))
	if cfg.Vmodule != "" {
		if err := glogger.Vmodule(cfg.Vmodule); err != nil {
			return fmt.Errorf("invalid vmodule %q: %w", cfg.Vmodule, err)
		}
	}
	log.SetDefault(log.NewLogger(glogger))

	mu.Lock()
	previous := logFile
	logFile = rotator
	mu.Unlock()
	if previous != nil {
		previous.Close()
	}
	return nil
}

// Exit closes the rotated log file, if any.
func Exit() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
