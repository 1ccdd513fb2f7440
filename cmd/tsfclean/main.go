/*
DESCRIPTION
  tsfclean cleans up the structure and boundaries of MPEG transport stream
  files. Each input is rewritten so that the output starts with a full
  cycle of merged PSI tables, non-essential tables are removed and
  elementary streams begin on decodable boundaries.

  Usage:

    tsfclean -o OUTPUT [-v|-d] [-logfile PATH] INPUT [INPUT ...]

  OUTPUT names a file when a single input is given, otherwise it must name
  an existing directory and each input is cleaned to OUTPUT/<basename>.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main implements the tsfclean command.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/tsclean/container/ts"
)

// Logging file rotation configuration.
const (
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = true
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		output  = flag.String("o", "", "output file, or directory when more than one input is given (required)")
		verbose = flag.Bool("v", false, "verbose logging")
		debug   = flag.Bool("d", false, "debug logging")
		logFile = flag.String("logfile", "", "also log to this file, with rotation")
	)
	flag.Parse()
	inputs := flag.Args()

	if len(inputs) == 0 || *output == "" {
		fmt.Fprintln(os.Stderr, "usage: tsfclean -o OUTPUT [-v|-d] [-logfile PATH] INPUT [INPUT ...]")
		return 1
	}

	level := logging.Warning
	switch {
	case *debug:
		level = logging.Debug
	case *verbose:
		level = logging.Info
	}
	var sink io.Writer = os.Stderr
	if *logFile != "" {
		sink = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		})
	}
	log := logging.New(level, sink, logSuppress)

	return process(log, inputs, *output)
}

// process cleans each input, resolving the output name per input when the
// output is a directory. The return value is the command exit code.
func process(log logging.Logger, inputs []string, output string) int {
	info, err := os.Stat(output)
	outDir := err == nil && info.IsDir()
	if len(inputs) > 1 && !outDir {
		log.Error("the output must be an existing directory when more than one input is given", "output", output)
		return 1
	}

	ok := true
	for _, in := range inputs {
		out := output
		if outDir {
			out = filepath.Join(out, filepath.Base(in))
		}
		if err := ts.CleanFile(log, in, out); err != nil {
			log.Error("cleanup failed", "input", in, "error", err.Error())
			ok = false
		}
	}
	if !ok {
		return 1
	}
	return 0
}
