package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

// newLogger logs human-readable lines to a terminal and JSON otherwise.
func newLogger(verbose bool, stderr *os.File) (*zap.Logger, error) {
	var cfg zap.Config
	if isatty.IsTerminal(stderr.Fd()) || isatty.IsCygwinTerminal(stderr.Fd()) {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	} else {
		cfg = zap.NewProductionConfig()
	}
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
