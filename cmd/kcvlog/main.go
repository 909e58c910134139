package main

import (
	"os"

	"github.com/rzbill/kcvlog/internal/cmd"
	logpkg "github.com/rzbill/kcvlog/pkg/log"
)

func main() {
	level, err := logpkg.ParseLevel(os.Getenv("KCVLOG_LOG_LEVEL"))
	if err != nil {
		level = logpkg.InfoLevel
	}
	var formatter logpkg.Formatter = &logpkg.TextFormatter{}
	if os.Getenv("KCVLOG_LOG_FORMAT") == "json" {
		formatter = &logpkg.JSONFormatter{}
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithFormatter(formatter),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Route standard library logs (used by Pebble) through our logger.
	logpkg.RedirectStdLog(logger)

	if err := cmd.NewRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}
