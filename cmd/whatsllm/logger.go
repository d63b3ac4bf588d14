package main

import (
	"fmt"
	"io"
	"os"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/logger"
)

// setupLogging configures the process-wide slog default from CLI flags.
func setupLogging(cli *CLI) error {
	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	var out io.Writer = os.Stderr
	if cli.LogFile != "" {
		f, _, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		// Closed implicitly at process exit.
		out = f
	}

	logger.Init(level, out, cli.LogFormat)
	return nil
}
