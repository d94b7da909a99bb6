package main

import (
	"cascade-sim/internal/config"
	"cascade-sim/internal/output"
)

// newWriters sets up result writers based on flags and configuration.
// It returns the writer and a cleanup function to close any resources.
// An empty outFile falls back to output.log_file.
func newWriters(c *config.Config, printOnly, colorize, quiet bool, outFile, forecastFile string) (output.ResultWriter, func(), error) {
	cleanup := func() {}
	if outFile == "" {
		outFile = c.Output.LogFile
	}

	base, err := baseWriter(c, printOnly, colorize, quiet)
	if err != nil {
		return nil, nil, err
	}
	if outFile == "" {
		if base == nil {
			return output.NewMultiWriter(), cleanup, nil
		}
		return base, cleanup, nil
	}

	fw, err := output.NewFileWriter(outFile, forecastFile)
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() { fw.Close() }
	return output.NewMultiWriter(base, fw), cleanup, nil
}

// baseWriter picks GreptimeDB when a host is configured and stdout
// otherwise. quiet suppresses the stdout writer.
func baseWriter(c *config.Config, printOnly, colorize, quiet bool) (output.ResultWriter, error) {
	g := c.Output.Greptime
	if printOnly || g.Host == "" {
		if quiet {
			return nil, nil
		}
		if colorize {
			return output.NewStdoutWriter(true), nil
		}
		return output.NewJSONStdoutWriter(true), nil
	}
	return output.NewGreptimeDBWriter(g.Host, g.Port, g.Database, logger)
}
