package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogFilename = "chanvalidate.log"
	defaultLogLevel    = "info"
)

var defaultLogDir = filepath.Join(os.TempDir(), "chanvalidate", "logs")

// config holds the command's go-flags-parsed options: which covenant
// to run, where to load the transaction and script-args fixtures
// from, and logging knobs.
type config struct {
	Script     string `short:"s" long:"script" description:"covenant to validate against" choice:"pcts" choice:"pfls" choice:"vcls" choice:"vcts" required:"true"`
	TxFile     string `short:"t" long:"txfile" description:"path to a JSON transaction fixture" required:"true"`
	ArgsFile   string `short:"a" long:"argsfile" description:"path to the script's molecule-encoded args, binary"`
	LogDir     string `long:"logdir" description:"directory to log output"`
	DebugLevel string `long:"debuglevel" description:"logging level: trace, debug, info, warn, error, critical"`
}

// loadConfig parses the command line, applying defaults for any
// option the user left unset.
func loadConfig() (*config, error) {
	cfg := config{
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	if cfg.Script != "vcls" && cfg.ArgsFile == "" {
		return nil, fmt.Errorf("--argsfile is required for script %q", cfg.Script)
	}

	return &cfg, nil
}
