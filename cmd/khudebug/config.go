package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// khuDebugConfig is the command-line configuration for khudebug, the
// engine's read-only inspection tool (SPEC_FULL §2 cmd/khudebug).
type khuDebugConfig struct {
	DataDir            string `short:"b" long:"datadir" description:"Directory containing the KHU leveldb stores" required:"true"`
	CacheSize          int    `long:"dbcache" description:"Leveldb block cache size in MiB" default:"16"`
	V6ActivationHeight uint32 `long:"v6activationheight" description:"Height at which KHU (V6) activates"`
	LogLevel           string `long:"loglevel" description:"Logging level for all subsystems" default:"info"`

	ShowState  bool   `long:"state" description:"Print the current tip state and exit"`
	AtHeight   uint32 `long:"height" description:"Print the state persisted at this height instead of the tip"`
	ShowNote   string `long:"note" description:"Print the note with this commitment (hex) and exit"`
	ShowPhase  bool   `long:"phase" description:"Print the current DOMC cycle phase and exit"`
}

func parseConfig() (*khuDebugConfig, error) {
	cfg := &khuDebugConfig{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		return nil, errors.New("--datadir is required")
	}
	return cfg, nil
}
