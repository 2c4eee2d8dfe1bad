// Package logging is a thin façade over github.com/tendermint/tendermint/libs/log,
// matching the teacher's log.Logger usage throughout consensus/state.go:
// every Solid package takes a log.Logger directly, this package just
// centralizes how soliddemo constructs one from a level string.
package logging

import (
	"fmt"
	"io"

	"github.com/tendermint/tendermint/libs/log"
)

// New builds a log.Logger writing to w, filtered to level ("debug",
// "info", "error", or "none"). Grounded on the teacher's test loggers
// (log.NewFilter(log.TestingLogger(), log.AllowDebug())), generalized to
// a runtime-configurable level for a long-lived node instead of a fixed
// debug level for tests.
func New(level string, w io.Writer) (log.Logger, error) {
	base := log.NewTMLogger(log.NewSyncWriter(w))

	if level == "" {
		level = "info"
	}
	if level == "none" {
		return log.NewNopLogger(), nil
	}

	opt, err := log.AllowLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return log.NewFilter(base, opt), nil
}

// With attaches module=name to logger, the convention every teacher
// package uses to scope its log lines (e.g. logger.With("module", "p2p")
// in node.go).
func With(logger log.Logger, module string) log.Logger {
	return logger.With("module", module)
}
