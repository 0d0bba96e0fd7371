// Package votela defines the global facilities of the votela voting service.
//
// Votela records votes on a deterministic single-sequencer ledger: signed
// transactions are pooled, totally ordered, executed by the voting contract
// and committed to an append-only record log. Around the ledger live a voter
// registry with email one-time-password verification, a JSON REST API, an
// optional mirror to an Ethereum-compatible contract, and a CLI daemon to
// administrate the node.
//
// This top-level package holds the logger and the Prometheus collector
// registry shared by the modules.
package votela

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.InfoLevel

func init() {
	lvl := os.Getenv(EnvLogLevel)

	var level zerolog.Level

	switch lvl {
	case "error":
		level = zerolog.ErrorLevel
	case "warn":
		level = zerolog.WarnLevel
	case "info":
		level = zerolog.InfoLevel
	case "debug":
		level = zerolog.DebugLevel
	case "trace":
		level = zerolog.TraceLevel
	case "":
		level = defaultLevel
	default:
		level = zerolog.TraceLevel
	}

	Logger = Logger.Level(level)
}

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance. By default, it only prints
// info level messages but it can be changed through the LLVL environment
// variable.
var Logger = zerolog.New(logout).Level(defaultLevel).
	With().Timestamp().Logger().
	With().Caller().Logger()

// PromCollectors exposes the Prometheus collectors created in the modules.
// They are registered when the prometheus proxy action is invoked.
var PromCollectors []prometheus.Collector
