// Package eexam is a confidential exam ledger. Scores are submitted as
// ciphertext handles, aggregated homomorphically by a native contract, and
// revealed off-chain to the principals present on a handle's grant list.
package eexam

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.DebugLevel)

// PromCollectors exposes the metrics of the ledger. The caller is responsible
// for registering them to a registry.
var PromCollectors []prometheus.Collector
