package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is usable before Init; it then writes JSON to stdout without timestamps.
var Log = zerolog.New(os.Stdout)

func Init(isDev bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if isDev {
		Log = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}).With().Timestamp().Logger()
	} else {
		Log = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
