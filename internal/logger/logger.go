// Package logger builds the zerolog loggers used by the demo command. The
// library itself takes an injected zerolog.Logger and stays silent by
// default.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New creates a logger based on the ENV environment variable.
func New() zerolog.Logger {
	env := os.Getenv("ENV")
	if env == "" || env == "dev" || env == "development" {
		return NewDevelopment()
	}
	return NewProduction()
}

// NewDevelopment creates a console logger with human-readable output.
func NewDevelopment() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// NewProduction creates a JSON logger with UNIX timestamps.
func NewProduction() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
