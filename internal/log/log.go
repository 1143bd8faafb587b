// Package log holds the daemon's zerolog loggers, one per component.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Logger is the root logger every component logger derives from.
var Logger zerolog.Logger

// Component loggers. They are rebuilt by Init.
var (
	Sync    zerolog.Logger
	Chain   zerolog.Logger
	RPC     zerolog.Logger
	Wallet  zerolog.Logger
	Storage zerolog.Logger
	Verify  zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stdout, "info")
	deriveComponents()
}

// Init replaces the root logger. Console output is colored on a terminal
// unless jsonOutput is set. A non-empty file additionally receives every
// record as JSON.
func Init(level string, jsonOutput bool, file string) error {
	var out io.Writer = os.Stdout
	if !jsonOutput {
		out = consoleWriter(os.Stdout)
	}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
	}

	Logger = newLogger(out, level)
	deriveComponents()
	return nil
}

// NewConsoleLogger returns a human-readable logger writing to w.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(consoleWriter(w), level)
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: noColor}
}

// parseLevel maps a configured level name; unknown names mean info.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "disabled", "off":
		return zerolog.Disabled
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func deriveComponents() {
	Sync = WithComponent("sync")
	Chain = WithComponent("chain")
	RPC = WithComponent("rpc")
	Wallet = WithComponent("wallet")
	Storage = WithComponent("storage")
	Verify = WithComponent("verify")
}

// WithComponent returns a child of Logger tagged with component.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithAddress tags a component logger with a wallet address.
func WithAddress(component, address string) zerolog.Logger {
	return Logger.With().Str("component", component).Str("address", address).Logger()
}
