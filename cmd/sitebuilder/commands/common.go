// Package commands implements the sitebuilder command line.
package commands

import (
	"io"
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/logging"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct{}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: sitebuilder.yaml when present)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd   `cmd:"" default:"withargs" help:"Build the site (default command)"`
	Init       InitCmd    `cmd:"" help:"Write a default configuration file"`
	VersionCmd VersionCmd `cmd:"" name:"version" help:"Print the version"`
}

// AfterApply installs a console logger until the configuration is known.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	_, _ = logging.Setup(logging.Options{Format: logging.FormatPretty, Level: level})
	return nil
}

// setupLogging replaces the bootstrap logger with one built from cfg.
func setupLogging(cfg *config.Config, verbose bool) (io.Closer, error) {
	level := logging.ParseLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	return logging.Setup(logging.Options{
		Format: logging.ParseFormat(cfg.LogFormat),
		Level:  level,
		Dir:    cfg.LogPath,
	})
}
