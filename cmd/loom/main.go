package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"loom/internal/config"
	"loom/internal/logs"
	"loom/internal/panics"
	"loom/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "loom",
	Short:         "Terminal multiplexer runtime",
	Long:          `loom runs a terminal multiplexer session and keeps the crash reports of its threads`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return current.logCloser.Close()
	},
}

// settings is what every command sees after flags and loom.toml are merged.
type settings struct {
	cfg       config.Config
	log       *slog.Logger
	logCloser io.Closer
}

var current = settings{log: logs.Discard(), logCloser: io.NopCloser(nil)}

// main installs the process panic router, registers the subcommands and
// executes the root command. Errors exit with status 1.
func main() {
	router := panics.NewRouter(panics.Options{})
	if err := panics.Install(router); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	router.BindMain()
	defer panics.Handle()

	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("config", "", "path to loom.toml (default: search upwards)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(1)
	}
}

func loadSettings(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if v, _ := flags.GetString("color"); v != "" {
		cfg.UI.Color = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	color.NoColor = !useColor(cfg.UI.Color)

	log, closer, err := logs.New(logs.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Journal: cfg.Log.Journal,
		Stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	current = settings{cfg: cfg, log: log, logCloser: closer}
	if cfg.Path != "" {
		log.Debug("configuration loaded", "path", cfg.Path)
	}
	return nil
}

func useColor(mode string) bool {
	switch strings.ToLower(mode) {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
