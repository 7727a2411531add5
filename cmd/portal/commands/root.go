// Package commands provides the CLI commands for the agent portal client.
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentportal/portal/internal/config"
	"github.com/agentportal/portal/internal/logging"
)

var (
	// Version information set at build time.
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags.
var (
	flagURL       string
	flagStateDir  string
	flagLogLevel  string
	flagPrintLogs bool
	flagNoColor   bool
	flagQuiet     bool
	flagJSON      bool
)

// cfg is the resolved configuration, populated before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Portal - chat with a remote AI coding agent",
	Long: `Portal is a command-line client for a remote AI coding agent. It submits
your messages as asynchronous tasks, polls them to completion, and keeps a
restart-safe local copy of the conversation.

Run 'portal chat' for an interactive session, 'portal sessions' to list
known sessions, or 'portal send' for a one-shot message.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err = config.Load(cwd, config.Options{
			APIURL:   flagURL,
			StateDir: flagStateDir,
			LogLevel: flagLogLevel,
			NoColor:  flagNoColor,
			Quiet:    flagQuiet,
			JSON:     flagJSON,
		})
		if err != nil {
			return err
		}
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(cfg.LogLevel),
			Output: logOutput(),
			Pretty: flagPrintLogs && !cfg.JSON,
		})
		return nil
	},
}

// logOutput picks where logs go. The default is a file in the state
// directory so log lines never interleave with the REPL; --print-logs puts
// them on stderr instead.
func logOutput() io.Writer {
	if flagPrintLogs {
		return os.Stderr
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return os.Stderr
	}
	f, err := os.OpenFile(filepath.Join(cfg.StateDir, "portal.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return os.Stderr
	}
	return f
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Agent backend URL (or PORTAL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "Directory for cached client state (default ~/.portal)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&flagPrintLogs, "print-logs", false, "Print logs to stderr instead of the state-dir log file")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "Silence banner and helper output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit JSON line output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("portal %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
