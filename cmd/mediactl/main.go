package main

import (
	"RNChatMedia/internal/config"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "mediactl",
		Short: "Inspect and convert files the way the upload service does",
		Long: `mediactl runs the upload pipeline's content check and transcoders
against local files. It reads the same environment (and .env file) as the
server, so binaries, widths and presets match.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	rootCmd.AddCommand(
		inspectCmd(),
		transcodeCmd(),
	)

	return rootCmd
}

func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()
	return config.ParseAppConfig()
}
