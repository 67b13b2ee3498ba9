package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ypk/ringwatch/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ringwatch",
	Short: "Monitor Ring doorbell events, send alerts, and archive clips",
	Long: `ringwatch polls the Ring cloud for doorbell and camera events, sends
push or SMS notifications, optionally archives each event's recording
under a storage quota, and serves a local web page to browse the archive.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ringwatch.yaml)")
}

// loadConfig reads the config and installs the default slog logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return cfg, nil
}
