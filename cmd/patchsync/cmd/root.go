package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "patchsync",
	Short: "Manifest-driven directory synchronizer",
	Long:  "Downloads, updates, and verifies local files against a remote patch manifest.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/patchsync/config.yaml)")
	rootCmd.PersistentFlags().String("state-dir", "", "state directory (default: ~/.local/share/patchsync)")

	viper.BindPFlag("state_dir", rootCmd.PersistentFlags().Lookup("state-dir"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PATCHSYNC")
	viper.AutomaticEnv()
	viper.SetDefault("state_dir", defaultStateDir())

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "patchsync")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "patchsync")
	}
	return ".patchsync"
}

func defaultStateDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "patchsync")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "patchsync")
	}
	return ".patchsync"
}

func statePath() string {
	return filepath.Join(viper.GetString("state_dir"), "hashes.json.zst")
}

// newLogger builds the process logger; PATCHSYNC_LOG_LEVEL selects the
// level (debug, info, warn, error).
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("PATCHSYNC_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
