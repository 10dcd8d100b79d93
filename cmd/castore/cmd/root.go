package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/castore"
)

var rootCmd = &cobra.Command{
	Use:           "castore",
	Short:         "Content-addressed file store CLI",
	Long:          "CLI for storing files by content hash and mirroring them to OCI registries.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/castore/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default: ~/.local/share/castore)")
	rootCmd.PersistentFlags().String("backend", castore.BackendBolt, "storage backend: bolt or local")
	rootCmd.PersistentFlags().Int("size-limit", castore.DefaultSizeLimit, "maximum payload size in bytes")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn or error")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("size_limit", rootCmd.PersistentFlags().Lookup("size-limit"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CASTORE")
	viper.AutomaticEnv()
	viper.SetDefault("data_dir", defaultDataDir())

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "castore")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "castore")
	}
	return ".castore"
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "castore")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "castore")
	}
	return ".castore"
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

// openStore opens the durable store selected by configuration.
func openStore(cmd *cobra.Command) (*castore.Store, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	dataDir := viper.GetString("data_dir")
	kind := strings.ToLower(viper.GetString("backend"))

	var path string
	switch kind {
	case castore.BackendBolt:
		path = filepath.Join(dataDir, "castore.db")
	case castore.BackendLocal:
		path = filepath.Join(dataDir, "objects")
	default:
		return nil, fmt.Errorf("unsupported backend %q", kind)
	}

	opts := []castore.Option{
		castore.WithBackend(kind),
		castore.WithSizeLimit(viper.GetInt("size_limit")),
		castore.WithLogger(logger),
		castore.WithObserver(castore.LogObserver(logger)),
	}
	if user := viper.GetString("registry_username"); user != "" {
		opts = append(opts, castore.WithAuth(castore.BasicAuthenticator{
			Username: user,
			Password: viper.GetString("registry_password"),
		}))
	}

	return castore.Open(path, opts...)
}
