package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/secakit/internal/application"
)

var cfgFile string
var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "secakit",
	Short: "Network diagnostics and security assessment toolkit",
	Long: `secakit runs port scans, ping, traceroute, file risk analysis and website
security checks, records every result, and serves the same operations over a REST API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(viper.GetViper(), cfgFile); err != nil {
			return err
		}
		l, err := newLogger(viper.GetViper())
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.secakit.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "history data directory (default $XDG_DATA_HOME/secakit)")
	rootCmd.PersistentFlags().String("history-backend", "", "history backend: memory, file, sqlite or postgres")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	// flags win over config file and environment
	_ = viper.BindPFlag(keyDataDir, rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag(keyHistoryBackend, rootCmd.PersistentFlags().Lookup("history-backend"))
	_ = viper.BindPFlag(keyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sysinfoCmd)
	rootCmd.AddCommand(versionCmd)
}

// newContainer builds the application container from the loaded config.
func newContainer(ctx context.Context) (*application.Container, error) {
	cfg, err := appConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	l := logger
	if l == nil {
		l = zap.NewNop()
	}
	container, err := application.NewContainer(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	l.Debug("container ready",
		zap.String("data_dir", cfg.DataDir),
		zap.String("history_backend", cfg.HistoryBackend))
	return container, nil
}
