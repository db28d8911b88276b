package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spred/offline-downloader/internal/config"
	"github.com/spred/offline-downloader/internal/download"
)

var (
	cfg     *config.Config
	cfgFile string
	verbose bool
	logger  *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "spred-fetch",
	Short:   "Download Spred content for offline viewing",
	Version: version,
	Long: `spred-fetch downloads Spred video content into the same storage folders the
mobile app uses, writes the metadata sidecar next to each file and reports
progress while it runs.

Configuration is read from $HOME/.spred.yaml (or --config) and from SPRED_*
environment variables, e.g. SPRED_CONTENT_ENDPOINT or SPRED_S3_REGION.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		initConfig()

		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.spred.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("storage-root", "", "directory holding the content folders")
	rootCmd.PersistentFlags().String("storage-tier", config.TierAuto, "storage tier: auto, modern or legacy")
	rootCmd.PersistentFlags().String("endpoint", "", "content endpoint url")
	rootCmd.PersistentFlags().String("token", "", "bearer token")
	rootCmd.PersistentFlags().String("user", "", "user id")
	rootCmd.PersistentFlags().String("wallet", "", "wallet reference for paid content and balance")

	_ = viper.BindPFlag("storage_root", rootCmd.PersistentFlags().Lookup("storage-root"))
	_ = viper.BindPFlag("storage_tier", rootCmd.PersistentFlags().Lookup("storage-tier"))
	_ = viper.BindPFlag("content_endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("user_id", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("wallet", rootCmd.PersistentFlags().Lookup("wallet"))

	rootCmd.AddCommand(downloadCmd, checkCmd, listCmd, balanceCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Warn("could not find home directory", "error", err)
			return
		}

		// Search config in home directory with name ".spred" (without extension)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".spred")
	}

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// createContext creates a context that cancels on interrupt signals
func createContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// createService wires the download engine from the loaded configuration
func createService(ctx context.Context) (*download.Service, error) {
	return download.NewServiceFromConfig(ctx, cfg, logger)
}
