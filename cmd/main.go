package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"activity-rag/internal/config"
)

const defaultConfigPath = "./configs/config.yaml"

var (
	configPath string
	debug      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "activity-rag",
	Short: "Index activity descriptions and retrieve grounded context for questions",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)
		log.Debug().Str("config", configPath).Str("store", cfg.VectorStore.Type).Msg("Loaded config")
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "force debug logging")
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
