package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time: -ldflags "-X main.version=..."
var version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mathbot",
	Short: "mathbot - calculator and equation solver for Telegram",
	Long: `mathbot reduces arithmetic expressions operator tier by tier and solves
fixed-shape equations (two- and three-step linear, quadratic, (a+b)/(c+d)).

It runs as a Telegram bot with a JSON API (serve), and the same engine is
available straight from the terminal (reduce, solve, calc).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "mathbot", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	serveCmd.Flags().String("port", "", "HTTP port (default 8080, or $PORT)")
	serveCmd.Flags().String("telegram-token", "", "Telegram bot token (or MATHBOT_TELEGRAM_TOKEN)")
	serveCmd.Flags().String("webhook-url", "", "Public base URL; enables webhook mode instead of polling")
	serveCmd.Flags().String("database-url", "", "Postgres DSN for history (or DATABASE_URL)")
	serveCmd.Flags().String("latex-url", "", "LaTeX renderer base URL")
	serveCmd.Flags().String("gemini-api-key", "", "Gemini API key for /explain")
	serveCmd.Flags().Duration("cooldown", 0, "Per-user cooldown for /calc and /eq")
	serveCmd.Flags().Duration("session-ttl", 0, "Keypad and wizard session lifetime")

	solveCmd.Flags().StringToStringVar(&solveVars, "var", nil, "Variable value, e.g. --var y=10 (repeatable)")

	historyCmd.Flags().Int64Var(&historyChat, "chat", 0, "Telegram chat id (required)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of entries")
	historyCmd.Flags().DurationVar(&historyPurge, "purge-older-than", 0, "Delete entries older than this instead of listing")
	historyCmd.Flags().String("database-url", "", "Postgres DSN (or DATABASE_URL)")
	migrateCmd.Flags().String("database-url", "", "Postgres DSN (or DATABASE_URL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reduceCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
