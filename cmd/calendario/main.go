/*
main.go - calendario command line

PURPOSE:

	Entry point for the shift-rotation calendar. One binary serves the
	HTTP API and runs the offline tools against the same database.

COMMANDS:

	serve      Run the HTTP API with retention purges and audit publishing
	seed       Import a YAML roster into the database
	month      Print a month calendar or summary
	validate   Check a YAML roster without touching the database

CONFIGURATION:

	--config/-c selects a YAML file; without it ./config.yaml and
	/etc/calendario/config.yaml are tried. CALENDARIO_* environment
	variables override file values (CALENDARIO_DATABASE_PATH, ...).

EXAMPLES:

	calendario serve -c config.yaml
	calendario seed roster.yaml --reset
	calendario month --year 2025 --month 3 --person 1 --person 2
	calendario validate roster.yaml

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GDiazF/calendario/config"
)

var (
	configPath string
	dbPath     string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "calendario",
		Short:         "Shift-rotation calendar",
		Long:          "Compute work/rest calendars for people assigned to sites on NxM rotations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			logger, err = newLogger(cfg.Logging)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides database.path)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(monthCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes JSON to stderr, or to a rotated file when logging.file
// is set.
func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if lc.File == "" {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		zc.EncoderConfig = encoderConfig
		return zc.Build()
	}

	writer := &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAge:     28, // days
		Compress:   true,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level)
	return zap.New(core, zap.AddCaller()), nil
}
