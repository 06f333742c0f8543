package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"mediadeck/config"
)

var (
	configFile string
	debugMode  bool
)

func main() {
	rootCommand := newRootCommand()
	if err := rootCommand.Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
	os.Exit(0)
}

func newRootCommand() *cobra.Command {
	rootCommand := cobra.Command{
		Use:           "mediadeck",
		Short:         "Homepage banner and danmaku backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode, os.Stderr)
			return nil
		},
	}
	rootCommand.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCommand.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")
	rootCommand.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL for client commands (defaults to the configured local port)")

	rootCommand.AddCommand(
		newServeCommand(),
		newBannerCommand(),
		newCarouselCommand(),
		newDanmakuCommand(),
	)
	return &rootCommand
}

// setupLogger configures the default slog logger based on debug mode
func setupLogger(debugMode bool, out io.Writer) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: debugMode,
		})),
	)
}

// setupLogOutput tees the standard logger and slog into a rotating file when
// one is configured. The returned func closes the file.
func setupLogOutput(settings config.LogSettings) func() {
	if settings.File == "" {
		return func() {}
	}
	rotating := &lumberjack.Logger{
		Filename:   settings.File,
		MaxSize:    settings.MaxSizeMB,
		MaxBackups: settings.MaxBackups,
		MaxAge:     settings.MaxAgeDays,
		Compress:   true,
	}
	out := io.MultiWriter(os.Stderr, rotating)
	log.SetOutput(out)
	setupLogger(debugMode || settings.Debug, out)
	return func() {
		log.SetOutput(os.Stderr)
		_ = rotating.Close()
	}
}

func loadConfig() (*config.Manager, config.Settings, error) {
	manager, err := config.NewManager(configFile)
	if err != nil {
		return nil, config.Settings{}, fmt.Errorf("config.NewManager() > %w", err)
	}
	settings, err := manager.Load()
	if err != nil {
		return nil, config.Settings{}, fmt.Errorf("manager.Load() > %w", err)
	}
	return manager, settings, nil
}
