package main

import (
    "fmt"
    "log/slog"
    "os"
    "strings"

    "github.com/joho/godotenv"
    "github.com/spf13/cobra"

    "supplygw/internal/buildinfo"
    "supplygw/internal/config"
)

var (
    // Global flags
    cfgPath   string
    logLevel  string
    logFormat string

    globalCfg config.Config
    logger    *slog.Logger
)

func newRootCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "supplygw",
        Short: "Supplier gateway for branch, location and availability data",
        Long: `supplygw normalizes heterogeneous supplier responses into branches,
locations and availability samples, and verifies supplier endpoints.

Configuration is read from an optional YAML file with environment
variables layered on top.`,
        Version:       buildinfo.Version,
        SilenceUsage:  true,
        SilenceErrors: true,
        PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
            // .env is optional; real env always wins
            _ = godotenv.Load()

            cfg, err := config.Load(cfgPath)
            if err != nil {
                return err
            }
            globalCfg = cfg
            if logLevel == "" {
                logLevel = cfg.LogLevel
            }
            logger = setupLogging(logLevel, logFormat)
            slog.SetDefault(logger)
            return nil
        },
    }

    cmd.PersistentFlags().StringVar(&cfgPath, "config", "supplygw.yaml", "path to YAML config file")
    cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
    cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

    cmd.AddCommand(newServeCmd())
    cmd.AddCommand(newVerifyCmd())
    cmd.AddCommand(newImportCmd())
    cmd.AddCommand(newExportCmd())
    cmd.AddCommand(newVersionCmd())

    return cmd
}

func setupLogging(level, format string) *slog.Logger {
    var lvl slog.Level
    switch strings.ToLower(level) {
    case "debug":
        lvl = slog.LevelDebug
    case "warn", "warning":
        lvl = slog.LevelWarn
    case "error":
        lvl = slog.LevelError
    default:
        lvl = slog.LevelInfo
    }

    opts := &slog.HandlerOptions{Level: lvl}
    var handler slog.Handler
    if strings.ToLower(format) == "json" {
        handler = slog.NewJSONHandler(os.Stderr, opts)
    } else {
        handler = slog.NewTextHandler(os.Stderr, opts)
    }
    return slog.New(handler)
}

func newVersionCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "version",
        Short: "Print version information",
        Run: func(cmd *cobra.Command, args []string) {
            info := buildinfo.Info()
            fmt.Printf("supplygw %s", info["version"])
            if info["commit"] != "" {
                fmt.Printf(" (%s)", info["commit"])
            }
            if info["builtAt"] != "" {
                fmt.Printf(" built %s", info["builtAt"])
            }
            fmt.Println()
        },
    }
}
