package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/manualcore/internal/adaptivestats"
	"github.com/dshills/manualcore/internal/config"
	"github.com/dshills/manualcore/internal/coreports"
	"github.com/dshills/manualcore/internal/docstore"
	"github.com/dshills/manualcore/internal/mcp"
	"github.com/dshills/manualcore/internal/pipeline"
)

var (
	version = "dev"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "manualcore",
		Short:   "Lexical retrieval core for manual document search",
		Version: version,
	}
	root.AddCommand(serveCmd(), invalidateCmd(), statsCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP stdio server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))

			srv, err := mcp.NewServer(cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				slog.Info("manual retrieval server ready, listening on stdio")
				errCh <- srv.Serve(ctx)
			}()

			select {
			case sig := <-sigCh:
				slog.Info("received signal, shutting down", "signal", sig.String())
				cancel()
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			}
			return nil
		},
	}
}

func invalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <manual_id>",
		Short: "Drop a manual's cached index, semantic cache, and traces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			provider := docstore.NewFilesystem(cfg.ManualsRoot)
			stats := adaptivestats.New(cfg.AdaptiveStatsPath)
			core := pipeline.New(cfg, provider, coreports.SystemClock{}, nil, stats)
			defer core.Close()

			result, err := core.Invalidate(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%v\n", result)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent adaptive-stats rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			w := adaptivestats.New(cfg.AdaptiveStatsPath)
			defer w.Stop()

			limit, _ := cmd.Flags().GetInt("limit")
			for _, row := range w.Tail(limit) {
				fmt.Printf("%v\n", row)
			}
			return nil
		},
	}
	tail.Flags().Int("limit", 20, "number of rows to print")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Inspect adaptive retrieval statistics",
	}
	stats.AddCommand(tail)
	return stats
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
