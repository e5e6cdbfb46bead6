package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/config"
	"github.com/bsaid97/go-overlap-checker/handlers"
	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/pipeline"
	"github.com/bsaid97/go-overlap-checker/utils"
)

var (
	conf = config.New()
	cfg  *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "overlap-checker",
	Short:         "Checks how a land polygon overlaps the reference layers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		var err error
		if cfg, err = config.Load(conf); err != nil {
			return err
		}
		logger.Setup(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Sync()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	RunE:  runServe,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a polygon or a registered parcel and print the report as JSON",
	RunE:  runAnalyze,
}

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Print the largest overlap between a polygon and one layer",
	RunE:  runScreen,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Configuration file (yaml, json or toml). Environment variables (OVERLAP_*) and flags take precedence.")
	pf.String("log-level", "info", "Log level: debug, info, warn or error.")
	pf.String("log-format", "console", "Log format: console or json.")
	pf.String("store-driver", "memory", "Layer store: memory, csv, sqlite, postgres or shapefile.")
	pf.String("store-dsn", "", "Database DSN for the sqlite and postgres stores.")
	pf.String("store-dir", "", "Directory of the csv and shapefile stores.")
	pf.String("layers-file", "", "YAML file listing the layers to analyze. Defaults to the built-in layers.")
	pf.Duration("timeout", 0, "Deadline for a whole analysis; 0 disables it.")
	for key, name := range map[string]string{
		config.KeyConfigFile:  "config",
		config.KeyLogLevel:    "log-level",
		config.KeyLogFormat:   "log-format",
		config.KeyStoreDriver: "store-driver",
		config.KeyStoreDSN:    "store-dsn",
		config.KeyStoreDir:    "store-dir",
		config.KeyLayersFile:  "layers-file",
		config.KeyTimeout:     "timeout",
	} {
		cobra.CheckErr(conf.BindPFlag(key, pf.Lookup(name)))
	}

	serveCmd.Flags().String("addr", ":8080", "HTTP listen address.")
	cobra.CheckErr(conf.BindPFlag(config.KeyHTTPAddr, serveCmd.Flags().Lookup("addr")))

	analyzeCmd.Flags().String("wkt", "", "Target polygon as WKT.")
	analyzeCmd.Flags().String("wkt-file", "", "File holding the target polygon as WKT.")
	analyzeCmd.Flags().String("car", "", "Analyze the registered parcel with this number, leaving it out of the parcel layer.")
	analyzeCmd.Flags().String("exclude-car", "", "Leave this parcel number out of the parcel layer.")
	analyzeCmd.Flags().Bool("progress", false, "Draw per-layer progress on stderr.")
	analyzeCmd.MarkFlagsMutuallyExclusive("wkt", "wkt-file", "car")

	screenCmd.Flags().String("wkt", "", "Target polygon as WKT.")
	screenCmd.Flags().String("wkt-file", "", "File holding the target polygon as WKT.")
	screenCmd.Flags().String("layer", string(layers.KindParcel), "Layer kind to screen against.")
	screenCmd.MarkFlagsMutuallyExclusive("wkt", "wkt-file")

	rootCmd.AddCommand(serveCmd, analyzeCmd, screenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.NewServer(a.analyzer).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.L().Info("server listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// targetWKT resolves the --wkt / --wkt-file pair.
func targetWKT(cmd *cobra.Command) (string, error) {
	wkt, _ := cmd.Flags().GetString("wkt")
	if file, _ := cmd.Flags().GetString("wkt-file"); file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading target: %w", err)
		}
		wkt = string(b)
	}
	return strings.TrimSpace(wkt), nil
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	var progress utils.ProgressFunc
	if show, _ := cmd.Flags().GetBool("progress"); show {
		progress = utils.SpinnerProgress(os.Stderr)
	}

	a, err := newApp(cmd.Context(), cfg, progress)
	if err != nil {
		return err
	}
	defer a.Close()

	var res any
	if number, _ := cmd.Flags().GetString("car"); number != "" {
		res, err = a.analyzer.AnalyzeParcel(cmd.Context(), number)
	} else {
		wkt, werr := targetWKT(cmd)
		if werr != nil {
			return werr
		}
		exclude, _ := cmd.Flags().GetString("exclude-car")
		res, err = a.analyzer.Analyze(cmd.Context(), pipeline.Request{WKT: wkt, ExcludeParcel: exclude})
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

func runScreen(cmd *cobra.Command, _ []string) error {
	layer, _ := cmd.Flags().GetString("layer")
	kind, err := layers.ParseKind(layer)
	if err != nil {
		return err
	}
	wkt, err := targetWKT(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ha, err := a.analyzer.Screen(cmd.Context(), wkt, kind)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"layer": kind, "max_overlap_ha": ha})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
