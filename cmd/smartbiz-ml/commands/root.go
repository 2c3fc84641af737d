package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"smartbiz-ml/internal/config"
	"smartbiz-ml/internal/logging"
	"smartbiz-ml/internal/mcp"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "smartbiz-ml",
	Short: "SmartBiz ML is an insight engine and MCP server for small-business sales data",
	Long: `Trains demand, segmentation, price, inventory, churn and sales models on a business
snapshot (JSONL cache or MySQL) and serves their insights as MCP tools over stdio.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("SmartBiz ML starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx, cfg, false)
		if err != nil {
			return err
		}
		// Serve insights right away when a snapshot exists; train_models retrains later.
		if rt.records() > 0 {
			if err := rt.engine.TrainModels(ctx, rt.store.Snapshot()); err != nil {
				log.Warn().Err(err).Msg("Initial training incomplete, call train_models after fixing the data")
			}
		}

		if cfg.MetricsAddr != "" {
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(rt), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("Metrics server stopped")
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		return mcp.NewServer(rt.engine, rt.store, cfg).Serve(ctx)
	},
}

func metricsMux(rt *runtime) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metrics.Handler())
	return mux
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(insightsCmd, reportCmd)
}
