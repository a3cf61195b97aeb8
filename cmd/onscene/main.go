package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Meesho/BharatMLStack/onscene/handlers/models"
	"github.com/Meesho/BharatMLStack/onscene/internal/bootstrap"
	"github.com/Meesho/BharatMLStack/onscene/pkg/configs"
	"github.com/Meesho/BharatMLStack/onscene/pkg/logger"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "onscene",
		Short:        "On-scene time prediction service",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newPredictCmd(), newCheckConfigCmd())
	return root
}

// setup loads configuration from the environment and builds the ambient stack.
func setup() (*configs.AppConfigs, zerolog.Logger, *metrics.StatsD, error) {
	appConfigs := &configs.AppConfigs{}
	if err := configs.InitConfig(appConfigs); err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log, err := logger.InitLogger(appConfigs)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	statsd, err := metrics.NewStatsD(appConfigs, logger.For(log, "metrics"))
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	return appConfigs, log, statsd, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over gRPC and HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appConfigs, log, statsd, err := setup()
			if err != nil {
				return err
			}
			defer statsd.Close()

			ctx := cmd.Context()
			app, err := bootstrap.New(ctx, appConfigs, log, statsd)
			if err != nil {
				log.Error().Err(err).Msg("failed to start on-scene service")
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Warn().Err(err).Msg("error while releasing clients")
				}
			}()
			app.Watch(ctx)
			return app.NewServer().Run(ctx)
		},
	}
}

func newPredictCmd() *cobra.Command {
	var requestFile string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run one prediction request from a JSON file and print the response",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(requestFile)
			if err != nil {
				return err
			}
			var req models.OnSceneRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("invalid request file %s: %w", requestFile, err)
			}

			appConfigs, log, statsd, err := setup()
			if err != nil {
				return err
			}
			defer statsd.Close()
			app, err := bootstrap.New(cmd.Context(), appConfigs, log, statsd)
			if err != nil {
				return err
			}
			defer app.Close()

			resp, err := app.Service.PredictOnScene(cmd.Context(), &req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&requestFile, "request", "", "path to an OnSceneRequest JSON document")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the service configuration and every model it references",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appConfigs, log, statsd, err := setup()
			if err != nil {
				return err
			}
			defer statsd.Close()
			snapshot, err := bootstrap.CheckConfig(cmd.Context(), appConfigs, log, statsd)
			if err != nil {
				log.Error().Err(err).Msg("model configuration is invalid")
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "factual model %s, shadow models %v: ok\n",
				snapshot.Service.FactualModelVersion, snapshot.Service.ShadowModelVersions)
			return nil
		},
	}
}
