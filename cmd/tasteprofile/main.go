// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorse-io/tasteprofile/cmd/version"
	"github.com/gorse-io/tasteprofile/common/log"
	"github.com/gorse-io/tasteprofile/config"
	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/gorse-io/tasteprofile/storage"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const pingTimeout = time.Minute

var rootCommand = &cobra.Command{
	Use:   "tasteprofile",
	Short: "Neighbor based play count prediction and evaluation.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetLogger(log.ParseFlags(cmd.Flags()))
		otel.SetErrorHandler(log.GetErrorHandler())
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print build information.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().StringP("dataset", "d", "", "triplets file path (overrides config)")
	rootCommand.PersistentFlags().IntP("jobs", "j", 0, "number of users evaluated in parallel (overrides config)")
	rootCommand.AddCommand(versionCommand)
}

// loadConfig loads the configuration and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.ReadConfig(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if path, _ := cmd.Flags().GetString("dataset"); path != "" {
		conf.Dataset.Path = path
		conf.Dataset.Database = ""
	}
	if jobs, _ := cmd.Flags().GetInt("jobs"); jobs > 0 {
		conf.Evaluation.Jobs = jobs
	}
	if err = conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return conf, nil
}

// loadCatalog loads the catalog from a database if configured, otherwise from a file.
func loadCatalog(ctx context.Context, conf *config.Config) (*dataset.Catalog, error) {
	if conf.Dataset.Database != "" {
		log.FromContext(ctx).Info("load dataset from database",
			zap.String("database", log.RedactDBURL(conf.Dataset.Database)),
			zap.String("table", conf.Dataset.Table))
		db, err := storage.Open(conf.Dataset.Database)
		if err != nil {
			return nil, errors.Trace(err)
		}
		defer db.Close()
		if err = storage.Ping(ctx, db, pingTimeout); err != nil {
			return nil, errors.Trace(err)
		}
		return dataset.LoadDatabase(ctx, db, conf.Dataset.Table, conf.Dataset.SizeHint)
	}
	log.FromContext(ctx).Info("load dataset from file", zap.String("path", conf.Dataset.Path))
	return dataset.LoadTripletsFile(conf.Dataset.Path, conf.Dataset.SizeHint)
}

// setupTracing installs the global tracer provider. The returned function flushes spans.
func setupTracing(conf *config.Config) (func(), error) {
	tp, err := conf.Tracing.NewTracerProvider()
	if err != nil {
		return nil, errors.Trace(err)
	}
	otel.SetTracerProvider(tp)
	return func() {
		if shutdown, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			if err := shutdown.Shutdown(context.Background()); err != nil {
				log.Logger().Error("failed to shutdown tracer provider", zap.Error(err))
			}
		}
	}, nil
}

// serveMetrics starts the Prometheus endpoint. The returned function stops it.
func serveMetrics(address string) func() {
	if address == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: address, Handler: mux}
	go func() {
		log.Logger().Info("start prometheus endpoint", zap.String("address", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger().Error("failed to serve prometheus endpoint", zap.Error(err))
		}
	}()
	return func() {
		if err := server.Shutdown(context.Background()); err != nil {
			log.Logger().Error("failed to stop prometheus endpoint", zap.Error(err))
		}
	}
}

// signalContext is canceled on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	defer func() { _ = log.Logger().Sync() }()
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
