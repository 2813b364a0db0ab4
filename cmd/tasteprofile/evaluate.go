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
	"io"
	"os"
	"time"

	"github.com/gorse-io/tasteprofile/common/log"
	"github.com/gorse-io/tasteprofile/common/progress"
	"github.com/gorse-io/tasteprofile/config"
	"github.com/gorse-io/tasteprofile/cv"
	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/gorse-io/tasteprofile/model/knn"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	evaluateBoth = iota
	evaluateRMSE
	evaluateRanking
)

var evaluateCommand = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate RMSE, nDCG and Gini by cross validation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvaluate(cmd, evaluateBoth)
	},
}

var rmseCommand = &cobra.Command{
	Use:   "rmse",
	Short: "Evaluate RMSE of the item-biased predictor by cross validation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvaluate(cmd, evaluateRMSE)
	},
}

var rankingCommand = &cobra.Command{
	Use:   "ranking",
	Short: "Evaluate nDCG and Gini of the shared-neighbors predictor by cross validation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvaluate(cmd, evaluateRanking)
	},
}

func init() {
	for _, command := range []*cobra.Command{evaluateCommand, rmseCommand, rankingCommand} {
		command.Flags().String("metrics-address", "", "address of the Prometheus endpoint (overrides config)")
		command.Flags().Bool("no-progress", false, "disable the progress bar")
		rootCommand.AddCommand(command)
	}
}

func runEvaluate(cmd *cobra.Command, mode int) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return errors.Trace(err)
	}
	if address, _ := cmd.Flags().GetString("metrics-address"); address != "" {
		conf.Metrics.Address = address
	}
	stopMetrics := serveMetrics(conf.Metrics.Address)
	defer stopMetrics()
	stopTracing, err := setupTracing(conf)
	if err != nil {
		return errors.Trace(err)
	}
	defer stopTracing()

	ctx, cancel := signalContext()
	defer cancel()
	ctx = log.WithFields(ctx, zap.String("run", uuid.NewString()), zap.String("command", cmd.Name()))
	if conf.Evaluation.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, conf.Evaluation.Timeout)
		defer cancel()
	}
	catalog, err := loadCatalog(ctx, conf)
	if err != nil {
		return errors.Trace(err)
	}

	tracer := progress.NewTracer("tasteprofile")
	ctx, span := tracer.Start(ctx, cmd.Name(), 0)
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	var stopProgress func()
	if !noProgress {
		stopProgress = showProgress(span, os.Stderr)
	}

	result, err := evaluate(ctx, catalog, conf, mode)
	if stopProgress != nil {
		stopProgress()
	}
	if err != nil {
		span.Fail(err)
		return errors.Trace(err)
	}
	span.End()
	for _, p := range tracer.List() {
		log.FromContext(ctx).Info("complete cross validation",
			zap.String("task", p.Name),
			zap.Int("n_steps", p.Count),
			zap.Duration("elapsed", p.FinishTime.Sub(p.StartTime)))
	}
	return errors.Trace(renderResult(cmd.OutOrStdout(), conf, mode, result))
}

func evaluate(ctx context.Context, catalog *dataset.Catalog, conf *config.Config, mode int) (cv.Result, error) {
	evalConfig := conf.EvalConfig()
	var (
		result cv.Result
		err    error
	)
	switch mode {
	case evaluateRMSE:
		result.RMSE, err = cv.RMSE(ctx, catalog, knn.ItemBiased(evalConfig.SearchJobs), evalConfig)
	case evaluateRanking:
		result.NDCG, result.Gini, err = cv.RankingMetrics(ctx, catalog, catalog.Items(), knn.SharedNeighbors(evalConfig.SearchJobs), evalConfig)
	default:
		result, err = cv.Evaluate(ctx, catalog, catalog.Items(), evalConfig)
	}
	return result, errors.Trace(err)
}

// showProgress renders the progress of span until the returned function is called.
func showProgress(span *progress.Span, w io.Writer) func() {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("evaluate"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("users"),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish())
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			p := span.Progress()
			if p.Total > 0 && bar.GetMax() != p.Total {
				bar.ChangeMax(p.Total)
			}
			_ = bar.Set(p.Count)
			select {
			case <-done:
				_ = bar.Finish()
				return
			case <-ticker.C:
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

func renderResult(w io.Writer, conf *config.Config, mode int, result cv.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	if mode != evaluateRanking {
		if err := table.Append([]string{"RMSE", fmt.Sprintf("%.6f", result.RMSE)}); err != nil {
			return errors.Trace(err)
		}
	}
	if mode != evaluateRMSE {
		gini := "Gini"
		if conf.Evaluation.NormalizeGini {
			gini = "Gini (normalized)"
		}
		if err := table.Append([]string{fmt.Sprintf("nDCG@%d", conf.Evaluation.TopN), fmt.Sprintf("%.6f", result.NDCG)}); err != nil {
			return errors.Trace(err)
		}
		if err := table.Append([]string{gini, fmt.Sprintf("%.6f", result.Gini)}); err != nil {
			return errors.Trace(err)
		}
	}
	return table.Render()
}
