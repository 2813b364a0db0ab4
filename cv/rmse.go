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

package cv

import (
	"context"
	"time"

	"github.com/gorse-io/tasteprofile/common/log"
	"github.com/gorse-io/tasteprofile/common/parallel"
	"github.com/gorse-io/tasteprofile/common/progress"
	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/gorse-io/tasteprofile/model/eval"
	"github.com/gorse-io/tasteprofile/model/knn"
	"github.com/juju/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RMSE evaluates predictor by k-fold cross validation. Every interaction of every
// held-out user is predicted from the rest of that user's history, with the users of
// the current fold hidden from the neighbor search.
func RMSE(ctx context.Context, catalog *dataset.Catalog, predictor knn.Predictor, config Config) (float64, error) {
	if err := config.validate(false); err != nil {
		return 0, errors.Trace(err)
	}
	folds, err := Folds(catalog.Count(), config.Folds)
	if err != nil {
		return 0, errors.Trace(err)
	}
	ctx, span := tracer.Start(ctx, "RMSE")
	defer span.End()
	ctx, progressSpan := progress.Start(ctx, ModeRMSE, countHeldOut(folds))
	ctx = log.WithFields(ctx, zap.String(LabelMode, ModeRMSE))

	var (
		sse   float64
		count int
	)
	for _, fold := range folds {
		foldSSE, foldCount, err := rmseFold(ctx, catalog, predictor, config, fold, progressSpan)
		if err != nil {
			progressSpan.Fail(err)
			return 0, errors.Trace(err)
		}
		sse += foldSSE
		count += foldCount
	}
	progressSpan.End()
	score := eval.RMSE(sse, count)
	RMSEGauge.Set(score)
	span.SetAttributes(attribute.Float64("rmse", score), attribute.Int("predictions", count))
	log.FromContext(ctx).Info("complete RMSE cross validation",
		zap.Int("n_folds", len(folds)),
		zap.Int("n_predictions", count),
		zap.Float64("rmse", score))
	return score, nil
}

func rmseFold(ctx context.Context, catalog *dataset.Catalog, predictor knn.Predictor, config Config, fold Fold, progressSpan *progress.Span) (float64, int, error) {
	ctx, span := tracer.Start(ctx, "RMSE fold")
	defer span.End()
	span.SetAttributes(attribute.Int("fold", fold.Index), attribute.Int("users", fold.Len()))
	start := time.Now()

	view := catalog.Hide(fold.Begin, fold.End)
	jobs := config.jobs()
	partSSE := make([]float64, jobs)
	partCount := make([]int, jobs)
	err := parallel.Parallel(ctx, fold.Len(), jobs, func(workerId, jobId int) error {
		user := catalog.User(fold.Begin + jobId)
		target := make([]string, 1)
		for j := range user {
			target[0] = user[j].ItemId
			scores, err := predictor(ctx, view, user.Without(j), target, config.Neighbors)
			if err != nil {
				return errors.Trace(err)
			}
			diff := scores[0] - float64(user[j].Score)
			partSSE[workerId] += diff * diff
			partCount[workerId]++
		}
		progressSpan.Add(1)
		return nil
	})
	if err != nil {
		return 0, 0, errors.Trace(err)
	}

	var (
		sse   float64
		count int
	)
	for i := 0; i < jobs; i++ {
		sse += partSSE[i]
		count += partCount[i]
	}
	elapsed := time.Since(start)
	FoldSecondsVec.WithLabelValues(ModeRMSE).Set(elapsed.Seconds())
	EvaluatedUsersTotalVec.WithLabelValues(ModeRMSE).Add(float64(fold.Len()))
	PredictionsTotalVec.WithLabelValues(ModeRMSE).Add(float64(count))
	log.FromContext(ctx).Debug("complete RMSE fold",
		zap.Int("fold", fold.Index),
		zap.Int("n_users", fold.Len()),
		zap.Int("n_predictions", count),
		zap.Duration("elapsed", elapsed))
	return sse, count, nil
}
