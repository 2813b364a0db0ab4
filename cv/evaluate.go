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
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/tasteprofile/common/log"
	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/gorse-io/tasteprofile/model/knn"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Result is the outcome of a full evaluation.
type Result struct {
	RMSE float64
	NDCG float64
	Gini float64
}

// Evaluate runs RMSE cross validation with the item-biased predictor and ranking cross
// validation with the shared-neighbors predictor at the same time. Both only read the
// catalog.
func Evaluate(ctx context.Context, catalog *dataset.Catalog, items mapset.Set[string], config Config) (Result, error) {
	if err := config.validate(true); err != nil {
		return Result{}, errors.Trace(err)
	}
	ctx, span := tracer.Start(ctx, "Evaluate")
	defer span.End()
	start := time.Now()

	var (
		result     Result
		rmseErr    error
		rankingErr error
		wg         sync.WaitGroup
	)
	wg.Go(func() {
		result.RMSE, rmseErr = RMSE(ctx, catalog, knn.ItemBiased(config.searchJobs()), config)
	})
	wg.Go(func() {
		result.NDCG, result.Gini, rankingErr = RankingMetrics(ctx, catalog, items, knn.SharedNeighbors(config.searchJobs()), config)
	})
	wg.Wait()
	if rmseErr != nil {
		return Result{}, errors.Trace(rmseErr)
	}
	if rankingErr != nil {
		return Result{}, errors.Trace(rankingErr)
	}
	log.FromContext(ctx).Info("complete evaluation",
		zap.Float64("rmse", result.RMSE),
		zap.Float64("ndcg", result.NDCG),
		zap.Float64("gini", result.Gini),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}
