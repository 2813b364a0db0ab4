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
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/tasteprofile/common/log"
	"github.com/gorse-io/tasteprofile/common/parallel"
	"github.com/gorse-io/tasteprofile/common/progress"
	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/gorse-io/tasteprofile/model/eval"
	"github.com/gorse-io/tasteprofile/model/knn"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// rankingPart accumulates the results of one worker.
type rankingPart struct {
	ndcg    float64
	users   int
	skipped int
	counter *eval.RecommendationCounter
}

// RankingMetrics evaluates predictor by k-fold cross validation on top-N ranking. The
// last TopN items of each held-out user are ranked by predicted score using the rest
// of the history. It returns the mean nDCG over evaluated users and the Gini index of
// recommendation counts over every item in items.
func RankingMetrics(ctx context.Context, catalog *dataset.Catalog, items mapset.Set[string], predictor knn.Predictor, config Config) (float64, float64, error) {
	if err := config.validate(true); err != nil {
		return 0, 0, errors.Trace(err)
	}
	folds, err := Folds(catalog.Count(), config.Folds)
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	ctx, span := tracer.Start(ctx, "RankingMetrics")
	defer span.End()
	ctx, progressSpan := progress.Start(ctx, ModeRanking, countHeldOut(folds))
	ctx = log.WithFields(ctx, zap.String(LabelMode, ModeRanking))

	var (
		ndcg    float64
		users   int
		skipped int
	)
	counter := eval.NewRecommendationCounter(items)
	for _, fold := range folds {
		part, err := rankingFold(ctx, catalog, predictor, config, fold, progressSpan)
		if err != nil {
			progressSpan.Fail(err)
			return 0, 0, errors.Trace(err)
		}
		ndcg += part.ndcg
		users += part.users
		skipped += part.skipped
		counter.Merge(part.counter)
	}
	progressSpan.End()

	var meanNDCG float64
	if users > 0 {
		meanNDCG = ndcg / float64(users)
	}
	gini := counter.Gini(config.NormalizeGini)
	NDCGGauge.Set(meanNDCG)
	GiniGauge.Set(gini)
	span.SetAttributes(
		attribute.Float64("ndcg", meanNDCG),
		attribute.Float64("gini", gini),
		attribute.Int("users", users))
	log.FromContext(ctx).Info("complete ranking cross validation",
		zap.Int("n_folds", len(folds)),
		zap.Int("n_users", users),
		zap.Int("n_skipped", skipped),
		zap.Int("n_items", counter.Len()),
		zap.Float64("ndcg", meanNDCG),
		zap.Float64("gini", gini))
	return meanNDCG, gini, nil
}

func rankingFold(ctx context.Context, catalog *dataset.Catalog, predictor knn.Predictor, config Config, fold Fold, progressSpan *progress.Span) (rankingPart, error) {
	ctx, span := tracer.Start(ctx, "RankingMetrics fold")
	defer span.End()
	span.SetAttributes(attribute.Int("fold", fold.Index), attribute.Int("users", fold.Len()))
	start := time.Now()

	view := catalog.Hide(fold.Begin, fold.End)
	jobs := config.jobs()
	parts := lo.Times(jobs, func(_ int) rankingPart {
		return rankingPart{counter: eval.NewRecommendationCounter(mapset.NewThreadUnsafeSet[string]())}
	})
	err := parallel.Parallel(ctx, fold.Len(), jobs, func(workerId, jobId int) error {
		defer progressSpan.Add(1)
		userIndex := fold.Begin + jobId
		user := catalog.User(userIndex)
		if len(user) < config.TopN {
			if config.SkipShortHistory {
				parts[workerId].skipped++
				return nil
			}
			return errors.Annotatef(ErrInsufficientHistory, "user %s has %d items, top-N = %d",
				catalog.UserId(userIndex), len(user), config.TopN)
		}
		split := len(user) - config.TopN
		history, truth := user[:split], user[split:]
		targets := truth.ItemIds()
		scores, err := predictor(ctx, view, history, targets, config.Neighbors)
		if err != nil {
			return errors.Trace(err)
		}
		order := lo.Range(len(targets))
		sort.SliceStable(order, func(i, j int) bool {
			return scores[order[i]] > scores[order[j]]
		})
		rankList := lo.Map(order, func(i int, _ int) string {
			return targets[i]
		})
		parts[workerId].counter.Add(rankList...)
		parts[workerId].ndcg += eval.NDCG(rankList, user)
		parts[workerId].users++
		return nil
	})
	if err != nil {
		return rankingPart{}, errors.Trace(err)
	}

	merged := parts[0]
	for _, part := range parts[1:] {
		merged.ndcg += part.ndcg
		merged.users += part.users
		merged.skipped += part.skipped
		merged.counter.Merge(part.counter)
	}
	elapsed := time.Since(start)
	FoldSecondsVec.WithLabelValues(ModeRanking).Set(elapsed.Seconds())
	EvaluatedUsersTotalVec.WithLabelValues(ModeRanking).Add(float64(merged.users))
	PredictionsTotalVec.WithLabelValues(ModeRanking).Add(float64(merged.users * config.TopN))
	SkippedUsersTotal.Add(float64(merged.skipped))
	log.FromContext(ctx).Debug("complete ranking fold",
		zap.Int("fold", fold.Index),
		zap.Int("n_users", merged.users),
		zap.Int("n_skipped", merged.skipped),
		zap.Duration("elapsed", elapsed))
	return merged, nil
}
