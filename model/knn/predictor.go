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

package knn

import (
	"context"

	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/juju/errors"
)

// Predictor predicts scores of targets for a user whose known feedback is query.
// Scores are aligned with targets.
type Predictor func(ctx context.Context, users dataset.Users, query dataset.UserVector, targets []string, k int) ([]float64, error)

// ItemBiased searches neighbors once per target, preferring users who have feedback
// on the target. It suits single item prediction (RMSE).
func ItemBiased(jobs int) Predictor {
	return func(ctx context.Context, users dataset.Users, query dataset.UserVector, targets []string, k int) ([]float64, error) {
		scores := make([]float64, len(targets))
		for i, target := range targets {
			neighbors, err := SelectTopK(ctx, users, query, k, target, jobs)
			if err != nil {
				return nil, errors.Trace(err)
			}
			scores[i] = meanScore(users, neighbors, target)
		}
		return scores, nil
	}
}

// SharedNeighbors searches neighbors once and predicts every target from the same
// neighborhood. It suits top-N ranking.
func SharedNeighbors(jobs int) Predictor {
	return func(ctx context.Context, users dataset.Users, query dataset.UserVector, targets []string, k int) ([]float64, error) {
		neighbors, err := SelectTopK(ctx, users, query, k, NoBias, jobs)
		if err != nil {
			return nil, errors.Trace(err)
		}
		scores := make([]float64, len(targets))
		for i, target := range targets {
			scores[i] = meanScore(users, neighbors, target)
		}
		return scores, nil
	}
}

// meanScore averages the scores of neighbors on itemId. Missing feedback counts as 0.
func meanScore(users dataset.Users, neighbors []Neighbor, itemId string) float64 {
	if len(neighbors) == 0 {
		return 0
	}
	sum := 0
	for _, neighbor := range neighbors {
		sum += users.User(neighbor.Index).Score(itemId)
	}
	return float64(sum) / float64(len(neighbors))
}
