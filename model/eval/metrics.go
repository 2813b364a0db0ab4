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

package eval

import (
	"math"
	"slices"
	"sort"

	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/samber/lo"
)

// DCG means Discounted Cumulative Gain. The first position is never discounted.
//
//	DCG = rel_1 + \sum^{N}_{i=2} \frac {rel_i} {\log_2(i)}
func DCG(relevances []float64) float64 {
	if len(relevances) == 0 {
		return 0
	}
	dcg := relevances[0]
	for i := 1; i < len(relevances); i++ {
		dcg += relevances[i] / math.Log2(float64(i)+1)
	}
	return dcg
}

// NDCG means Normalized Discounted Cumulative Gain. Relevance of a recommended item is
// its true score in truth, or 0 if truth has no such item. Returns 0 if every relevance
// is 0.
func NDCG(rankList []string, truth dataset.UserVector) float64 {
	relevances := lo.Map(rankList, func(itemId string, _ int) float64 {
		return float64(truth.Score(itemId))
	})
	dcg := DCG(relevances)
	sort.Sort(sort.Reverse(sort.Float64Slice(relevances)))
	idcg := DCG(relevances)
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// Gini measures how unevenly recommendations are spread over items. Counts are sorted
// ascending and ranked from 1:
//
//	G = \frac {\sum^{n}_{r=1} (2r - n - 1) s_r} {n - 1}
//
// 0 means even exposure. Returns 0 for less than two items.
func Gini(counts []int) float64 {
	n := len(counts)
	if n <= 1 {
		return 0
	}
	sorted := slices.Clone(counts)
	slices.Sort(sorted)
	var sum float64
	for i, s := range sorted {
		r := i + 1
		sum += float64(2*r-n-1) * float64(s)
	}
	return sum / float64(n-1)
}

// NormalizedGini is Gini divided by the total number of recommendations, which makes
// values comparable across datasets. Returns 0 if nothing was recommended.
func NormalizedGini(counts []int) float64 {
	total := lo.Sum(counts)
	if total == 0 {
		return 0
	}
	return Gini(counts) / float64(total)
}

// RMSE is the root of the mean squared error over n predictions. Returns 0 if n is 0.
func RMSE(sse float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Sqrt(sse / float64(n))
}
