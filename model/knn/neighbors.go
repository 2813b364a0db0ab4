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

	"github.com/gorse-io/tasteprofile/common/heap"
	"github.com/gorse-io/tasteprofile/common/parallel"
	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/juju/errors"
)

var (
	ErrEmptyCatalog     = errors.New("no users to search neighbors from")
	ErrInvalidNeighbors = errors.New("number of neighbors must be positive")
)

// NoBias selects neighbors by similarity only.
const NoBias = ""

// Neighbor is a candidate user selected for a query.
type Neighbor struct {
	Index      int
	Similarity float64
}

type neighborFilter = heap.TopKFilter[Neighbor, float64]

// partialTopK keeps the best candidates of one chunk of users. Users containing the
// bias item are kept apart from the others since they always rank first.
type partialTopK struct {
	biased *neighborFilter
	others *neighborFilter
}

// SelectTopK returns the k users most similar to query, best first. If bias is not
// NoBias, users who have feedback on bias rank above users who don't, and similarity
// orders users inside each group. k is clamped to the number of users.
//
// Similarities are computed by jobs workers over contiguous chunks of users, each
// worker keeping its own top-k. Partial results are merged once all workers finish.
func SelectTopK(ctx context.Context, users dataset.Users, query dataset.UserVector, k int, bias string, jobs int) ([]Neighbor, error) {
	n := users.Count()
	if n == 0 {
		return nil, errors.Trace(ErrEmptyCatalog)
	}
	if k <= 0 {
		return nil, errors.Annotatef(ErrInvalidNeighbors, "k = %d", k)
	}
	k = min(k, n)
	chunks := parallel.SplitRange(n, jobs)
	partials := make([]partialTopK, len(chunks))
	err := parallel.Parallel(ctx, len(chunks), jobs, func(_, jobId int) error {
		partial := partialTopK{
			biased: heap.NewTopKFilter[Neighbor, float64](k),
			others: heap.NewTopKFilter[Neighbor, float64](k),
		}
		for i := chunks[jobId].Begin; i < chunks[jobId].End; i++ {
			user := users.User(i)
			similarity := Cosine(query, user)
			candidate := Neighbor{Index: i, Similarity: similarity}
			if bias != NoBias && user.Contains(bias) {
				partial.biased.Push(candidate, similarity)
			} else {
				partial.others.Push(candidate, similarity)
			}
		}
		partials[jobId] = partial
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	// merge partial results
	biased := heap.NewTopKFilter[Neighbor, float64](k)
	others := heap.NewTopKFilter[Neighbor, float64](k)
	for _, partial := range partials {
		biased.Merge(partial.biased)
		others.Merge(partial.others)
	}
	neighbors := make([]Neighbor, 0, k)
	for _, elem := range biased.PopAll() {
		neighbors = append(neighbors, elem.Value)
	}
	for _, elem := range others.PopAll() {
		if len(neighbors) == k {
			break
		}
		neighbors = append(neighbors, elem.Value)
	}
	return neighbors, nil
}
