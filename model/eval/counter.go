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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
)

// RecommendationCounter counts how many times each item has been recommended. It is not
// safe for concurrent use; workers keep their own counters and merge them.
type RecommendationCounter struct {
	counts map[string]int
}

// NewRecommendationCounter creates a counter with every item of the catalog at 0.
func NewRecommendationCounter(items mapset.Set[string]) *RecommendationCounter {
	counter := &RecommendationCounter{counts: make(map[string]int, items.Cardinality())}
	items.Each(func(itemId string) bool {
		counter.counts[itemId] = 0
		return false
	})
	return counter
}

// Add counts one recommendation of each item.
func (c *RecommendationCounter) Add(itemIds ...string) {
	for _, itemId := range itemIds {
		c.counts[itemId]++
	}
}

// Merge adds the counts of other into c.
func (c *RecommendationCounter) Merge(other *RecommendationCounter) {
	for itemId, count := range other.counts {
		c.counts[itemId] += count
	}
}

// Len returns the number of counted items, recommended or not.
func (c *RecommendationCounter) Len() int {
	return len(c.counts)
}

// Counts returns all counts in no particular order.
func (c *RecommendationCounter) Counts() []int {
	return lo.Values(c.counts)
}

// Gini computes the Gini index over all counted items.
func (c *RecommendationCounter) Gini(normalize bool) float64 {
	if normalize {
		return NormalizedGini(c.Counts())
	}
	return Gini(c.Counts())
}
