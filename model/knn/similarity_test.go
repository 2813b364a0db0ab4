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
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/stretchr/testify/assert"
)

const epsilon = 1e-9

// randomVector generates a sorted vector over items "000".."099".
func randomVector(rng *rand.Rand, maxLen int) dataset.UserVector {
	var v dataset.UserVector
	for i := 0; i < 100 && len(v) < maxLen; i++ {
		if rng.Intn(4) == 0 {
			v = append(v, dataset.Feedback{ItemId: leftPad(i), Score: rng.Intn(20) + 1})
		}
	}
	return v
}

func leftPad(i int) string {
	s := strconv.Itoa(i)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

func TestCosine(t *testing.T) {
	a := dataset.UserVector{{ItemId: "I1", Score: 5}, {ItemId: "I2", Score: 3}}
	b := dataset.UserVector{{ItemId: "I1", Score: 4}, {ItemId: "I3", Score: 2}}
	expected := 20 / (math.Sqrt(34) * math.Sqrt(20))
	assert.InDelta(t, expected, Cosine(a, b), epsilon)
	assert.InDelta(t, expected, Cosine(b, a), epsilon)
	// no common items
	assert.Zero(t, Cosine(a, dataset.UserVector{{ItemId: "I4", Score: 1}}))
	// tails count towards magnitudes
	c := dataset.UserVector{{ItemId: "I0", Score: 1}, {ItemId: "I1", Score: 5}, {ItemId: "I9", Score: 7}}
	assert.InDelta(t, 25/(math.Sqrt(34)*math.Sqrt(75)), Cosine(a, c), epsilon)
}

func TestCosineEmpty(t *testing.T) {
	a := dataset.UserVector{{ItemId: "I1", Score: 5}, {ItemId: "I2", Score: 3}}
	assert.Zero(t, Cosine(a, nil))
	assert.Zero(t, Cosine(nil, a))
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine(a, dataset.UserVector{{ItemId: "I1", Score: 0}}))
}

func TestCosineProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	for i := 0; i < 200; i++ {
		a, b := randomVector(rng, 50), randomVector(rng, 50)
		ab, ba := Cosine(a, b), Cosine(b, a)
		assert.Equal(t, ab, ba)
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
		if len(a) > 0 {
			assert.InDelta(t, 1, Cosine(a, a), epsilon)
		}
	}
}
