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
	"strings"

	"github.com/gorse-io/tasteprofile/dataset"
)

// Cosine computes the cosine similarity between a pair of user vectors. Both vectors
// must be sorted by item id; common items are found by a single linear merge.
//
//	cos(a, b) = \frac{\sum_{i \in a \cap b} a_i b_i}{\sqrt{\sum_{i \in a} a_i^2} \sqrt{\sum_{i \in b} b_i^2}}
//
// Empty vectors (or vectors with only zero scores) carry no signal and get 0.
func Cosine(a, b dataset.UserVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var sumA, sumB, dot float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch c := strings.Compare(a[i].ItemId, b[j].ItemId); {
		case c == 0:
			x, y := float64(a[i].Score), float64(b[j].Score)
			sumA += x * x
			sumB += y * y
			dot += x * y
			i++
			j++
		case c < 0:
			x := float64(a[i].Score)
			sumA += x * x
			i++
		default:
			y := float64(b[j].Score)
			sumB += y * y
			j++
		}
	}
	for ; i < len(a); i++ {
		x := float64(a[i].Score)
		sumA += x * x
	}
	for ; j < len(b); j++ {
		y := float64(b[j].Score)
		sumB += y * y
	}
	if dot == 0 || sumA == 0 || sumB == 0 {
		return 0
	}
	return math.Min(dot/math.Sqrt(sumA*sumB), 1)
}
