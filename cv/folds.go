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
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Fold is a contiguous block [Begin, End) of held-out users.
type Fold struct {
	Index int
	Begin int
	End   int
}

func (f Fold) Len() int {
	return f.End - f.Begin
}

// Folds splits n users into k blocks of n / k users. The last n % k users are never
// held out. Blocks are empty if k > n.
func Folds(n, k int) ([]Fold, error) {
	if k <= 0 {
		return nil, errors.Annotatef(ErrInvalidFolds, "k = %d", k)
	}
	block := max(n, 0) / k
	return lo.Times(k, func(i int) Fold {
		return Fold{Index: i, Begin: i * block, End: (i + 1) * block}
	}), nil
}

// countHeldOut returns the number of users taking part in any fold.
func countHeldOut(folds []Fold) int {
	return lo.SumBy(folds, Fold.Len)
}
