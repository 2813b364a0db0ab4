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
	"github.com/gorse-io/tasteprofile/model/knn"
	"github.com/juju/errors"
)

var (
	ErrInvalidFolds        = errors.New("number of folds must be positive")
	ErrInvalidTopN         = errors.New("top-N must be positive")
	ErrInsufficientHistory = errors.New("user history is shorter than top-N")
)

// Config holds the parameters of cross validation.
type Config struct {
	// Folds is the number of blocks users are split into.
	Folds int
	// Neighbors is the number of neighbors used by each prediction.
	Neighbors int
	// TopN is the number of items held out and ranked per user.
	TopN int
	// Jobs is the number of users evaluated in parallel.
	Jobs int
	// SearchJobs is the number of workers used by each neighbor search.
	SearchJobs int
	// NormalizeGini divides the Gini index by the number of recommendations.
	NormalizeGini bool
	// SkipShortHistory skips users with less than TopN items instead of failing.
	SkipShortHistory bool
}

func (config *Config) validate(ranking bool) error {
	if config.Folds <= 0 {
		return errors.Annotatef(ErrInvalidFolds, "folds = %d", config.Folds)
	}
	if config.Neighbors <= 0 {
		return errors.Annotatef(knn.ErrInvalidNeighbors, "neighbors = %d", config.Neighbors)
	}
	if ranking && config.TopN <= 0 {
		return errors.Annotatef(ErrInvalidTopN, "top-N = %d", config.TopN)
	}
	return nil
}

func (config *Config) jobs() int {
	return max(config.Jobs, 1)
}

func (config *Config) searchJobs() int {
	return max(config.SearchJobs, 1)
}
