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
	"testing"

	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemBiased(t *testing.T) {
	catalog := exampleCatalog(t)
	// U1 is held out and queried with I2 removed
	view := catalog.Hide(0, 1)
	scores, err := ItemBiased(1)(context.Background(), view, dataset.UserVector{{ItemId: "I1", Score: 5}}, []string{"I2"}, 2)
	require.NoError(t, err)
	// neighbors are U3 (I2 = 1) and U2 (I2 = 0)
	assert.Equal(t, []float64{0.5}, scores)
}

func TestItemBiasedMultipleTargets(t *testing.T) {
	catalog := exampleCatalog(t)
	predictor := ItemBiased(2)
	scores, err := predictor(context.Background(), catalog, dataset.UserVector{{ItemId: "I1", Score: 5}}, []string{"I3", "I2", "I4"}, 1)
	require.NoError(t, err)
	// the single neighbor always has the target when any user does
	assert.Equal(t, []float64{2, 3, 0}, scores)
}

func TestSharedNeighbors(t *testing.T) {
	catalog := exampleCatalog(t)
	scores, err := SharedNeighbors(1)(context.Background(), catalog, dataset.UserVector{{ItemId: "I1", Score: 5}}, []string{"I1", "I2", "I3", "I4"}, 2)
	require.NoError(t, err)
	// neighbors are U2 and U1
	assert.Equal(t, []float64{4.5, 1.5, 1, 0}, scores)
}

func TestPredictorAllZero(t *testing.T) {
	catalog, err := dataset.NewCatalog(
		dataset.UserVector{{ItemId: "I1", Score: 2}},
		dataset.UserVector{{ItemId: "I2", Score: 7}},
	)
	require.NoError(t, err)
	for _, predictor := range []Predictor{ItemBiased(1), SharedNeighbors(1)} {
		scores, err := predictor(context.Background(), catalog, dataset.UserVector{{ItemId: "I3", Score: 1}}, []string{"I4"}, 2)
		require.NoError(t, err)
		assert.Equal(t, []float64{0}, scores)
	}
}

func TestPredictorErrors(t *testing.T) {
	empty, err := dataset.NewCatalog()
	require.NoError(t, err)
	_, err = ItemBiased(1)(context.Background(), empty, nil, []string{"I1"}, 1)
	assert.True(t, errors.Is(err, ErrEmptyCatalog))
	_, err = SharedNeighbors(1)(context.Background(), exampleCatalog(t), nil, []string{"I1"}, -1)
	assert.True(t, errors.Is(err, ErrInvalidNeighbors))
}
