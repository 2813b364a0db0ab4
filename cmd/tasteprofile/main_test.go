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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/tasteprofile/common/heap"
	"github.com/gorse-io/tasteprofile/config"
	"github.com/gorse-io/tasteprofile/cv"
	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triplets = "U_A\tS1\t5\n" +
	"U_A\tS2\t3\n" +
	"U_B\tS1\t4\n" +
	"U_B\tS3\t2\n" +
	"U_C\tS2\t1\n" +
	"U_D\tS1\t2\n" +
	"U_D\tS2\t2\n" +
	"U_D\tS3\t1\n"

func writeTriplets(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "triplets.txt")
	require.NoError(t, os.WriteFile(path, []byte(triplets), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	var buf bytes.Buffer
	rootCommand.SetOut(&buf)
	rootCommand.SetArgs(args)
	err := rootCommand.Execute()
	return buf.String(), err
}

func exampleCatalog(t *testing.T) *dataset.Catalog {
	catalog, err := dataset.NewCatalog(
		dataset.UserVector{{ItemId: "I1", Score: 5}, {ItemId: "I2", Score: 3}},
		dataset.UserVector{{ItemId: "I1", Score: 4}, {ItemId: "I3", Score: 2}},
		dataset.UserVector{{ItemId: "I2", Score: 1}},
	)
	require.NoError(t, err)
	return catalog
}

func TestPredict(t *testing.T) {
	catalog := exampleCatalog(t)
	p, err := predict(context.Background(), catalog, "0", "I2", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, prediction{UserId: "0", ItemId: "I2", Expected: 3, Known: true, Predicted: 0.5}, p)

	// the last item of the last user by default
	p, err = predict(context.Background(), catalog, "", "", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, prediction{UserId: "2", ItemId: "I2", Expected: 1, Known: true, Predicted: 1.5}, p)

	// unknown item
	p, err = predict(context.Background(), catalog, "1", "I4", 2, 1)
	require.NoError(t, err)
	assert.False(t, p.Known)
	assert.Zero(t, p.Predicted)

	_, err = predict(context.Background(), catalog, "9", "I1", 2, 1)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestSummarize(t *testing.T) {
	s := summarize(exampleCatalog(t), 3)
	assert.Equal(t, 3, s.Users)
	assert.Equal(t, 3, s.Items)
	assert.Equal(t, 5, s.Feedback)
	assert.Equal(t, 15, s.TotalPlayCount)
	assert.Equal(t, 2, s.MaxHistory)
	assert.Zero(t, s.EmptyUsers)
	assert.InDelta(t, 5.0/3.0, s.MeanHistory, 1e-9)
	assert.Equal(t, []heap.Elem[string, int]{{Value: "I1", Weight: 2}, {Value: "I2", Weight: 2}, {Value: "I3", Weight: 1}}, s.PopularItems)
}

func TestPopularItems(t *testing.T) {
	popularity := map[string]int{"S4": 1, "S3": 7, "S1": 7, "S2": 7, "S0": 2}
	for i := 0; i < 20; i++ {
		assert.Equal(t, []heap.Elem[string, int]{{Value: "S1", Weight: 7}, {Value: "S2", Weight: 7}, {Value: "S3", Weight: 7}, {Value: "S0", Weight: 2}},
			popularItems(popularity, 4))
	}
	assert.Len(t, popularItems(popularity, 10), 5)
	assert.Empty(t, popularItems(popularity, 0))
}

func TestNewPredictRequest(t *testing.T) {
	conf := config.GetDefaultConfig()
	conf.Neighbors.SearchJobs = 3
	conf.Evaluation.Jobs = 8

	flagSet := pflag.NewFlagSet("predict", pflag.ContinueOnError)
	addPredictFlags(flagSet)
	require.NoError(t, flagSet.Parse(nil))
	assert.Equal(t, predictRequest{Neighbors: 20, SearchJobs: 3}, newPredictRequest(flagSet, conf))

	flagSet = pflag.NewFlagSet("predict", pflag.ContinueOnError)
	addPredictFlags(flagSet)
	require.NoError(t, flagSet.Parse([]string{"-u", "U_A", "-i", "S2", "-k", "5"}))
	assert.Equal(t, predictRequest{UserId: "U_A", ItemId: "S2", Neighbors: 5, SearchJobs: 3}, newPredictRequest(flagSet, conf))
}

func TestRenderResult(t *testing.T) {
	var buf bytes.Buffer
	conf := config.GetDefaultConfig()
	require.NoError(t, renderResult(&buf, conf, evaluateBoth, cv.Result{RMSE: 1.25, NDCG: 0.5, Gini: 2}))
	assert.Contains(t, buf.String(), "RMSE")
	assert.Contains(t, buf.String(), "1.250000")
	assert.Contains(t, buf.String(), "nDCG@5")
	assert.Contains(t, buf.String(), "0.500000")
	assert.Contains(t, buf.String(), "2.000000")

	buf.Reset()
	require.NoError(t, renderResult(&buf, conf, evaluateRMSE, cv.Result{RMSE: 1.25}))
	assert.NotContains(t, buf.String(), "nDCG")
}

func TestStatsCommand(t *testing.T) {
	output, err := execute(t, "stats", "--dataset", writeTriplets(t), "--top", "2")
	require.NoError(t, err)
	assert.Contains(t, output, "Interactions")
	assert.Contains(t, output, "S1")
	assert.Contains(t, output, "S2")
}

func TestPredictCommand(t *testing.T) {
	output, err := execute(t, "predict", "--dataset", writeTriplets(t), "--user", "U_A", "--item", "S2", "-k", "2")
	require.NoError(t, err)
	assert.Contains(t, output, "U_A")
	assert.Contains(t, output, "1.5000")
}

func TestEvaluateCommand(t *testing.T) {
	t.Setenv("TASTEPROFILE_EVALUATION_FOLDS", "2")
	t.Setenv("TASTEPROFILE_EVALUATION_TOP_N", "1")
	t.Setenv("TASTEPROFILE_NEIGHBORS_K", "2")
	output, err := execute(t, "evaluate", "--dataset", writeTriplets(t), "--jobs", "2", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, output, "RMSE")
	assert.Contains(t, output, "nDCG@1")
}

func TestEvaluateCommandInvalidConfig(t *testing.T) {
	t.Setenv("TASTEPROFILE_EVALUATION_FOLDS", "0")
	_, err := execute(t, "rmse", "--dataset", writeTriplets(t), "--no-progress")
	assert.True(t, errors.Is(err, errors.NotValid))
}
