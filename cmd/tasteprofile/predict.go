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
	"context"
	"fmt"
	"io"

	"github.com/gorse-io/tasteprofile/config"
	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/gorse-io/tasteprofile/model/knn"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var predictCommand = &cobra.Command{
	Use:   "predict",
	Short: "Predict the play count of a user for an item.",
	Long: "Predict the play count of a user for an item from the most similar users. The user is " +
		"hidden from the neighbor search and its own feedback on the item is removed. By default the " +
		"last item of the last user is predicted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		ctx, cancel := signalContext()
		defer cancel()
		catalog, err := loadCatalog(ctx, conf)
		if err != nil {
			return errors.Trace(err)
		}
		request := newPredictRequest(cmd.Flags(), conf)
		prediction, err := predict(ctx, catalog, request.UserId, request.ItemId, request.Neighbors, request.SearchJobs)
		if err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(prediction.render(cmd.OutOrStdout()))
	},
}

func init() {
	addPredictFlags(predictCommand.Flags())
	rootCommand.AddCommand(predictCommand)
}

func addPredictFlags(flagSet *pflag.FlagSet) {
	flagSet.StringP("user", "u", "", "user id (default is the last user)")
	flagSet.StringP("item", "i", "", "item id (default is the last item of the user)")
	flagSet.IntP("neighbors", "k", 0, "number of neighbors (overrides config)")
}

type predictRequest struct {
	UserId     string
	ItemId     string
	Neighbors  int
	SearchJobs int
}

// newPredictRequest resolves predict flags against the config. A single prediction
// is one neighbor search, so it runs with the search workers of [neighbors].
func newPredictRequest(flagSet *pflag.FlagSet, conf *config.Config) predictRequest {
	request := predictRequest{
		Neighbors:  conf.Neighbors.K,
		SearchJobs: conf.Neighbors.SearchJobs,
	}
	request.UserId, _ = flagSet.GetString("user")
	request.ItemId, _ = flagSet.GetString("item")
	if k, _ := flagSet.GetInt("neighbors"); k > 0 {
		request.Neighbors = k
	}
	return request
}

type prediction struct {
	UserId    string
	ItemId    string
	Expected  int
	Known     bool
	Predicted float64
}

func predict(ctx context.Context, catalog *dataset.Catalog, userId, itemId string, k, jobs int) (prediction, error) {
	if catalog.Count() == 0 {
		return prediction{}, errors.Trace(knn.ErrEmptyCatalog)
	}
	userIndex := catalog.Count() - 1
	if userId != "" {
		if userIndex = catalog.UserIndex(userId); userIndex == dataset.NotId {
			return prediction{}, errors.NotFoundf("user %s", userId)
		}
	}
	user := catalog.User(userIndex)
	if itemId == "" {
		if len(user) == 0 {
			return prediction{}, errors.NotValidf("user %s without feedback", catalog.UserId(userIndex))
		}
		itemId = user[len(user)-1].ItemId
	}
	result := prediction{UserId: catalog.UserId(userIndex), ItemId: itemId}
	query := user
	if i, ok := user.Find(itemId); ok {
		result.Expected, result.Known = user[i].Score, true
		query = user.Without(i)
	}
	scores, err := knn.ItemBiased(jobs)(ctx, catalog.Hide(userIndex, userIndex+1), query, []string{itemId}, k)
	if err != nil {
		return prediction{}, errors.Trace(err)
	}
	result.Predicted = scores[0]
	return result, nil
}

func (p prediction) render(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("User", "Item", "Expected", "Predicted")
	expected := "-"
	if p.Known {
		expected = fmt.Sprint(p.Expected)
	}
	if err := table.Append([]string{p.UserId, p.ItemId, expected, fmt.Sprintf("%.4f", p.Predicted)}); err != nil {
		return errors.Trace(err)
	}
	return table.Render()
}
