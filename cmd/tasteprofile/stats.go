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
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/gorse-io/tasteprofile/common/heap"
	"github.com/gorse-io/tasteprofile/dataset"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var statsCommand = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the dataset.",
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
		top, _ := cmd.Flags().GetInt("top")
		return errors.Trace(summarize(catalog, top).render(cmd.OutOrStdout()))
	},
}

func init() {
	statsCommand.Flags().IntP("top", "n", 10, "number of most popular items")
	rootCommand.AddCommand(statsCommand)
}

type summary struct {
	Users          int
	Items          int
	Feedback       int
	MeanHistory    float64
	PopularItems   []heap.Elem[string, int]
	EmptyUsers     int
	MaxHistory     int
	TotalPlayCount int
}

func summarize(catalog *dataset.Catalog, top int) summary {
	s := summary{
		Users:    catalog.Count(),
		Items:    catalog.CountItems(),
		Feedback: catalog.CountFeedback(),
	}
	if s.Users > 0 {
		s.MeanHistory = float64(s.Feedback) / float64(s.Users)
	}
	for i := 0; i < catalog.Count(); i++ {
		user := catalog.User(i)
		if len(user) == 0 {
			s.EmptyUsers++
		}
		s.MaxHistory = max(s.MaxHistory, len(user))
		for _, f := range user {
			s.TotalPlayCount += f.Score
		}
	}
	s.PopularItems = popularItems(catalog.ItemPopularity(), top)
	return s
}

// popularItems returns the top most popular items. Items with equal popularity are
// ordered by id.
func popularItems(popularity map[string]int, top int) []heap.Elem[string, int] {
	items := lo.MapToSlice(popularity, func(itemId string, count int) heap.Elem[string, int] {
		return heap.Elem[string, int]{Value: itemId, Weight: count}
	})
	slices.SortFunc(items, func(a, b heap.Elem[string, int]) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	return items[:min(max(top, 0), len(items))]
}

func (s summary) render(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Statistic", "Value")
	rows := [][]string{
		{"Users", strconv.Itoa(s.Users)},
		{"Items", strconv.Itoa(s.Items)},
		{"Interactions", strconv.Itoa(s.Feedback)},
		{"Play count", strconv.Itoa(s.TotalPlayCount)},
		{"Mean history", fmt.Sprintf("%.2f", s.MeanHistory)},
		{"Max history", strconv.Itoa(s.MaxHistory)},
		{"Users without history", strconv.Itoa(s.EmptyUsers)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	if err := table.Render(); err != nil {
		return errors.Trace(err)
	}
	if len(s.PopularItems) == 0 {
		return nil
	}
	table = tablewriter.NewWriter(w)
	table.Header("#", "Item", "Users")
	for i, item := range s.PopularItems {
		if err := table.Append([]string{strconv.Itoa(i + 1), item.Value, strconv.Itoa(item.Weight)}); err != nil {
			return errors.Trace(err)
		}
	}
	return table.Render()
}
