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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelMode = "mode"

	ModeRMSE    = "rmse"
	ModeRanking = "ranking"
)

var (
	FoldSecondsVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tasteprofile",
		Subsystem: "cv",
		Name:      "fold_seconds",
	}, []string{LabelMode})
	EvaluatedUsersTotalVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasteprofile",
		Subsystem: "cv",
		Name:      "evaluated_users_total",
	}, []string{LabelMode})
	SkippedUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tasteprofile",
		Subsystem: "cv",
		Name:      "skipped_users_total",
	})
	PredictionsTotalVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasteprofile",
		Subsystem: "cv",
		Name:      "predictions_total",
	}, []string{LabelMode})
	RMSEGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tasteprofile",
		Subsystem: "cv",
		Name:      "rmse",
	})
	NDCGGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tasteprofile",
		Subsystem: "cv",
		Name:      "ndcg",
	})
	GiniGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tasteprofile",
		Subsystem: "cv",
		Name:      "gini",
	})
)
