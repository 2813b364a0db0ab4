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

package config

import (
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/tasteprofile/cv"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "TASTEPROFILE"

	// DefaultSizeHint is the number of users in the Taste Profile training triplets.
	DefaultSizeHint = 1019318
)

// Config is the configuration of tasteprofile.
type Config struct {
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Neighbors  NeighborsConfig  `mapstructure:"neighbors"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// DatasetConfig is the configuration of the interaction source. Either a triplets file
// or a database table is required.
type DatasetConfig struct {
	Path     string `mapstructure:"path" validate:"required_without=Database"`
	Database string `mapstructure:"database"`
	Table    string `mapstructure:"table" validate:"required_with=Database"`
	SizeHint int    `mapstructure:"size_hint" validate:"gte=0"`
}

type NeighborsConfig struct {
	K          int `mapstructure:"k" validate:"gt=0"`
	SearchJobs int `mapstructure:"search_jobs" validate:"gt=0"`
}

type EvaluationConfig struct {
	Folds            int           `mapstructure:"folds" validate:"gt=0"`
	TopN             int           `mapstructure:"top_n" validate:"gt=0"`
	Jobs             int           `mapstructure:"jobs" validate:"gt=0"`
	NormalizeGini    bool          `mapstructure:"normalize_gini"`
	SkipShortHistory bool          `mapstructure:"skip_short_history"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address" validate:"omitempty,hostname_port"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			SizeHint: DefaultSizeHint,
		},
		Neighbors: NeighborsConfig{
			K:          20,
			SearchJobs: 1,
		},
		Evaluation: EvaluationConfig{
			Folds: 10,
			TopN:  5,
			Jobs:  runtime.NumCPU(),
		},
		Tracing: TracingConfig{
			Exporter: "otlp",
			Sampler:  "always",
			Ratio:    1,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [dataset]
	v.SetDefault("dataset.path", defaultConfig.Dataset.Path)
	v.SetDefault("dataset.database", defaultConfig.Dataset.Database)
	v.SetDefault("dataset.table", defaultConfig.Dataset.Table)
	v.SetDefault("dataset.size_hint", defaultConfig.Dataset.SizeHint)
	// [neighbors]
	v.SetDefault("neighbors.k", defaultConfig.Neighbors.K)
	v.SetDefault("neighbors.search_jobs", defaultConfig.Neighbors.SearchJobs)
	// [evaluation]
	v.SetDefault("evaluation.folds", defaultConfig.Evaluation.Folds)
	v.SetDefault("evaluation.top_n", defaultConfig.Evaluation.TopN)
	v.SetDefault("evaluation.jobs", defaultConfig.Evaluation.Jobs)
	v.SetDefault("evaluation.normalize_gini", defaultConfig.Evaluation.NormalizeGini)
	v.SetDefault("evaluation.skip_short_history", defaultConfig.Evaluation.SkipShortHistory)
	v.SetDefault("evaluation.timeout", defaultConfig.Evaluation.Timeout)
	// [metrics]
	v.SetDefault("metrics.address", defaultConfig.Metrics.Address)
	// [tracing]
	v.SetDefault("tracing.enable_tracing", defaultConfig.Tracing.EnableTracing)
	v.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	v.SetDefault("tracing.collector_endpoint", defaultConfig.Tracing.CollectorEndpoint)
	v.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	v.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

// LoadConfig reads and validates configuration.
func LoadConfig(path string) (*Config, error) {
	config, err := ReadConfig(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return config, nil
}

// ReadConfig reads configuration from a TOML file without validation. Environment
// variables prefixed by TASTEPROFILE_ override the file, e.g. TASTEPROFILE_NEIGHBORS_K.
// An empty path reads defaults and environment variables only.
func ReadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var config Config
	if err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	return &config, nil
}

// Validate checks the configuration. Errors satisfy errors.Is(err, errors.NotValid).
func (config *Config) Validate() error {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return errors.Trace(err)
	}
	if err := validate.Struct(config); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return errors.Trace(err)
		}
		messages := lo.Values(validationErrors.Translate(trans))
		sort.Strings(messages)
		return errors.NewNotValid(errors.New(strings.Join(messages, "; ")), "invalid config")
	}
	return nil
}

// EvalConfig converts the configuration into cross validation parameters.
func (config *Config) EvalConfig() cv.Config {
	return cv.Config{
		Folds:            config.Evaluation.Folds,
		Neighbors:        config.Neighbors.K,
		TopN:             config.Evaluation.TopN,
		Jobs:             config.Evaluation.Jobs,
		SearchJobs:       config.Neighbors.SearchJobs,
		NormalizeGini:    config.Evaluation.NormalizeGini,
		SkipShortHistory: config.Evaluation.SkipShortHistory,
	}
}
