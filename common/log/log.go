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

package log

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = zap.Must(zap.NewDevelopment())

// Logger returns the process-wide logger.
func Logger() *zap.Logger {
	return logger
}

// Options configures the process-wide logger.
type Options struct {
	Debug bool
	// Path enables a rotated log file in addition to the console.
	Path       string
	MaxSize    int
	MaxAge     int
	MaxBackups int
}

// AddFlags registers logging flags on flagSet.
func AddFlags(flagSet *pflag.FlagSet) {
	flagSet.Bool("debug", false, "log fold details in a human readable format")
	flagSet.String("log-path", "", "also write logs to this file")
	flagSet.Int("log-max-size", 100, "size in megabytes before the log file is rotated")
	flagSet.Int("log-max-age", 0, "days to retain rotated log files (0 keeps all)")
	flagSet.Int("log-max-backups", 0, "number of rotated log files to retain (0 keeps all)")
}

// ParseFlags reads the flags registered by AddFlags.
func ParseFlags(flagSet *pflag.FlagSet) Options {
	var opts Options
	opts.Debug, _ = flagSet.GetBool("debug")
	opts.Path, _ = flagSet.GetString("log-path")
	opts.MaxSize, _ = flagSet.GetInt("log-max-size")
	opts.MaxAge, _ = flagSet.GetInt("log-max-age")
	opts.MaxBackups, _ = flagSet.GetInt("log-max-backups")
	return opts
}

// SetLogger replaces the process-wide logger. Logs go to stderr since reports are
// rendered on stdout.
func SetLogger(opts Options) {
	logger = newLogger(opts, os.Stderr)
}

func newLogger(opts Options, console io.Writer) *zap.Logger {
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(console)}
	if opts.Path != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSize,
			MaxAge:     opts.MaxAge,
			MaxBackups: opts.MaxBackups,
		}))
	}
	var (
		encoder zapcore.Encoder
		level   = zapcore.InfoLevel
	)
	if opts.Debug {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(cfg)
		level = zapcore.DebugLevel
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}
	return zap.New(zapcore.NewCore(encoder, zap.CombineWriteSyncers(sinks...), level))
}

type fieldsKey struct{}

// WithFields returns a context whose logger carries fields after those already in ctx.
// Evaluation runs use it to tag every line with the run and the harness mode.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	inherited, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	merged := make([]zap.Field, 0, len(inherited)+len(fields))
	merged = append(merged, inherited...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FromContext returns the process-wide logger with the fields attached to ctx.
func FromContext(ctx context.Context) *zap.Logger {
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

const mysqlPrefix = "mysql://"

// RedactDBURL masks credentials of a dataset DSN before it is logged.
func RedactDBURL(rawURL string) string {
	if dsn, ok := strings.CutPrefix(rawURL, mysqlPrefix); ok {
		parsed, err := mysql.ParseDSN(dsn)
		if err != nil {
			return rawURL
		}
		parsed.User = mask(parsed.User)
		parsed.Passwd = mask(parsed.Passwd)
		return mysqlPrefix + parsed.FormatDSN()
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.User == nil {
		return rawURL
	}
	password, _ := parsed.User.Password()
	parsed.User = url.UserPassword(mask(parsed.User.Username()), mask(password))
	return parsed.String()
}

func mask(s string) string {
	return strings.Repeat("x", len(s))
}

// GetErrorHandler reports OpenTelemetry exporter failures through the logger.
func GetErrorHandler() otel.ErrorHandler {
	return otel.ErrorHandlerFunc(func(err error) {
		logger.Warn("failed to export traces", zap.Error(err))
	})
}
