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

package storage

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/cenkalti/backoff/v5"
	"github.com/go-sql-driver/mysql"
	"github.com/gorse-io/tasteprofile/common/log"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	MySQLPrefix      = "mysql://"
	PostgresPrefix   = "postgres://"
	PostgreSQLPrefix = "postgresql://"
	SQLitePrefix     = "sqlite://"
)

// Open connects to the database holding feedback. Supported DSNs are prefixed by
// mysql://, postgres://, postgresql:// or sqlite://. Queries are traced by OpenTelemetry.
func Open(dsn string) (*sql.DB, error) {
	var err error
	if strings.HasPrefix(dsn, MySQLPrefix) {
		name := dsn[len(MySQLPrefix):]
		if name, err = AppendMySQLParams(name, map[string]string{
			"transaction_isolation": "'READ-UNCOMMITTED'",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		db, err := otelsql.Open("mysql", name,
			otelsql.WithAttributes(semconv.DBSystemMySQL),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return db, nil
	} else if strings.HasPrefix(dsn, PostgresPrefix) || strings.HasPrefix(dsn, PostgreSQLPrefix) {
		db, err := otelsql.Open("postgres", dsn,
			otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return db, nil
	} else if strings.HasPrefix(dsn, SQLitePrefix) {
		// append parameters
		if dsn, err = AppendURLParams(dsn, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "query_only(true)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		name := dsn[len(SQLitePrefix):]
		db, err := otelsql.Open("sqlite", name,
			otelsql.WithAttributes(semconv.DBSystemSqlite),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return db, nil
	}
	return nil, errors.Errorf("unknown database: %s", dsn)
}

// Ping waits until the database is reachable or maxElapsedTime has passed.
func Ping(ctx context.Context, db *sql.DB, maxElapsedTime time.Duration) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.FromContext(ctx).Warn("failed to ping database", zap.Error(err), zap.Duration("retry_after", next))
		}))
	return errors.Trace(err)
}

func AppendURLParams(rawURL string, params []lo.Tuple2[string, string]) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Trace(err)
	}
	q := parsed.Query()
	for _, tuple := range params {
		q.Add(tuple.A, tuple.B)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// AppendMySQLParams adds parameters to a MySQL DSN unless they are already set.
func AppendMySQLParams(dsn string, params map[string]string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Trace(err)
	}
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	for key, value := range params {
		if _, exist := cfg.Params[key]; !exist {
			cfg.Params[key] = value
		}
	}
	return cfg.FormatDSN(), nil
}
