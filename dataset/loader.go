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

package dataset

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorse-io/tasteprofile/common/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const maxLineSize = 1 << 20

// LoadTripletsFile loads a file of "user \t item \t count" lines.
func LoadTripletsFile(path string, sizeHint int) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	catalog, err := LoadTriplets(file, sizeHint)
	if err != nil {
		return nil, errors.Annotatef(err, "load %s", path)
	}
	return catalog, nil
}

// LoadTriplets reads whitespace separated (user, item, count) triplets, one per line.
// Empty lines are skipped.
func LoadTriplets(r io.Reader, sizeHint int) (*Catalog, error) {
	builder := NewCatalogBuilder(sizeHint)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, errors.NotValidf("line %d: expected 3 fields but got %d", lineNumber, len(fields))
		}
		score, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, errors.Annotatef(err, "line %d", lineNumber)
		}
		if err = builder.Add(fields[0], fields[1], score); err != nil {
			return nil, errors.Annotatef(err, "line %d", lineNumber)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	catalog := builder.Build()
	log.Logger().Info("load triplets complete",
		zap.Int("n_users", catalog.Count()),
		zap.Int("n_items", catalog.CountItems()),
		zap.Int("n_feedback", catalog.CountFeedback()))
	return catalog, nil
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadDatabase loads (user_id, item_id, score) rows from a table.
func LoadDatabase(ctx context.Context, db *sql.DB, table string, sizeHint int) (*Catalog, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, errors.NotValidf("table name %q", table)
	}
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT user_id, item_id, score FROM %s ORDER BY user_id, item_id", table))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	builder := NewCatalogBuilder(sizeHint)
	for rows.Next() {
		var (
			userId, itemId string
			score          int
		)
		if err = rows.Scan(&userId, &itemId, &score); err != nil {
			return nil, errors.Trace(err)
		}
		if err = builder.Add(userId, itemId, score); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	catalog := builder.Build()
	log.FromContext(ctx).Info("load database complete",
		zap.String("table", table),
		zap.Int("n_users", catalog.Count()),
		zap.Int("n_items", catalog.CountItems()),
		zap.Int("n_feedback", catalog.CountFeedback()))
	return catalog, nil
}
