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

package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ProgressTestSuite struct {
	suite.Suite
	tracer *Tracer
}

func (suite *ProgressTestSuite) SetupTest() {
	suite.tracer = NewTracer("test")
}

func (suite *ProgressTestSuite) TestLeafProgress() {
	_, span := suite.tracer.Start(context.Background(), "root", 100)
	progressList := suite.tracer.List()
	suite.Equal(1, len(progressList))
	suite.Equal("test", progressList[0].Tracer)
	suite.Equal("root", progressList[0].Name)
	suite.Equal(StatusRunning, progressList[0].Status)
	suite.Empty(progressList[0].Error)
	suite.Equal(100, progressList[0].Total)
	suite.Zero(progressList[0].Count)
	suite.LessOrEqual(progressList[0].StartTime, time.Now())

	span.Add(10)
	progressList = suite.tracer.List()
	suite.Equal(10, progressList[0].Count)

	span.End()
	progressList = suite.tracer.List()
	suite.Equal(StatusComplete, progressList[0].Status)
	suite.Equal(100, progressList[0].Count)
	suite.LessOrEqual(progressList[0].StartTime, progressList[0].FinishTime)

	span.Fail(errors.New("some error"))
	progressList = suite.tracer.List()
	suite.Equal(StatusFailed, progressList[0].Status)
	suite.Equal("some error", progressList[0].Error)
}

func (suite *ProgressTestSuite) TestMultiLevelProgress() {
	ctx, _ := suite.tracer.Start(context.Background(), "root", 0)
	_, first := Start(ctx, "first", 8)
	_, second := Start(ctx, "second", 4)
	first.Add(2)
	second.Add(1)
	progressList := suite.tracer.List()
	suite.Equal(1, len(progressList))
	suite.Equal(StatusRunning, progressList[0].Status)
	suite.Equal(12, progressList[0].Total)
	suite.Equal(3, progressList[0].Count)

	first.End()
	progressList = suite.tracer.List()
	suite.Equal(9, progressList[0].Count)

	second.Fail(errors.New("some error"))
	progressList = suite.tracer.List()
	suite.Equal(StatusFailed, progressList[0].Status)
	suite.Equal("some error", progressList[0].Error)
}

func (suite *ProgressTestSuite) TestDetachedSpan() {
	_, span := Start(context.Background(), "detached", 5)
	span.Add(5)
	suite.Equal(5, span.Progress().Count)
	suite.Empty(suite.tracer.List())
}

func (suite *ProgressTestSuite) TestConcurrentAdd() {
	_, span := suite.tracer.Start(context.Background(), "root", 1000)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Go(func() {
			for j := 0; j < 100; j++ {
				span.Add(1)
			}
		})
	}
	wg.Wait()
	suite.Equal(1000, span.Progress().Count)
}

func TestProgressTestSuite(t *testing.T) {
	suite.Run(t, new(ProgressTestSuite))
}
