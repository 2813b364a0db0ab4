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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

type spanKeyType string

var spanKeyName = spanKeyType(uuid.New().String())

type Status string

const (
	StatusRunning  Status = "Running"
	StatusComplete Status = "Complete"
	StatusFailed   Status = "Failed"
)

// Tracer keeps the root spans of a process.
type Tracer struct {
	name  string
	spans sync.Map
}

func NewTracer(name string) *Tracer {
	return &Tracer{name: name}
}

// Start creates a root span.
func (t *Tracer) Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := newSpan(name, total)
	t.spans.Store(name, span)
	return context.WithValue(ctx, spanKeyName, span), span
}

// List returns the progress of every root span ordered by name.
func (t *Tracer) List() []Progress {
	var progress []Progress
	t.spans.Range(func(_, value any) bool {
		p := value.(*Span).Progress()
		p.Tracer = t.name
		progress = append(progress, p)
		return true
	})
	sort.Slice(progress, func(i, j int) bool {
		return progress[i].Name < progress[j].Name
	})
	return progress
}

// Span tracks the progress of a task. Add is safe for concurrent use.
type Span struct {
	name  string
	total int
	count atomic.Int64
	start time.Time

	mu       sync.Mutex
	status   Status
	err      string
	finish   time.Time
	children []*Span
}

func newSpan(name string, total int) *Span {
	return &Span{name: name, total: total, status: StatusRunning, start: time.Now()}
}

func (s *Span) Add(n int) {
	s.count.Add(int64(n))
}

// End marks the span complete.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		s.status = StatusComplete
		s.count.Store(int64(s.total))
	}
	s.finish = time.Now()
}

// Fail marks the span failed.
func (s *Span) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	s.err = err.Error()
	s.finish = time.Now()
}

// Progress returns the state of the span. Count and Total of a span with children are
// summed over its children.
func (s *Span) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Progress{
		Name:       s.name,
		Status:     s.status,
		Error:      s.err,
		Count:      int(s.count.Load()),
		Total:      s.total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
	if len(s.children) > 0 {
		p.Count, p.Total = 0, 0
		for _, child := range s.children {
			c := child.Progress()
			p.Count += c.Count
			p.Total += c.Total
			if c.Status == StatusFailed && p.Status != StatusFailed {
				p.Status, p.Error = StatusFailed, c.Error
			}
		}
	}
	return p
}

// Start creates a child of the span in ctx. The span is detached if ctx has no span.
func Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	child := newSpan(name, total)
	parent, ok := ctx.Value(spanKeyName).(*Span)
	if ok {
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKeyName, child), child
}

type Progress struct {
	Tracer     string
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
}
