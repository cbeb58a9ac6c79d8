// Copyright 2024 Skiff Data
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scan holds the leaf sources: one over scan tasks, one over
// batches already resident in memory.
package scan

import (
	"bytes"

	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

// TaskSource drains a list of scan tasks in order, one task at a time.
type TaskSource struct {
	tasks []plan.ScanTask
	cur   int
}

func NewTaskSource(tasks []plan.ScanTask) *TaskSource {
	return &TaskSource{tasks: tasks}
}

func (s *TaskSource) String(buf *bytes.Buffer) {
	buf.WriteString("table_scan")
}

func (s *TaskSource) Read(proc *process.Process) (*batch.Batch, error) {
	for s.cur < len(s.tasks) {
		bat, err := s.tasks[s.cur].Read(proc.Ctx)
		if err != nil {
			return nil, err
		}
		if bat == nil {
			s.cur++
			continue
		}
		return bat, nil
	}
	return nil, nil
}

// MemorySource replays pre-materialized batches, used for cached scans.
type MemorySource struct {
	key  string
	bats []*batch.Batch
	cur  int
}

func NewMemorySource(key string, bats []*batch.Batch) *MemorySource {
	return &MemorySource{key: key, bats: bats}
}

func (s *MemorySource) String(buf *bytes.Buffer) {
	buf.WriteString("memory_scan(")
	buf.WriteString(s.key)
	buf.WriteByte(')')
}

func (s *MemorySource) Read(_ *process.Process) (*batch.Batch, error) {
	if s.cur >= len(s.bats) {
		return nil, nil
	}
	bat := s.bats[s.cur]
	s.cur++
	return bat, nil
}
