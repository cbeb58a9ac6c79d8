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

// Package group is the partial aggregation stage: it reduces each input
// batch independently and streams the per-batch summaries downstream, where
// mergegroup combines them.
package group

import (
	"bytes"

	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/sql/colexec"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

type Argument struct {
	Aggs    []*plan.AggExpr
	GroupBy []plan.Expr
}

func New(aggs []*plan.AggExpr, groupBy []plan.Expr) *Argument {
	return &Argument{Aggs: aggs, GroupBy: groupBy}
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString("group(")
	for i, a := range arg.Aggs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a.String())
	}
	if len(arg.GroupBy) > 0 {
		buf.WriteString(" by ")
		for i, key := range arg.GroupBy {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(key.String())
		}
	}
	buf.WriteByte(')')
}

func (arg *Argument) Exec(proc *process.Process, bat *batch.Batch) (*batch.Batch, error) {
	return colexec.RunAggregation(proc, bat, arg.Aggs, arg.GroupBy)
}
