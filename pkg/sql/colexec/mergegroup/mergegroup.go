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

// Package mergegroup is the combine aggregation stage: it blocks until the
// partial stream ends, merges the per-batch summaries and reduces them to
// one row per group.
package mergegroup

import (
	"bytes"

	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/sql/colexec"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

type Argument struct {
	Aggs    []*plan.AggExpr
	GroupBy []plan.Expr

	// InputSch types the partial stream so an ungrouped aggregation over
	// zero batches can still produce its single summary row.
	InputSch *plan.Schema

	bats []*batch.Batch
}

func New(aggs []*plan.AggExpr, groupBy []plan.Expr, inputSch *plan.Schema) *Argument {
	return &Argument{Aggs: aggs, GroupBy: groupBy, InputSch: inputSch}
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString("merge_group")
}

func (arg *Argument) Sink(_ *process.Process, bat *batch.Batch) (vm.SinkResult, error) {
	if bat.RowCount() > 0 {
		arg.bats = append(arg.bats, bat)
	}
	return vm.SinkNeedMore, nil
}

func (arg *Argument) Finalize(proc *process.Process, emit func(*batch.Batch) bool) error {
	var in *batch.Batch
	if len(arg.bats) == 0 {
		in = arg.emptyInput()
	} else {
		merged, err := batch.Merge(proc.Ctx, arg.bats)
		if err != nil {
			return err
		}
		in = merged
	}
	out, err := colexec.RunAggregation(proc, in, arg.Aggs, arg.GroupBy)
	if err != nil {
		return err
	}
	emit(out)
	return nil
}

func (arg *Argument) emptyInput() *batch.Batch {
	bat := batch.New(arg.InputSch.Attrs)
	for i, typ := range arg.InputSch.Types {
		bat.Vecs[i] = vector.New(typ)
	}
	return bat
}
