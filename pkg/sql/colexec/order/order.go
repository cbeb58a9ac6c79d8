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

// Package order is the blocking sort sink: it buffers its whole input, then
// emits one batch in key order.
package order

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
	By         []plan.Expr
	Descending []bool

	bats []*batch.Batch
}

func New(by []plan.Expr, descending []bool) *Argument {
	return &Argument{By: by, Descending: descending}
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString("order(")
	for i, key := range arg.By {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(key.String())
		if arg.Descending[i] {
			buf.WriteString(" desc")
		}
	}
	buf.WriteByte(')')
}

func (arg *Argument) Sink(_ *process.Process, bat *batch.Batch) (vm.SinkResult, error) {
	if bat.RowCount() > 0 {
		arg.bats = append(arg.bats, bat)
	}
	return vm.SinkNeedMore, nil
}

func (arg *Argument) Finalize(proc *process.Process, emit func(*batch.Batch) bool) error {
	if len(arg.bats) == 0 {
		return nil
	}
	merged, err := batch.Merge(proc.Ctx, arg.bats)
	if err != nil {
		return err
	}
	keyVecs := make([]*vector.Vector, len(arg.By))
	for i, key := range arg.By {
		vec, err := colexec.EvalExpr(proc, merged, key)
		if err != nil {
			return err
		}
		keyVecs[i] = vec
	}
	sels, err := colexec.SortOrder(proc.Ctx, keyVecs, arg.Descending, merged.RowCount())
	if err != nil {
		return err
	}
	emit(merged.Take(sels))
	return nil
}
