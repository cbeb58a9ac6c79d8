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

package restrict

import (
	"bytes"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/sql/colexec"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

// Argument keeps the rows where the predicate is true. NULL predicate cells
// drop the row, SQL style.
type Argument struct {
	Predicate plan.Expr
}

func New(predicate plan.Expr) *Argument {
	return &Argument{Predicate: predicate}
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString("filter(")
	buf.WriteString(arg.Predicate.String())
	buf.WriteByte(')')
}

func (arg *Argument) Exec(proc *process.Process, bat *batch.Batch) (*batch.Batch, error) {
	vec, err := colexec.EvalExpr(proc, bat, arg.Predicate)
	if err != nil {
		return nil, err
	}
	if vec.Typ.Oid != types.T_bool {
		return nil, moerr.NewTypeMismatch(proc.Ctx, "filter predicate must be bool, got %s", vec.Typ)
	}
	flags := vector.MustFixedCol[bool](vec)
	sels := make([]int64, 0, len(flags))
	for i, keep := range flags {
		if keep && !nulls.Contains(vec.Nsp, uint64(i)) {
			sels = append(sels, int64(i))
		}
	}
	switch {
	case len(sels) == 0:
		return nil, nil
	case len(sels) == bat.RowCount():
		return bat, nil
	}
	return bat.Take(sels), nil
}
