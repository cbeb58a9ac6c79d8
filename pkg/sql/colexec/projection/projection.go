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

package projection

import (
	"bytes"

	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/sql/colexec"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

// Argument evaluates one expression per output column.
type Argument struct {
	Exprs []plan.Expr
}

func New(exprs []plan.Expr) *Argument {
	return &Argument{Exprs: exprs}
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString("projection(")
	for i, e := range arg.Exprs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(e.String())
	}
	buf.WriteByte(')')
}

func (arg *Argument) Exec(proc *process.Process, bat *batch.Batch) (*batch.Batch, error) {
	out := batch.NewWithSize(len(arg.Exprs))
	out.Attrs = make([]string, len(arg.Exprs))
	for i, e := range arg.Exprs {
		vec, err := colexec.EvalExpr(proc, bat, e)
		if err != nil {
			return nil, err
		}
		out.Attrs[i] = plan.ExprName(e)
		out.Vecs[i] = vec
	}
	out.SetRowCount(bat.RowCount())
	return out, nil
}
