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

// Package join is the hash join sink. The left input is the build side and
// the right input the probe side; both are absorbed fully before probing.
// Rows whose key contains a NULL never match, in any join type.
package join

import (
	"bytes"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/sql/colexec"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

type Argument struct {
	Typ      plan.JoinType
	LeftOn   []plan.Expr
	RightOn  []plan.Expr
	LeftSch  *plan.Schema
	RightSch *plan.Schema

	left  []*batch.Batch
	right []*batch.Batch
}

func New(typ plan.JoinType, leftOn, rightOn []plan.Expr, leftSch, rightSch *plan.Schema) *Argument {
	return &Argument{
		Typ:      typ,
		LeftOn:   leftOn,
		RightOn:  rightOn,
		LeftSch:  leftSch,
		RightSch: rightSch,
	}
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString(arg.Typ.String())
	buf.WriteString("_join")
}

func (arg *Argument) SinkLeft(_ *process.Process, bat *batch.Batch) (vm.SinkResult, error) {
	if bat.RowCount() > 0 {
		arg.left = append(arg.left, bat)
	}
	return vm.SinkNeedMore, nil
}

func (arg *Argument) SinkRight(_ *process.Process, bat *batch.Batch) (vm.SinkResult, error) {
	if bat.RowCount() > 0 {
		arg.right = append(arg.right, bat)
	}
	return vm.SinkNeedMore, nil
}

func (arg *Argument) Finalize(proc *process.Process, emit func(*batch.Batch) bool) error {
	lbat, err := arg.materialize(proc, arg.left, arg.LeftSch)
	if err != nil {
		return err
	}
	rbat, err := arg.materialize(proc, arg.right, arg.RightSch)
	if err != nil {
		return err
	}

	lkeys, err := arg.rowKeys(proc, lbat, arg.LeftOn)
	if err != nil {
		return err
	}
	rkeys, err := arg.rowKeys(proc, rbat, arg.RightOn)
	if err != nil {
		return err
	}

	// build over left
	table := make(map[string][]int64, lbat.RowCount())
	for i, key := range lkeys {
		if key == "" {
			continue
		}
		table[key] = append(table[key], int64(i))
	}

	var lsels, rsels []int64
	matched := make([]bool, lbat.RowCount())
	for r, key := range rkeys {
		var hits []int64
		if key != "" {
			hits = table[key]
		}
		if len(hits) == 0 {
			if arg.Typ == plan.JoinRight {
				lsels = append(lsels, -1)
				rsels = append(rsels, int64(r))
			}
			continue
		}
		for _, l := range hits {
			matched[l] = true
			switch arg.Typ {
			case plan.JoinInner, plan.JoinLeft, plan.JoinRight:
				lsels = append(lsels, l)
				rsels = append(rsels, int64(r))
			}
		}
	}

	switch arg.Typ {
	case plan.JoinLeft:
		for l := range matched {
			if !matched[l] {
				lsels = append(lsels, int64(l))
				rsels = append(rsels, -1)
			}
		}
	case plan.JoinSemi, plan.JoinAnti:
		want := arg.Typ == plan.JoinSemi
		for l := range matched {
			if matched[l] == want {
				lsels = append(lsels, int64(l))
			}
		}
	}

	out := batch.New(nil)
	leftTaken := lbat.Take(lsels)
	out.Attrs = append(out.Attrs, leftTaken.Attrs...)
	out.Vecs = append(out.Vecs, leftTaken.Vecs...)
	if arg.Typ != plan.JoinSemi && arg.Typ != plan.JoinAnti {
		rightTaken := rbat.Take(rsels)
		out.Attrs = append(out.Attrs, rightTaken.Attrs...)
		out.Vecs = append(out.Vecs, rightTaken.Vecs...)
	}
	out.SetRowCount(len(lsels))
	emit(out)
	return nil
}

func (arg *Argument) materialize(proc *process.Process, bats []*batch.Batch, sch *plan.Schema) (*batch.Batch, error) {
	if len(bats) == 0 {
		bat := batch.New(sch.Attrs)
		for i, typ := range sch.Types {
			bat.Vecs[i] = vector.New(typ)
		}
		return bat, nil
	}
	return batch.Merge(proc.Ctx, bats)
}

// rowKeys encodes the join key per row; rows with a NULL key cell come back
// as "" and never match.
func (arg *Argument) rowKeys(proc *process.Process, bat *batch.Batch, on []plan.Expr) ([]string, error) {
	if len(on) == 0 {
		return nil, moerr.NewInvalidInput(proc.Ctx, "join requires at least one key column")
	}
	keyVecs := make([]*vector.Vector, len(on))
	for i, key := range on {
		vec, err := colexec.EvalExpr(proc, bat, key)
		if err != nil {
			return nil, err
		}
		keyVecs[i] = vec
	}
	keys, hasNull, err := colexec.EncodeRowKeys(proc.Ctx, keyVecs, bat.RowCount())
	if err != nil {
		return nil, err
	}
	for i := range keys {
		if hasNull[i] {
			keys[i] = ""
		}
	}
	return keys, nil
}
