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

// Package colexec implements columnar expression evaluation and the shared
// grouping, hashing and ordering machinery the pipeline operators build on.
package colexec

import (
	"github.com/axiomhq/hyperloglog"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm/process"

	"github.com/DataDog/sketches-go/ddsketch"
)

// EvalExpr evaluates expr over every row of bat and returns a vector of
// bat.RowCount() rows. Column references may alias the batch's vectors, so
// callers must not mutate the result in place.
func EvalExpr(proc *process.Process, bat *batch.Batch, expr plan.Expr) (*vector.Vector, error) {
	switch e := expr.(type) {
	case *plan.ColExpr:
		pos := bat.Pos(e.Name)
		if pos < 0 {
			return nil, moerr.NewSchemaMismatch(proc.Ctx, "column %s not found in batch [%v]", e.Name, bat.Attrs)
		}
		return bat.Vecs[pos], nil
	case *plan.ConstExpr:
		return constVector(proc, e, bat.RowCount())
	case *plan.AliasExpr:
		return EvalExpr(proc, bat, e.Child)
	case *plan.FuncExpr:
		return evalFunc(proc, bat, e)
	case *plan.AggExpr:
		return nil, moerr.NewInvalidInput(proc.Ctx, "aggregation %s cannot be evaluated row-wise", e.Op)
	default:
		return nil, moerr.NewNYI(proc.Ctx, "expression %T", expr)
	}
}

func evalFunc(proc *process.Process, bat *batch.Batch, e *plan.FuncExpr) (*vector.Vector, error) {
	args := make([]*vector.Vector, len(e.Args))
	for i, a := range e.Args {
		v, err := EvalExpr(proc, bat, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch e.Op {
	case plan.FuncEq, plan.FuncNe, plan.FuncLt, plan.FuncLe, plan.FuncGt, plan.FuncGe:
		if err := wantArgs(proc, e, args, 2); err != nil {
			return nil, err
		}
		return evalCompare(proc, e.Op, args[0], args[1])
	case plan.FuncAdd, plan.FuncSub, plan.FuncMul:
		if err := wantArgs(proc, e, args, 2); err != nil {
			return nil, err
		}
		return evalArith(proc, e.Op, args[0], args[1])
	case plan.FuncDiv:
		if err := wantArgs(proc, e, args, 2); err != nil {
			return nil, err
		}
		return evalDiv(proc, args[0], args[1])
	case plan.FuncCastFloat64:
		if err := wantArgs(proc, e, args, 1); err != nil {
			return nil, err
		}
		return evalCastFloat64(proc, args[0])
	case plan.FuncSketchPercentile:
		if err := wantArgs(proc, e, args, 2); err != nil {
			return nil, err
		}
		return evalSketchPercentile(proc, args[0], args[1])
	case plan.FuncHLLCount:
		if err := wantArgs(proc, e, args, 1); err != nil {
			return nil, err
		}
		return evalHLLCount(proc, args[0])
	default:
		return nil, moerr.NewNYI(proc.Ctx, "scalar function %s", e.Op)
	}
}

func wantArgs(proc *process.Process, e *plan.FuncExpr, args []*vector.Vector, n int) error {
	if len(args) != n {
		return moerr.NewInvalidInput(proc.Ctx, "%s expects %d arguments, got %d", e.Op, n, len(args))
	}
	return nil
}

func constVector(proc *process.Process, e *plan.ConstExpr, rows int) (*vector.Vector, error) {
	switch e.Typ.Oid {
	case types.T_bool:
		return broadcast[bool](proc, e, rows)
	case types.T_int8:
		return broadcast[int8](proc, e, rows)
	case types.T_int16:
		return broadcast[int16](proc, e, rows)
	case types.T_int32:
		return broadcast[int32](proc, e, rows)
	case types.T_int64:
		return broadcast[int64](proc, e, rows)
	case types.T_uint8:
		return broadcast[uint8](proc, e, rows)
	case types.T_uint16:
		return broadcast[uint16](proc, e, rows)
	case types.T_uint32:
		return broadcast[uint32](proc, e, rows)
	case types.T_uint64:
		return broadcast[uint64](proc, e, rows)
	case types.T_float32:
		return broadcast[float32](proc, e, rows)
	case types.T_float64:
		return broadcast[float64](proc, e, rows)
	case types.T_decimal128:
		return broadcast[types.Decimal128](proc, e, rows)
	case types.T_varchar:
		return broadcast[string](proc, e, rows)
	case types.T_varbinary:
		return broadcast[[]byte](proc, e, rows)
	default:
		return nil, moerr.NewNYI(proc.Ctx, "constant of type %s", e.Typ)
	}
}

func broadcast[T any](proc *process.Process, e *plan.ConstExpr, rows int) (*vector.Vector, error) {
	val, ok := e.Value.(T)
	if !ok {
		return nil, moerr.NewTypeMismatch(proc.Ctx, "constant %v is not a %s", e.Value, e.Typ)
	}
	vals := make([]T, rows)
	for i := range vals {
		vals[i] = val
	}
	return vector.NewWithFixed(e.Typ, vals, nil), nil
}

// evalSketchPercentile reads a quantile out of every sketch cell. The second
// argument must be a float64 quantile in [0, 1].
func evalSketchPercentile(proc *process.Process, sk, qv *vector.Vector) (*vector.Vector, error) {
	if sk.Typ.Oid != types.T_sketch {
		return nil, moerr.NewTypeMismatch(proc.Ctx, "sketch_percentile needs a sketch column, got %s", sk.Typ)
	}
	if qv.Typ.Oid != types.T_float64 {
		return nil, moerr.NewTypeMismatch(proc.Ctx, "sketch_percentile quantile must be float64, got %s", qv.Typ)
	}
	qs := vector.MustFixedCol[float64](qv)
	cells := vector.MustFixedCol[*ddsketch.DDSketch](sk)
	res := vector.New(types.New(types.T_float64))
	for i, s := range cells {
		q := qs[i]
		if q < 0 || q > 1 {
			return nil, moerr.NewInvalidInput(proc.Ctx, "quantile %v is out of [0, 1]", q)
		}
		if s == nil || nulls.Contains(sk.Nsp, uint64(i)) {
			vector.AppendFixed(res, float64(0), true)
			continue
		}
		val, err := s.GetValueAtQuantile(q)
		if err != nil {
			return nil, moerr.NewInvalidInput(proc.Ctx, "sketch quantile: %v", err)
		}
		vector.AppendFixed(res, val, false)
	}
	return res, nil
}

// evalHLLCount estimates the distinct count held in each HLL register cell.
func evalHLLCount(proc *process.Process, regs *vector.Vector) (*vector.Vector, error) {
	if regs.Typ.Oid != types.T_varbinary {
		return nil, moerr.NewTypeMismatch(proc.Ctx, "hll_count needs an HLL register column, got %s", regs.Typ)
	}
	cells := vector.MustFixedCol[[]byte](regs)
	res := vector.New(types.New(types.T_uint64))
	for i, cell := range cells {
		if cell == nil || nulls.Contains(regs.Nsp, uint64(i)) {
			vector.AppendFixed(res, uint64(0), true)
			continue
		}
		h := hyperloglog.New16()
		if err := h.UnmarshalBinary(cell); err != nil {
			return nil, moerr.NewInvalidInput(proc.Ctx, "malformed HLL registers: %v", err)
		}
		vector.AppendFixed(res, h.Estimate(), false)
	}
	return res, nil
}
