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

package colexec

import (
	"bytes"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vectorize/typecast"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

// numeric promotion for binary operators: any float operand or a
// signed/unsigned mix widens both sides to float64, otherwise both sides
// stay in their shared integer family.
type numClass uint8

const (
	classInt64 numClass = iota
	classUint64
	classFloat64
)

func classify(a, b types.T) (numClass, bool) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return 0, false
	}
	switch {
	case a.IsFloat() || b.IsFloat():
		return classFloat64, true
	case a.IsSignedInt() && b.IsSignedInt():
		return classInt64, true
	case a.IsUnsignedInt() && b.IsUnsignedInt():
		return classUint64, true
	default:
		return classFloat64, true
	}
}

func toInt64(v *vector.Vector) []int64 {
	switch v.Typ.Oid {
	case types.T_int8:
		return typecast.NumericToNumeric[int8, int64](vector.MustFixedCol[int8](v))
	case types.T_int16:
		return typecast.NumericToNumeric[int16, int64](vector.MustFixedCol[int16](v))
	case types.T_int32:
		return typecast.NumericToNumeric[int32, int64](vector.MustFixedCol[int32](v))
	default:
		return vector.MustFixedCol[int64](v)
	}
}

func toUint64(v *vector.Vector) []uint64 {
	switch v.Typ.Oid {
	case types.T_uint8:
		return typecast.NumericToNumeric[uint8, uint64](vector.MustFixedCol[uint8](v))
	case types.T_uint16:
		return typecast.NumericToNumeric[uint16, uint64](vector.MustFixedCol[uint16](v))
	case types.T_uint32:
		return typecast.NumericToNumeric[uint32, uint64](vector.MustFixedCol[uint32](v))
	default:
		return vector.MustFixedCol[uint64](v)
	}
}

func toFloat64(v *vector.Vector) []float64 {
	switch v.Typ.Oid {
	case types.T_int8:
		return typecast.NumericToNumeric[int8, float64](vector.MustFixedCol[int8](v))
	case types.T_int16:
		return typecast.NumericToNumeric[int16, float64](vector.MustFixedCol[int16](v))
	case types.T_int32:
		return typecast.NumericToNumeric[int32, float64](vector.MustFixedCol[int32](v))
	case types.T_int64:
		return typecast.NumericToNumeric[int64, float64](vector.MustFixedCol[int64](v))
	case types.T_uint8:
		return typecast.NumericToNumeric[uint8, float64](vector.MustFixedCol[uint8](v))
	case types.T_uint16:
		return typecast.NumericToNumeric[uint16, float64](vector.MustFixedCol[uint16](v))
	case types.T_uint32:
		return typecast.NumericToNumeric[uint32, float64](vector.MustFixedCol[uint32](v))
	case types.T_uint64:
		return typecast.NumericToNumeric[uint64, float64](vector.MustFixedCol[uint64](v))
	case types.T_float32:
		return typecast.NumericToNumeric[float32, float64](vector.MustFixedCol[float32](v))
	default:
		return vector.MustFixedCol[float64](v)
	}
}

func unionNulls(a, b *vector.Vector) *nulls.Nulls {
	if !nulls.Any(a.Nsp) && !nulls.Any(b.Nsp) {
		return nil
	}
	nsp := a.Nsp.Clone()
	if nsp == nil {
		nsp = &nulls.Nulls{}
	}
	nulls.Set(nsp, b.Nsp)
	return nsp
}

func cmpOrdered[T string | int64 | uint64 | float64](op plan.FuncOp, xs, ys []T) []bool {
	res := make([]bool, len(xs))
	for i := range xs {
		switch op {
		case plan.FuncEq:
			res[i] = xs[i] == ys[i]
		case plan.FuncNe:
			res[i] = xs[i] != ys[i]
		case plan.FuncLt:
			res[i] = xs[i] < ys[i]
		case plan.FuncLe:
			res[i] = xs[i] <= ys[i]
		case plan.FuncGt:
			res[i] = xs[i] > ys[i]
		case plan.FuncGe:
			res[i] = xs[i] >= ys[i]
		}
	}
	return res
}

func cmpFromOrder(op plan.FuncOp, c int) bool {
	switch op {
	case plan.FuncEq:
		return c == 0
	case plan.FuncNe:
		return c != 0
	case plan.FuncLt:
		return c < 0
	case plan.FuncLe:
		return c <= 0
	case plan.FuncGt:
		return c > 0
	default:
		return c >= 0
	}
}

func evalCompare(proc *process.Process, op plan.FuncOp, a, b *vector.Vector) (*vector.Vector, error) {
	var res []bool
	switch {
	case a.Typ.Oid.IsNumeric() && b.Typ.Oid.IsNumeric():
		class, _ := classify(a.Typ.Oid, b.Typ.Oid)
		switch class {
		case classInt64:
			res = cmpOrdered(op, toInt64(a), toInt64(b))
		case classUint64:
			res = cmpOrdered(op, toUint64(a), toUint64(b))
		default:
			res = cmpOrdered(op, toFloat64(a), toFloat64(b))
		}
	case a.Typ.Oid == types.T_varchar && b.Typ.Oid == types.T_varchar:
		res = cmpOrdered(op, vector.MustFixedCol[string](a), vector.MustFixedCol[string](b))
	case a.Typ.Oid == types.T_varbinary && b.Typ.Oid == types.T_varbinary:
		xs := vector.MustFixedCol[[]byte](a)
		ys := vector.MustFixedCol[[]byte](b)
		res = make([]bool, len(xs))
		for i := range xs {
			res[i] = cmpFromOrder(op, bytes.Compare(xs[i], ys[i]))
		}
	case a.Typ.Oid == types.T_decimal128 && b.Typ.Oid == types.T_decimal128:
		xs := vector.MustFixedCol[types.Decimal128](a)
		ys := vector.MustFixedCol[types.Decimal128](b)
		res = make([]bool, len(xs))
		for i := range xs {
			res[i] = cmpFromOrder(op, xs[i].Compare(ys[i]))
		}
	case a.Typ.Oid == types.T_bool && b.Typ.Oid == types.T_bool:
		if op != plan.FuncEq && op != plan.FuncNe {
			return nil, moerr.NewTypeMismatch(proc.Ctx, "%s is not defined for bool", op)
		}
		xs := vector.MustFixedCol[bool](a)
		ys := vector.MustFixedCol[bool](b)
		res = make([]bool, len(xs))
		for i := range xs {
			res[i] = (xs[i] == ys[i]) == (op == plan.FuncEq)
		}
	default:
		return nil, moerr.NewTypeMismatch(proc.Ctx, "cannot compare %s with %s", a.Typ, b.Typ)
	}
	return vector.NewWithFixed(types.New(types.T_bool), res, unionNulls(a, b)), nil
}

func arithOrdered[T int64 | uint64 | float64](op plan.FuncOp, xs, ys []T) []T {
	res := make([]T, len(xs))
	for i := range xs {
		switch op {
		case plan.FuncAdd:
			res[i] = xs[i] + ys[i]
		case plan.FuncSub:
			res[i] = xs[i] - ys[i]
		case plan.FuncMul:
			res[i] = xs[i] * ys[i]
		}
	}
	return res
}

func evalArith(proc *process.Process, op plan.FuncOp, a, b *vector.Vector) (*vector.Vector, error) {
	if a.Typ.Oid == types.T_decimal128 && b.Typ.Oid == types.T_decimal128 {
		if op != plan.FuncAdd {
			return nil, moerr.NewNYI(proc.Ctx, "decimal %s", op)
		}
		if a.Typ.Scale != b.Typ.Scale {
			return nil, moerr.NewTypeMismatch(proc.Ctx, "decimal scales %d and %d differ", a.Typ.Scale, b.Typ.Scale)
		}
		xs := vector.MustFixedCol[types.Decimal128](a)
		ys := vector.MustFixedCol[types.Decimal128](b)
		res := make([]types.Decimal128, len(xs))
		for i := range xs {
			res[i] = xs[i].Add(ys[i])
		}
		return vector.NewWithFixed(types.NewDecimal(38, a.Typ.Scale), res, unionNulls(a, b)), nil
	}
	class, ok := classify(a.Typ.Oid, b.Typ.Oid)
	if !ok {
		return nil, moerr.NewTypeMismatch(proc.Ctx, "%s is not defined for %s and %s", op, a.Typ, b.Typ)
	}
	nsp := unionNulls(a, b)
	switch class {
	case classInt64:
		return vector.NewWithFixed(types.New(types.T_int64), arithOrdered(op, toInt64(a), toInt64(b)), nsp), nil
	case classUint64:
		return vector.NewWithFixed(types.New(types.T_uint64), arithOrdered(op, toUint64(a), toUint64(b)), nsp), nil
	default:
		return vector.NewWithFixed(types.New(types.T_float64), arithOrdered(op, toFloat64(a), toFloat64(b)), nsp), nil
	}
}

// evalDiv always divides in float64; a zero divisor yields a NULL cell
// rather than an IEEE infinity.
func evalDiv(proc *process.Process, a, b *vector.Vector) (*vector.Vector, error) {
	if !a.Typ.Oid.IsNumeric() || !b.Typ.Oid.IsNumeric() {
		return nil, moerr.NewTypeMismatch(proc.Ctx, "div is not defined for %s and %s", a.Typ, b.Typ)
	}
	xs := toFloat64(a)
	ys := toFloat64(b)
	nsp := unionNulls(a, b)
	res := make([]float64, len(xs))
	for i := range xs {
		if ys[i] == 0 {
			if nsp == nil {
				nsp = &nulls.Nulls{}
			}
			nulls.Add(nsp, uint64(i))
			continue
		}
		res[i] = xs[i] / ys[i]
	}
	return vector.NewWithFixed(types.New(types.T_float64), res, nsp), nil
}

func evalCastFloat64(proc *process.Process, a *vector.Vector) (*vector.Vector, error) {
	if !a.Typ.Oid.IsNumeric() {
		return nil, moerr.NewTypeMismatch(proc.Ctx, "cast_f64 is not defined for %s", a.Typ)
	}
	var nsp *nulls.Nulls
	if nulls.Any(a.Nsp) {
		nsp = a.Nsp.Clone()
	}
	return vector.NewWithFixed(types.New(types.T_float64), toFloat64(a), nsp), nil
}
