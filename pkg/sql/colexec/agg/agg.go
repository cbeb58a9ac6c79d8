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

// Package agg is the aggregation kernel dispatch: every aggregation the
// engine supports enters through one function here, which selects a
// type-specialized reduction by switching over the physical type enum.
// Reductions are order-independent per group, so correctness never depends
// on batch arrival order.
package agg

import (
	"bytes"
	"context"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/vectorize/minmax"
	"github.com/skiffdata/skiff/pkg/vectorize/sum"
	"github.com/skiffdata/skiff/pkg/vectorize/typecast"
)

// Count counts rows per group, or globally when groups is nil. It is
// defined for every physical type since it reads only length and validity.
func Count(_ context.Context, vec *vector.Vector, groups GroupIndices, mode CountMode) (*vector.Vector, error) {
	typ := types.New(types.T_uint64)
	if groups == nil {
		n := uint64(vec.Length())
		nullCnt := uint64(nulls.Count(vec.Nsp))
		var cnt uint64
		switch mode {
		case CountValid:
			cnt = n - nullCnt
		case CountNull:
			cnt = nullCnt
		default:
			cnt = n
		}
		return vector.NewWithFixed(typ, []uint64{cnt}, nil), nil
	}
	cnts := make([]uint64, len(groups))
	for i, group := range groups {
		for _, row := range group {
			isNull := nulls.Contains(vec.Nsp, row)
			switch mode {
			case CountValid:
				if !isNull {
					cnts[i]++
				}
			case CountNull:
				if isNull {
					cnts[i]++
				}
			default:
				cnts[i]++
			}
		}
	}
	return vector.NewWithFixed(typ, cnts, nil), nil
}

// Sum promotes the column before reducing so results are type-stable:
// signed to INT64, unsigned to UINT64, floats unchanged, decimals over
// their unscaled 128-bit representation.
func Sum(ctx context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	rtyp, ok := vec.Typ.SumPromotion()
	if !ok {
		return nil, moerr.NewTypeMismatch(ctx, "numeric sum is not implemented for type %s", vec.Typ)
	}
	switch rtyp.Oid {
	case types.T_int64:
		return sumFixed(rtyp, castToInt64(vec), vec.Nsp, groups), nil
	case types.T_uint64:
		return sumFixed(rtyp, castToUint64(vec), vec.Nsp, groups), nil
	case types.T_float32:
		return sumFixed(rtyp, vector.MustFixedCol[float32](vec), vec.Nsp, groups), nil
	case types.T_float64:
		return sumFixed(rtyp, vector.MustFixedCol[float64](vec), vec.Nsp, groups), nil
	}
	// decimal sums over the raw int128 limbs; the result keeps the scale
	// at maximum width.
	return sumDecimal(rtyp, vector.MustFixedCol[types.Decimal128](vec), vec.Nsp, groups), nil
}

func sumFixed[T sum.Summable](rtyp types.Type, xs []T, nsp *nulls.Nulls, groups GroupIndices) *vector.Vector {
	if groups == nil {
		s, ok := sum.Sum(xs, nsp)
		return makeResult(rtyp, []T{s}, []bool{ok})
	}
	sums, valid := sum.GroupedSum(xs, groups, nsp)
	return makeResult(rtyp, sums, valid)
}

func sumDecimal(rtyp types.Type, xs []types.Decimal128, nsp *nulls.Nulls, groups GroupIndices) *vector.Vector {
	reduce := func(rows []uint64) (types.Decimal128, bool) {
		var acc types.Decimal128
		ok := false
		for _, row := range rows {
			if nulls.Contains(nsp, row) {
				continue
			}
			acc = acc.Add(xs[row])
			ok = true
		}
		return acc, ok
	}
	if groups == nil {
		all := make([]uint64, len(xs))
		for i := range all {
			all[i] = uint64(i)
		}
		s, ok := reduce(all)
		return makeResult(rtyp, []types.Decimal128{s}, []bool{ok})
	}
	sums := make([]types.Decimal128, len(groups))
	valid := make([]bool, len(groups))
	for i, group := range groups {
		sums[i], valid[i] = reduce(group)
	}
	return makeResult(rtyp, sums, valid)
}

// Mean promotes any numeric input to FLOAT64 before reducing.
func Mean(ctx context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	if !vec.Typ.Oid.IsNumeric() {
		return nil, moerr.NewTypeMismatch(ctx, "numeric mean is not implemented for type %s", vec.Typ)
	}
	xs := castToFloat64(vec)
	rtyp := types.New(types.T_float64)
	mean := func(rows []uint64) (float64, bool) {
		var s float64
		var n int
		for _, row := range rows {
			if nulls.Contains(vec.Nsp, row) {
				continue
			}
			s += xs[row]
			n++
		}
		if n == 0 {
			return 0, false
		}
		return s / float64(n), true
	}
	if groups == nil {
		all := allRows(len(xs))
		m, ok := mean(all)
		return makeResult(rtyp, []float64{m}, []bool{ok}), nil
	}
	means := make([]float64, len(groups))
	valid := make([]bool, len(groups))
	for i, group := range groups {
		means[i], valid[i] = mean(group)
	}
	return makeResult(rtyp, means, valid), nil
}

// Min reduces with the column's native comparison; no promotion.
func Min(ctx context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	return compareReduce(ctx, "min", vec, groups, true)
}

// Max reduces with the column's native comparison; no promotion.
func Max(ctx context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	return compareReduce(ctx, "max", vec, groups, false)
}

func compareReduce(ctx context.Context, name string, vec *vector.Vector, groups GroupIndices, least bool) (*vector.Vector, error) {
	switch vec.Col.(type) {
	case []bool:
		// false orders before true.
		before := func(a, b bool) bool { return !a && b }
		if !least {
			before = func(a, b bool) bool { return a && !b }
		}
		return reduceFixed(vec, groups, before), nil
	case []int8:
		return orderedReduce[int8](vec, groups, least), nil
	case []int16:
		return orderedReduce[int16](vec, groups, least), nil
	case []int32:
		return orderedReduce[int32](vec, groups, least), nil
	case []int64:
		return orderedReduce[int64](vec, groups, least), nil
	case []uint8:
		return orderedReduce[uint8](vec, groups, least), nil
	case []uint16:
		return orderedReduce[uint16](vec, groups, least), nil
	case []uint32:
		return orderedReduce[uint32](vec, groups, least), nil
	case []uint64:
		return orderedReduce[uint64](vec, groups, least), nil
	case []float32:
		return orderedReduce[float32](vec, groups, least), nil
	case []float64:
		return orderedReduce[float64](vec, groups, least), nil
	case []string:
		return orderedReduce[string](vec, groups, least), nil
	case [][]byte:
		before := func(a, b []byte) bool { return bytes.Compare(a, b) < 0 }
		if !least {
			before = func(a, b []byte) bool { return bytes.Compare(a, b) > 0 }
		}
		return reduceFixed(vec, groups, before), nil
	case []types.Decimal128:
		before := func(a, b types.Decimal128) bool { return a.Less(b) }
		if !least {
			before = func(a, b types.Decimal128) bool { return b.Less(a) }
		}
		return reduceFixed(vec, groups, before), nil
	}
	return nil, moerr.NewTypeMismatch(ctx, "%s is not implemented for type %s", name, vec.Typ)
}

func orderedReduce[T minmax.Ordered](vec *vector.Vector, groups GroupIndices, least bool) *vector.Vector {
	if least {
		return reduceFixed(vec, groups, minmax.Less[T])
	}
	return reduceFixed(vec, groups, minmax.Greater[T])
}

func reduceFixed[T any](vec *vector.Vector, groups GroupIndices, before func(a, b T) bool) *vector.Vector {
	xs := vector.MustFixedCol[T](vec)
	if groups == nil {
		best, ok := minmax.Reduce(xs, vec.Nsp, before)
		return makeResult(vec.Typ, []T{best}, []bool{ok})
	}
	out, valid := minmax.GroupedReduce(xs, groups, vec.Nsp, before)
	return makeResult(vec.Typ, out, valid)
}

func allRows(n int) []uint64 {
	rows := make([]uint64, n)
	for i := range rows {
		rows[i] = uint64(i)
	}
	return rows
}

func castToInt64(vec *vector.Vector) []int64 {
	switch col := vec.Col.(type) {
	case []int8:
		return typecast.NumericToNumeric[int8, int64](col)
	case []int16:
		return typecast.NumericToNumeric[int16, int64](col)
	case []int32:
		return typecast.NumericToNumeric[int32, int64](col)
	case []int64:
		return col
	}
	return nil
}

func castToUint64(vec *vector.Vector) []uint64 {
	switch col := vec.Col.(type) {
	case []uint8:
		return typecast.NumericToNumeric[uint8, uint64](col)
	case []uint16:
		return typecast.NumericToNumeric[uint16, uint64](col)
	case []uint32:
		return typecast.NumericToNumeric[uint32, uint64](col)
	case []uint64:
		return col
	}
	return nil
}

func castToFloat64(vec *vector.Vector) []float64 {
	switch col := vec.Col.(type) {
	case []int8:
		return typecast.NumericToNumeric[int8, float64](col)
	case []int16:
		return typecast.NumericToNumeric[int16, float64](col)
	case []int32:
		return typecast.NumericToNumeric[int32, float64](col)
	case []int64:
		return typecast.NumericToNumeric[int64, float64](col)
	case []uint8:
		return typecast.NumericToNumeric[uint8, float64](col)
	case []uint16:
		return typecast.NumericToNumeric[uint16, float64](col)
	case []uint32:
		return typecast.NumericToNumeric[uint32, float64](col)
	case []uint64:
		return typecast.NumericToNumeric[uint64, float64](col)
	case []float32:
		return typecast.NumericToNumeric[float32, float64](col)
	case []float64:
		return col
	}
	return nil
}
