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

package agg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
)

func TestSumPromotesSignedToInt64(t *testing.T) {
	cases := []struct {
		name string
		vec  *vector.Vector
	}{
		{"int8", vector.NewWithFixed(types.New(types.T_int8), []int8{1, 2, 3}, nil)},
		{"int16", vector.NewWithFixed(types.New(types.T_int16), []int16{1, 2, 3}, nil)},
		{"int32", vector.NewWithFixed(types.New(types.T_int32), []int32{1, 2, 3}, nil)},
		{"int64", vector.NewWithFixed(types.New(types.T_int64), []int64{1, 2, 3}, nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Sum(context.TODO(), tc.vec, nil)
			require.NoError(t, err)
			require.Equal(t, types.T_int64, res.Typ.Oid)
			require.Equal(t, []int64{6}, vector.MustFixedCol[int64](res))
		})
	}
}

func TestSumPromotesUnsignedToUint64(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_uint8), []uint8{250, 250}, nil)
	res, err := Sum(context.TODO(), vec, nil)
	require.NoError(t, err)
	require.Equal(t, types.T_uint64, res.Typ.Oid)
	require.Equal(t, []uint64{500}, vector.MustFixedCol[uint64](res), "no uint8 wraparound")
}

func TestSumKeepsFloatWidth(t *testing.T) {
	f32 := vector.NewWithFixed(types.New(types.T_float32), []float32{1.5, 2.5}, nil)
	res, err := Sum(context.TODO(), f32, nil)
	require.NoError(t, err)
	require.Equal(t, types.T_float32, res.Typ.Oid)
	require.Equal(t, []float32{4}, vector.MustFixedCol[float32](res))
}

func TestSumSkipsNullsAndAllNullIsNull(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_int64), []int64{5, 100, 7}, nulls.Build(1))
	res, err := Sum(context.TODO(), vec, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{12}, vector.MustFixedCol[int64](res))

	allNull := vector.NewWithFixed(types.New(types.T_int64), []int64{1, 2}, nulls.Build(0, 1))
	res, err = Sum(context.TODO(), allNull, nil)
	require.NoError(t, err)
	require.True(t, nulls.Contains(res.Nsp, 0))
}

func TestSumDecimalCarriesAcrossLimbs(t *testing.T) {
	// two halves of 2^64 sum across the low-limb boundary
	half := types.Decimal128{Lo: 1 << 63}
	vec := vector.NewWithFixed(types.NewDecimal(20, 2), []types.Decimal128{half, half}, nil)
	res, err := Sum(context.TODO(), vec, nil)
	require.NoError(t, err)
	require.Equal(t, types.T_decimal128, res.Typ.Oid)
	got := vector.MustFixedCol[types.Decimal128](res)[0]
	require.Equal(t, types.Decimal128{Lo: 0, Hi: 1}, got)
	require.Equal(t, int32(2), res.Typ.Scale, "scale survives the sum")
}

func TestSumRejectsNonNumeric(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_varchar), []string{"a"}, nil)
	_, err := Sum(context.TODO(), vec, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTypeMismatch))
}

func TestCountModes(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_int64), []int64{1, 0, 3, 0}, nulls.Build(1, 3))
	cases := []struct {
		mode CountMode
		want uint64
	}{
		{CountAll, 4},
		{CountValid, 2},
		{CountNull, 2},
	}
	for _, tc := range cases {
		res, err := Count(context.TODO(), vec, nil, tc.mode)
		require.NoError(t, err)
		require.Equal(t, []uint64{tc.want}, vector.MustFixedCol[uint64](res), tc.mode.String())
	}
}

func TestCountGrouped(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_varchar), []string{"a", "b", "c", "d"}, nulls.Build(3))
	groups := GroupIndices{{0, 1}, {2, 3}}
	res, err := Count(context.TODO(), vec, groups, CountValid)
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 1}, vector.MustFixedCol[uint64](res))
}

func TestMeanPromotesToFloat64(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_int32), []int32{1, 2, 0, 3}, nulls.Build(2))
	res, err := Mean(context.TODO(), vec, nil)
	require.NoError(t, err)
	require.Equal(t, types.T_float64, res.Typ.Oid)
	require.Equal(t, []float64{2}, vector.MustFixedCol[float64](res))
}

func TestMinMaxKeepNativeTypeAndOrder(t *testing.T) {
	ints := vector.NewWithFixed(types.New(types.T_int64), []int64{4, -7, 9}, nil)
	res, err := Min(context.TODO(), ints, nil)
	require.NoError(t, err)
	require.Equal(t, types.T_int64, res.Typ.Oid)
	require.Equal(t, []int64{-7}, vector.MustFixedCol[int64](res))

	strs := vector.NewWithFixed(types.New(types.T_varchar), []string{"pear", "apple"}, nil)
	res, err = Max(context.TODO(), strs, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"pear"}, vector.MustFixedCol[string](res))

	bools := vector.NewWithFixed(types.New(types.T_bool), []bool{true, false}, nil)
	res, err = Min(context.TODO(), bools, nil)
	require.NoError(t, err)
	require.Equal(t, []bool{false}, vector.MustFixedCol[bool](res))
}

func TestMinMaxGroupedWithNulls(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_int64), []int64{5, 100, 2, 8}, nulls.Build(1))
	groups := GroupIndices{{0, 1}, {2, 3}}
	res, err := Max(context.TODO(), vec, groups)
	require.NoError(t, err)
	require.Equal(t, []int64{5, 8}, vector.MustFixedCol[int64](res))
}

func TestAnyValuePolicies(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_int64), []int64{0, 7, 0, 0}, nulls.Build(0, 2, 3))
	groups := GroupIndices{{0, 1}, {2, 3}}

	// ignoreNulls picks the first valid row; an all-NULL group stays NULL
	res, err := AnyValue(context.TODO(), vec, groups, true)
	require.NoError(t, err)
	require.Equal(t, int64(7), vector.MustFixedCol[int64](res)[0])
	require.False(t, nulls.Contains(res.Nsp, 0))
	require.True(t, nulls.Contains(res.Nsp, 1))

	// without ignoreNulls the first row wins even when NULL
	res, err = AnyValue(context.TODO(), vec, groups, false)
	require.NoError(t, err)
	require.True(t, nulls.Contains(res.Nsp, 0))
}

func TestAnyValueEmptyUngroupedIsNull(t *testing.T) {
	vec := vector.NewWithFixed[int64](types.New(types.T_int64), nil, nil)
	res, err := AnyValue(context.TODO(), vec, nil, true)
	require.NoError(t, err)
	require.Equal(t, 1, res.Length())
	require.True(t, nulls.Contains(res.Nsp, 0))
}

func TestAggListWrapsGroups(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_int64), []int64{1, 2, 3}, nil)
	res, err := AggList(context.TODO(), vec, GroupIndices{{0, 1}, {2}})
	require.NoError(t, err)
	require.Equal(t, types.T_list, res.Typ.Oid)
	cells := vector.MustFixedCol[*vector.Vector](res)
	require.Equal(t, []int64{1, 2}, vector.MustFixedCol[int64](cells[0]))
	require.Equal(t, []int64{3}, vector.MustFixedCol[int64](cells[1]))
}

func TestAggConcatFlattens(t *testing.T) {
	mk := func(vals ...int64) *vector.Vector {
		return vector.NewWithFixed(types.New(types.T_int64), vals, nil)
	}
	// concat over [[0,1],[2]] is [0,1,2]
	lists := vector.NewWithFixed(types.New(types.T_list), []*vector.Vector{mk(0, 1), mk(2)}, nil)
	res, err := AggConcat(context.TODO(), lists, nil)
	require.NoError(t, err)
	cells := vector.MustFixedCol[*vector.Vector](res)
	require.Len(t, cells, 1)
	require.Equal(t, []int64{0, 1, 2}, vector.MustFixedCol[int64](cells[0]))
}

func TestAggConcatRejectsNonList(t *testing.T) {
	vec := vector.NewWithFixed(types.New(types.T_int64), []int64{1}, nil)
	_, err := AggConcat(context.TODO(), vec, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTypeMismatch))
}

func TestAnyValueOverListColumn(t *testing.T) {
	inner := vector.NewWithFixed(types.New(types.T_int64), []int64{1, 2}, nil)
	lists := vector.NewWithFixed(types.New(types.T_list), []*vector.Vector{inner, nil}, nulls.Build(1))
	res, err := AnyValue(context.TODO(), lists, nil, true)
	require.NoError(t, err)
	cells := vector.MustFixedCol[*vector.Vector](res)
	require.Equal(t, []int64{1, 2}, vector.MustFixedCol[int64](cells[0]))
}
