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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/testutil"
)

func TestEvalColumnLookup(t *testing.T) {
	proc := testutil.NewProc()
	bat := testutil.NewBatch([]string{"a"}, testutil.NewInt64Vector([]int64{1, 2}))

	vec, err := EvalExpr(proc, bat, plan.Col("a"))
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, vector.MustFixedCol[int64](vec))

	_, err = EvalExpr(proc, bat, plan.Col("missing"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrSchemaMismatch))
}

func TestEvalComparePromotesMixedInts(t *testing.T) {
	proc := testutil.NewProc()
	bat := testutil.NewBatch([]string{"s", "u"},
		testutil.NewVector(types.T_int32, []int32{-1, 5, 9}),
		testutil.NewVector(types.T_uint8, []uint8{0, 5, 200}),
	)
	vec, err := EvalExpr(proc, bat, plan.Func(plan.FuncLt, plan.Col("s"), plan.Col("u")))
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true}, vector.MustFixedCol[bool](vec))
}

func TestEvalCompareNullPropagates(t *testing.T) {
	proc := testutil.NewProc()
	bat := testutil.NewBatch([]string{"a", "b"},
		testutil.NewInt64Vector([]int64{1, 2, 3}, 1),
		testutil.NewInt64Vector([]int64{1, 2, 0}, 2),
	)
	vec, err := EvalExpr(proc, bat, plan.Func(plan.FuncEq, plan.Col("a"), plan.Col("b")))
	require.NoError(t, err)
	require.False(t, nulls.Contains(vec.Nsp, 0))
	require.True(t, nulls.Contains(vec.Nsp, 1))
	require.True(t, nulls.Contains(vec.Nsp, 2))
}

func TestEvalArithKeepsIntegerFamily(t *testing.T) {
	proc := testutil.NewProc()
	bat := testutil.NewBatch([]string{"a", "b"},
		testutil.NewVector(types.T_int16, []int16{3, -4}),
		testutil.NewInt64Vector([]int64{10, 10}),
	)
	vec, err := EvalExpr(proc, bat, plan.Func(plan.FuncAdd, plan.Col("a"), plan.Col("b")))
	require.NoError(t, err)
	require.Equal(t, types.T_int64, vec.Typ.Oid)
	require.Equal(t, []int64{13, 6}, vector.MustFixedCol[int64](vec))
}

func TestEvalDivIsFloatAndZeroIsNull(t *testing.T) {
	proc := testutil.NewProc()
	bat := testutil.NewBatch([]string{"a", "b"},
		testutil.NewInt64Vector([]int64{6, 7}),
		testutil.NewInt64Vector([]int64{4, 0}),
	)
	vec, err := EvalExpr(proc, bat, plan.Func(plan.FuncDiv, plan.Col("a"), plan.Col("b")))
	require.NoError(t, err)
	require.Equal(t, types.T_float64, vec.Typ.Oid)
	require.Equal(t, 1.5, vector.MustFixedCol[float64](vec)[0])
	require.True(t, nulls.Contains(vec.Nsp, 1))
}

func TestEvalConstBroadcast(t *testing.T) {
	proc := testutil.NewProc()
	bat := testutil.NewBatch([]string{"a"}, testutil.NewInt64Vector([]int64{1, 2, 3}))

	vec, err := EvalExpr(proc, bat, &plan.ConstExpr{Value: int64(7), Typ: types.New(types.T_int64)})
	require.NoError(t, err)
	require.Equal(t, []int64{7, 7, 7}, vector.MustFixedCol[int64](vec))

	_, err = EvalExpr(proc, bat, &plan.ConstExpr{Value: "7", Typ: types.New(types.T_int64)})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTypeMismatch))
}

func TestEvalAggIsNotScalar(t *testing.T) {
	proc := testutil.NewProc()
	bat := testutil.NewBatch([]string{"a"}, testutil.NewInt64Vector([]int64{1}))
	_, err := EvalExpr(proc, bat, &plan.AggExpr{Op: plan.AggSum, Child: plan.Col("a")})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func TestEvalStringCompare(t *testing.T) {
	proc := testutil.NewProc()
	bat := testutil.NewBatch([]string{"a", "b"},
		testutil.NewStringVector([]string{"apple", "pear"}),
		testutil.NewStringVector([]string{"banana", "pear"}),
	)
	vec, err := EvalExpr(proc, bat, plan.Func(plan.FuncLe, plan.Col("a"), plan.Col("b")))
	require.NoError(t, err)
	require.Equal(t, []bool{true, true}, vector.MustFixedCol[bool](vec))
}
