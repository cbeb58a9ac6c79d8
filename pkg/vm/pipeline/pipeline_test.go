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

package pipeline

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/testutil"
	"github.com/skiffdata/skiff/pkg/vm"
)

func int64Schema(attrs ...string) *plan.Schema {
	typs := make([]types.Type, len(attrs))
	for i := range typs {
		typs[i] = types.New(types.T_int64)
	}
	return plan.NewSchema(attrs, typs)
}

func memScan(key string) *plan.InMemoryScan {
	return &plan.InMemoryScan{CacheKey: key, Sch: int64Schema("v")}
}

func totalRows(bats []*batch.Batch) int {
	n := 0
	for _, bat := range bats {
		n += bat.RowCount()
	}
	return n
}

func column(t *testing.T, bats []*batch.Batch, attr string) *vector.Vector {
	t.Helper()
	require.Len(t, bats, 1)
	pos := bats[0].Pos(attr)
	require.GreaterOrEqual(t, pos, 0)
	return bats[0].Vecs[pos]
}

func TestCompileAggregateShape(t *testing.T) {
	proc := testutil.NewProc()
	node := &plan.UngroupedAggregate{
		Input: memScan("t"),
		Aggs:  []*plan.AggExpr{{Op: plan.AggSum, Child: plan.Col("v"), As: "s"}},
	}
	tree, err := Compile(proc, node, map[string][]*batch.Batch{"t": nil})
	require.NoError(t, err)

	// final projection over a combine sink over a streaming partial
	require.Equal(t, vm.NodeIntermediate, tree.Kind)
	combine := tree.Children[0]
	require.Equal(t, vm.NodeSingleSink, combine.Kind)
	partial := combine.Children[0]
	require.Equal(t, vm.NodeIntermediate, partial.Kind)
	require.Equal(t, vm.NodeSource, partial.Children[0].Kind)
	require.Equal(t, 4, tree.StageCount())
}

func TestCompileMissingCacheKey(t *testing.T) {
	proc := testutil.NewProc()
	_, err := Compile(proc, memScan("absent"), nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
}

type bogusNode struct{}

func (*bogusNode) Schema() *plan.Schema { return nil }

func TestCompileUnknownNode(t *testing.T) {
	proc := testutil.NewProc()
	_, err := Compile(proc, &bogusNode{}, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNYI))
}

func TestExecuteFilterProject(t *testing.T) {
	psets := map[string][]*batch.Batch{
		"t": {
			testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{1, 6, 3})),
			testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{9, 2})),
		},
	}
	root := &plan.Project{
		Input: &plan.Filter{
			Input:     memScan("t"),
			Predicate: plan.Func(plan.FuncGt, plan.Col("v"), &plan.ConstExpr{Value: int64(4), Typ: types.New(types.T_int64)}),
		},
		Exprs: []plan.Expr{plan.Alias(plan.Func(plan.FuncMul, plan.Col("v"), plan.Col("v")), "sq")},
	}
	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)

	var got []int64
	for _, bat := range bats {
		got = append(got, vector.MustFixedCol[int64](bat.Vecs[0])...)
	}
	require.ElementsMatch(t, []int64{36, 81}, got)
}

func TestExecuteUngroupedAggregate(t *testing.T) {
	psets := map[string][]*batch.Batch{
		"t": {
			testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{1, 2, 0}, 2)),
			testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{3, 4})),
		},
	}
	root := &plan.UngroupedAggregate{
		Input: memScan("t"),
		Aggs: []*plan.AggExpr{
			{Op: plan.AggSum, Child: plan.Col("v"), As: "s"},
			{Op: plan.AggCount, Child: plan.Col("v"), As: "n", Mode: 0},
			{Op: plan.AggMean, Child: plan.Col("v"), As: "m"},
		},
	}
	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)
	require.Equal(t, 1, totalRows(bats))

	require.Equal(t, []int64{10}, vector.MustFixedCol[int64](column(t, bats, "s")))
	require.Equal(t, []uint64{5}, vector.MustFixedCol[uint64](column(t, bats, "n")))
	require.Equal(t, []float64{2.5}, vector.MustFixedCol[float64](column(t, bats, "m")))
}

func TestExecuteUngroupedAggregateOverEmptyInput(t *testing.T) {
	psets := map[string][]*batch.Batch{"t": nil}
	root := &plan.UngroupedAggregate{
		Input: memScan("t"),
		Aggs: []*plan.AggExpr{
			{Op: plan.AggCount, Child: plan.Col("v"), As: "n"},
			{Op: plan.AggSum, Child: plan.Col("v"), As: "s"},
		},
	}
	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)
	require.Equal(t, 1, totalRows(bats))
	require.Equal(t, []uint64{0}, vector.MustFixedCol[uint64](column(t, bats, "n")))
	require.True(t, nulls.Contains(column(t, bats, "s").Nsp, 0), "sum of nothing is NULL")
}

func groupedScan(key string) *plan.InMemoryScan {
	return &plan.InMemoryScan{
		CacheKey: key,
		Sch: plan.NewSchema([]string{"k", "v"},
			[]types.Type{types.New(types.T_varchar), types.New(types.T_int64)}),
	}
}

func TestExecuteGroupedAggregateIgnoresBatchSplit(t *testing.T) {
	build := func(split int) map[string][]*batch.Batch {
		ks := []string{"x", "y", "x", "y"}
		vs := []int64{1, 10, 2, 20}
		var bats []*batch.Batch
		for lo := 0; lo < len(ks); lo += split {
			hi := lo + split
			if hi > len(ks) {
				hi = len(ks)
			}
			bats = append(bats, testutil.NewBatch([]string{"k", "v"},
				testutil.NewStringVector(ks[lo:hi]),
				testutil.NewInt64Vector(vs[lo:hi])))
		}
		return map[string][]*batch.Batch{"t": bats}
	}

	for _, split := range []int{1, 2, 4} {
		root := &plan.HashAggregate{
			Input:   groupedScan("t"),
			Aggs:    []*plan.AggExpr{{Op: plan.AggSum, Child: plan.Col("v"), As: "s"}},
			GroupBy: []plan.Expr{plan.Col("k")},
		}
		bats, err := Execute(context.Background(), root, build(split), nil)
		require.NoError(t, err)
		require.Equal(t, 2, totalRows(bats))

		sums := map[string]int64{}
		keys := vector.MustFixedCol[string](column(t, bats, "k"))
		vals := vector.MustFixedCol[int64](column(t, bats, "s"))
		for i, k := range keys {
			sums[k] = vals[i]
		}
		require.Equal(t, map[string]int64{"x": 3, "y": 30}, sums, "split=%d", split)
	}
}

func TestExecuteConcatKeepsSideOrder(t *testing.T) {
	psets := map[string][]*batch.Batch{
		"a": {
			testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{1})),
			testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{2})),
		},
		"b": {
			testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{3})),
		},
	}
	root := &plan.Concat{Input: memScan("a"), Other: memScan("b")}
	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)

	var got []int64
	for _, bat := range bats {
		got = append(got, vector.MustFixedCol[int64](bat.Vecs[0])...)
	}
	require.Equal(t, []int64{1, 2, 3}, got)
}

func TestExecuteSortDescending(t *testing.T) {
	psets := map[string][]*batch.Batch{
		"t": {
			testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{3, 1})),
			testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{2})),
		},
	}
	root := &plan.Sort{Input: memScan("t"), By: []plan.Expr{plan.Col("v")}, Descending: []bool{true}}
	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2, 1}, vector.MustFixedCol[int64](column(t, bats, "v")))
}

func TestExecuteHashJoin(t *testing.T) {
	users := &plan.InMemoryScan{
		CacheKey: "users",
		Sch: plan.NewSchema([]string{"id", "name"},
			[]types.Type{types.New(types.T_int64), types.New(types.T_varchar)}),
	}
	orders := &plan.InMemoryScan{
		CacheKey: "orders",
		Sch: plan.NewSchema([]string{"uid", "amount"},
			[]types.Type{types.New(types.T_int64), types.New(types.T_int64)}),
	}
	psets := map[string][]*batch.Batch{
		"users": {testutil.NewBatch([]string{"id", "name"},
			testutil.NewInt64Vector([]int64{1, 2}),
			testutil.NewStringVector([]string{"ada", "bob"}))},
		"orders": {testutil.NewBatch([]string{"uid", "amount"},
			testutil.NewInt64Vector([]int64{2, 2, 3}),
			testutil.NewInt64Vector([]int64{5, 7, 9}))},
	}
	root := &plan.HashJoin{
		Left:    users,
		Right:   orders,
		LeftOn:  []plan.Expr{plan.Col("id")},
		RightOn: []plan.Expr{plan.Col("uid")},
		Typ:     plan.JoinInner,
	}
	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)
	require.Equal(t, 2, totalRows(bats))
	require.Equal(t, []string{"bob", "bob"}, vector.MustFixedCol[string](column(t, bats, "name")))
	require.ElementsMatch(t, []int64{5, 7}, vector.MustFixedCol[int64](column(t, bats, "amount")))
}

// countingTask produces batches until told to stop and remembers how many it
// handed out.
type countingTask struct {
	mu       sync.Mutex
	produced int
	max      int
	rows     int
}

func (t *countingTask) Read(ctx context.Context) (*batch.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.produced >= t.max {
		return nil, nil
	}
	t.produced++
	vals := make([]int64, t.rows)
	for i := range vals {
		vals[i] = int64(t.produced)
	}
	return testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector(vals)), nil
}

func (t *countingTask) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.produced
}

func TestExecuteLimitLeavesPsetBatchesIntact(t *testing.T) {
	bat := testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector([]int64{1, 2, 3, 4, 5}))
	psets := map[string][]*batch.Batch{"t": {bat}}
	root := &plan.Limit{Input: memScan("t"), Count: 3}

	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)
	require.Equal(t, 3, totalRows(bats))

	// caller-owned batches are shared by reference; the query must not
	// truncate them
	require.Equal(t, 5, bat.RowCount())
	require.Equal(t, []int64{1, 2, 3, 4, 5}, vector.MustFixedCol[int64](bat.Vecs[0]))
}

func TestExecuteLimitStopsUpstream(t *testing.T) {
	task := &countingTask{max: 10000, rows: 4}
	root := &plan.Limit{
		Input: &plan.PhysicalScan{Tasks: []plan.ScanTask{task}, Sch: int64Schema("v")},
		Count: 10,
	}
	bats, err := Execute(context.Background(), root, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 10, totalRows(bats))
	require.Less(t, task.count(), 100, "limit must stop the scan early")
}

func TestExecuteCancellationBoundsProduction(t *testing.T) {
	task := &countingTask{max: math.MaxInt32, rows: 1}
	// a sort sink never finishes against an endless scan, so only
	// cancellation can end this query
	root := &plan.Sort{
		Input:      &plan.PhysicalScan{Tasks: []plan.ScanTask{task}, Sch: int64Schema("v")},
		By:         []plan.Expr{plan.Col("v")},
		Descending: []bool{false},
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := Execute(ctx, root, nil, nil)
	require.Error(t, err)
}

func TestExecuteApproxAggregations(t *testing.T) {
	n := 2000
	vals := make([]int64, n)
	for i := range vals {
		vals[i] = int64(i + 1)
	}
	psets := map[string][]*batch.Batch{
		"t": {testutil.NewBatch([]string{"v"}, testutil.NewInt64Vector(vals))},
	}
	root := &plan.UngroupedAggregate{
		Input: memScan("t"),
		Aggs: []*plan.AggExpr{
			{Op: plan.AggApproxPercentile, Child: plan.Col("v"), As: "p50", Quantile: 0.5},
			{Op: plan.AggApproxCountDistinct, Child: plan.Col("v"), As: "nd"},
		},
	}
	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)

	p50 := vector.MustFixedCol[float64](column(t, bats, "p50"))[0]
	require.InDelta(t, float64(n)/2, p50, float64(n)*0.05)

	nd := vector.MustFixedCol[uint64](column(t, bats, "nd"))[0]
	require.InDelta(t, float64(n), float64(nd), float64(n)*0.05)
}

// scan -> filter -> project -> grouped aggregate -> sort -> limit, the whole
// stack in one query.
func TestExecuteEndToEnd(t *testing.T) {
	ks := []string{"a", "b", "a", "c", "b", "a", "c", "b"}
	vs := []int64{5, 1, 7, 2, 8, 3, 9, 4}
	psets := map[string][]*batch.Batch{
		"t": {
			testutil.NewBatch([]string{"k", "v"},
				testutil.NewStringVector(ks[:4]), testutil.NewInt64Vector(vs[:4])),
			testutil.NewBatch([]string{"k", "v"},
				testutil.NewStringVector(ks[4:]), testutil.NewInt64Vector(vs[4:])),
		},
	}
	aggSch := plan.NewSchema([]string{"k", "s"},
		[]types.Type{types.New(types.T_varchar), types.New(types.T_int64)})
	root := &plan.Limit{
		Count: 2,
		Input: &plan.Sort{
			By:         []plan.Expr{plan.Col("s")},
			Descending: []bool{true},
			Input: &plan.HashAggregate{
				Aggs:    []*plan.AggExpr{{Op: plan.AggSum, Child: plan.Col("v"), As: "s"}},
				GroupBy: []plan.Expr{plan.Col("k")},
				Sch:     aggSch,
				Input: &plan.Project{
					Exprs: []plan.Expr{plan.Col("k"), plan.Alias(plan.Func(plan.FuncAdd, plan.Col("v"), plan.Col("v")), "v")},
					Sch:   groupedScan("t").Schema(),
					Input: &plan.Filter{
						Input:     groupedScan("t"),
						Predicate: plan.Func(plan.FuncGt, plan.Col("v"), &plan.ConstExpr{Value: int64(2), Typ: types.New(types.T_int64)}),
					},
				},
			},
		},
	}

	// rows kept: a:5, a:7, b:8, a:3, c:9, b:4; doubled and summed per key:
	// a=30, b=24, c=18; top two by sum descending
	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)
	require.Equal(t, 2, totalRows(bats))

	got := map[string]int64{}
	for _, bat := range bats {
		keys := vector.MustFixedCol[string](bat.Vecs[bat.Pos("k")])
		sums := vector.MustFixedCol[int64](bat.Vecs[bat.Pos("s")])
		for i, k := range keys {
			got[k] = sums[i]
		}
	}
	require.Equal(t, map[string]int64{"a": 30, "b": 24}, got)
}

func TestExecuteAnyValueAndList(t *testing.T) {
	psets := map[string][]*batch.Batch{
		"t": {testutil.NewBatch([]string{"k", "v"},
			testutil.NewStringVector([]string{"x", "x", "y"}),
			testutil.NewInt64Vector([]int64{0, 7, 9}, 0))},
	}
	root := &plan.HashAggregate{
		Input:   groupedScan("t"),
		Aggs:    []*plan.AggExpr{{Op: plan.AggAnyValue, Child: plan.Col("v"), As: "any", IgnoreNulls: true}},
		GroupBy: []plan.Expr{plan.Col("k")},
	}
	bats, err := Execute(context.Background(), root, psets, nil)
	require.NoError(t, err)

	keys := vector.MustFixedCol[string](column(t, bats, "k"))
	anyv := vector.MustFixedCol[int64](column(t, bats, "any"))
	got := map[string]int64{}
	for i, k := range keys {
		got[k] = anyv[i]
	}
	require.Equal(t, map[string]int64{"x": 7, "y": 9}, got)
}
