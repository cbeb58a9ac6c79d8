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

package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skiffdata/skiff/pkg/sql/colexec/agg"
)

func partialNames(aggs []*AggExpr) []string {
	names := make([]string, 0, len(aggs))
	for _, a := range aggs {
		names = append(names, a.As)
	}
	return names
}

func TestStageSum(t *testing.T) {
	first, second, final, err := StageAggregations(context.TODO(),
		[]*AggExpr{{Op: AggSum, Child: Col("a"), As: "total"}}, nil)
	require.NoError(t, err)

	require.Equal(t, []string{"a.sum"}, partialNames(first))
	require.Equal(t, AggSum, first[0].Op)

	require.Equal(t, []string{"a.sum"}, partialNames(second))
	require.Equal(t, AggSum, second[0].Op)

	require.Len(t, final, 1)
	alias, ok := final[0].(*AliasExpr)
	require.True(t, ok)
	require.Equal(t, "total", alias.As)
}

func TestStageCountBecomesSum(t *testing.T) {
	first, second, _, err := StageAggregations(context.TODO(),
		[]*AggExpr{{Op: AggCount, Child: Col("a"), As: "n", Mode: agg.CountAll}}, nil)
	require.NoError(t, err)
	require.Equal(t, AggCount, first[0].Op)
	require.Equal(t, AggSum, second[0].Op, "combine stage sums partial counts")
}

func TestStageMeanSharesSumPartial(t *testing.T) {
	first, second, final, err := StageAggregations(context.TODO(), []*AggExpr{
		{Op: AggSum, Child: Col("a"), As: "s"},
		{Op: AggMean, Child: Col("a"), As: "m"},
	}, nil)
	require.NoError(t, err)

	// sum(a) and the sum half of mean(a) collapse into one partial.
	require.Equal(t, []string{"a.sum", "a.count_valid"}, partialNames(first))
	require.Equal(t, []string{"a.sum", "a.count_valid"}, partialNames(second))

	require.Len(t, final, 2)
	mean, ok := final[1].(*AliasExpr)
	require.True(t, ok)
	require.Equal(t, "m", mean.As)
	div, ok := mean.Child.(*FuncExpr)
	require.True(t, ok)
	require.Equal(t, FuncDiv, div.Op)
	require.Len(t, div.Args, 2)
}

func TestStageGroupKeysLeadFinal(t *testing.T) {
	_, _, final, err := StageAggregations(context.TODO(),
		[]*AggExpr{{Op: AggMax, Child: Col("v"), As: "mx"}},
		[]Expr{Col("k1"), Col("k2")})
	require.NoError(t, err)
	require.Len(t, final, 3)
	require.Equal(t, "k1", ExprName(final[0]))
	require.Equal(t, "k2", ExprName(final[1]))
	require.Equal(t, "mx", ExprName(final[2]))
}

func TestStageApproxOps(t *testing.T) {
	first, second, final, err := StageAggregations(context.TODO(), []*AggExpr{
		{Op: AggApproxPercentile, Child: Col("lat"), As: "p99", Quantile: 0.99},
		{Op: AggApproxCountDistinct, Child: Col("user"), As: "u"},
	}, nil)
	require.NoError(t, err)

	require.Equal(t, AggApproxSketch, first[0].Op)
	require.Equal(t, AggMergeSketch, second[0].Op)
	require.Equal(t, AggHLLSketch, first[1].Op)
	require.Equal(t, AggHLLMerge, second[1].Op)

	p99, ok := final[0].(*AliasExpr)
	require.True(t, ok)
	fn, ok := p99.Child.(*FuncExpr)
	require.True(t, ok)
	require.Equal(t, FuncSketchPercentile, fn.Op)

	u, ok := final[1].(*AliasExpr)
	require.True(t, ok)
	fn, ok = u.Child.(*FuncExpr)
	require.True(t, ok)
	require.Equal(t, FuncHLLCount, fn.Op)
}

func TestStageListConcat(t *testing.T) {
	first, second, _, err := StageAggregations(context.TODO(),
		[]*AggExpr{{Op: AggList, Child: Col("a"), As: "xs"}}, nil)
	require.NoError(t, err)
	require.Equal(t, AggList, first[0].Op)
	require.Equal(t, AggConcat, second[0].Op)
}
