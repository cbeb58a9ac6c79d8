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
	"fmt"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/sql/colexec/agg"
)

// StageAggregations splits one logical aggregation list into the partial
// (streaming, per batch), combine (blocking, over all partials) and final
// projection stages. Partial columns are namespaced "<col>.<op>" so the same
// input column can carry several aggregations; identical partials are
// computed once.
//
// Invariant: the partial stage's output schema is exactly the combine
// stage's input, and the final projection reads only combine outputs plus
// the group-by keys.
func StageAggregations(ctx context.Context, aggs []*AggExpr, groupBy []Expr) (first, second []*AggExpr, final []Expr, err error) {
	for _, key := range groupBy {
		final = append(final, Col(ExprName(key)))
	}

	seen := make(map[string]bool)
	addPartial := func(p *AggExpr) {
		if !seen[p.As] {
			seen[p.As] = true
			first = append(first, p)
		}
	}
	addCombine := func(c *AggExpr) {
		// first and second stages mirror each other one partial at a time,
		// so the same dedupe key applies.
		for _, have := range second {
			if have.As == c.As {
				return
			}
		}
		second = append(second, c)
	}

	for _, a := range aggs {
		base := ExprName(a.Child)
		out := a.As
		if out == "" {
			out = base
		}
		switch a.Op {
		case AggSum:
			p := partialName(base, "sum")
			addPartial(&AggExpr{Op: AggSum, Child: a.Child, As: p})
			addCombine(&AggExpr{Op: AggSum, Child: Col(p), As: p})
			final = append(final, Alias(Col(p), out))
		case AggCount:
			p := partialName(base, fmt.Sprintf("count_%s", a.Mode))
			addPartial(&AggExpr{Op: AggCount, Child: a.Child, As: p, Mode: a.Mode})
			addCombine(&AggExpr{Op: AggSum, Child: Col(p), As: p})
			final = append(final, Alias(Col(p), out))
		case AggMean:
			ps := partialName(base, "sum")
			pn := partialName(base, fmt.Sprintf("count_%s", agg.CountValid))
			addPartial(&AggExpr{Op: AggSum, Child: a.Child, As: ps})
			addPartial(&AggExpr{Op: AggCount, Child: a.Child, As: pn, Mode: agg.CountValid})
			addCombine(&AggExpr{Op: AggSum, Child: Col(ps), As: ps})
			addCombine(&AggExpr{Op: AggSum, Child: Col(pn), As: pn})
			final = append(final, Alias(
				Func(FuncDiv,
					Func(FuncCastFloat64, Col(ps)),
					Func(FuncCastFloat64, Col(pn))),
				out))
		case AggMin, AggMax:
			p := partialName(base, a.Op.String())
			addPartial(&AggExpr{Op: a.Op, Child: a.Child, As: p})
			addCombine(&AggExpr{Op: a.Op, Child: Col(p), As: p})
			final = append(final, Alias(Col(p), out))
		case AggAnyValue:
			p := partialName(base, "any_value")
			addPartial(&AggExpr{Op: AggAnyValue, Child: a.Child, As: p, IgnoreNulls: a.IgnoreNulls})
			addCombine(&AggExpr{Op: AggAnyValue, Child: Col(p), As: p, IgnoreNulls: a.IgnoreNulls})
			final = append(final, Alias(Col(p), out))
		case AggList:
			p := partialName(base, "list")
			addPartial(&AggExpr{Op: AggList, Child: a.Child, As: p})
			addCombine(&AggExpr{Op: AggConcat, Child: Col(p), As: p})
			final = append(final, Alias(Col(p), out))
		case AggConcat:
			p := partialName(base, "concat")
			addPartial(&AggExpr{Op: AggConcat, Child: a.Child, As: p})
			addCombine(&AggExpr{Op: AggConcat, Child: Col(p), As: p})
			final = append(final, Alias(Col(p), out))
		case AggApproxPercentile:
			p := partialName(base, "sketch")
			addPartial(&AggExpr{Op: AggApproxSketch, Child: a.Child, As: p})
			addCombine(&AggExpr{Op: AggMergeSketch, Child: Col(p), As: p})
			final = append(final, Alias(
				Func(FuncSketchPercentile, Col(p), &ConstExpr{Value: a.Quantile, Typ: types.New(types.T_float64)}),
				out))
		case AggApproxCountDistinct:
			p := partialName(base, "hll")
			addPartial(&AggExpr{Op: AggHLLSketch, Child: a.Child, As: p})
			addCombine(&AggExpr{Op: AggHLLMerge, Child: Col(p), As: p})
			final = append(final, Alias(Func(FuncHLLCount, Col(p)), out))
		default:
			return nil, nil, nil, moerr.NewInvalidInput(ctx, "cannot stage aggregation %s", a.Op)
		}
	}
	return first, second, final, nil
}

func partialName(base, op string) string {
	return base + "." + op
}
