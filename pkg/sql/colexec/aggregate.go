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
	"context"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/sql/colexec/agg"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

// Grouping is the row partition a set of key vectors induces over a batch.
// FirstRows holds, per group, the first row carrying that key, which is how
// key columns are materialized into the output.
type Grouping struct {
	Groups    agg.GroupIndices
	FirstRows []int64
}

// BuildGroups partitions rows 0..n-1 by their encoded key. NULL key cells
// participate: rows whose keys match null-for-null land in the same group.
func BuildGroups(ctx context.Context, keyVecs []*vector.Vector, n int) (*Grouping, error) {
	keys, _, err := EncodeRowKeys(ctx, keyVecs, n)
	if err != nil {
		return nil, err
	}
	g := &Grouping{}
	index := make(map[string]int, n)
	for i := 0; i < n; i++ {
		gi, ok := index[keys[i]]
		if !ok {
			gi = len(g.Groups)
			index[keys[i]] = gi
			g.Groups = append(g.Groups, nil)
			g.FirstRows = append(g.FirstRows, int64(i))
		}
		g.Groups[gi] = append(g.Groups[gi], uint64(i))
	}
	return g, nil
}

// RunAggregation evaluates aggs over bat, partitioned by groupBy. With no
// group-by keys the whole batch is one group and the result is a single
// row. The output batch carries the key columns first, then one column per
// aggregation, named by its As.
func RunAggregation(proc *process.Process, bat *batch.Batch, aggs []*plan.AggExpr, groupBy []plan.Expr) (*batch.Batch, error) {
	var groups agg.GroupIndices
	out := batch.New(nil)

	if len(groupBy) > 0 {
		keyVecs := make([]*vector.Vector, len(groupBy))
		for i, key := range groupBy {
			vec, err := EvalExpr(proc, bat, key)
			if err != nil {
				return nil, err
			}
			keyVecs[i] = vec
		}
		grouping, err := BuildGroups(proc.Ctx, keyVecs, bat.RowCount())
		if err != nil {
			return nil, err
		}
		groups = grouping.Groups
		for i, key := range groupBy {
			out.Attrs = append(out.Attrs, plan.ExprName(key))
			out.Vecs = append(out.Vecs, keyVecs[i].Take(grouping.FirstRows))
		}
		out.SetRowCount(len(groups))
	} else {
		out.SetRowCount(1)
	}

	for _, a := range aggs {
		vec, err := EvalExpr(proc, bat, a.Child)
		if err != nil {
			return nil, err
		}
		res, err := applyAgg(proc, a, vec, groups)
		if err != nil {
			return nil, err
		}
		out.Attrs = append(out.Attrs, plan.ExprName(a))
		out.Vecs = append(out.Vecs, res)
	}
	return out, nil
}

func applyAgg(proc *process.Process, a *plan.AggExpr, vec *vector.Vector, groups agg.GroupIndices) (*vector.Vector, error) {
	ctx := proc.Ctx
	switch a.Op {
	case plan.AggSum:
		return agg.Sum(ctx, vec, groups)
	case plan.AggCount:
		return agg.Count(ctx, vec, groups, a.Mode)
	case plan.AggMean:
		return agg.Mean(ctx, vec, groups)
	case plan.AggMin:
		return agg.Min(ctx, vec, groups)
	case plan.AggMax:
		return agg.Max(ctx, vec, groups)
	case plan.AggAnyValue:
		return agg.AnyValue(ctx, vec, groups, a.IgnoreNulls)
	case plan.AggList:
		return agg.AggList(ctx, vec, groups)
	case plan.AggConcat:
		return agg.AggConcat(ctx, vec, groups)
	case plan.AggApproxSketch:
		return agg.ApproxSketch(ctx, vec, groups)
	case plan.AggMergeSketch:
		return agg.MergeSketch(ctx, vec, groups)
	case plan.AggHLLSketch:
		return agg.HLLSketch(ctx, vec, groups)
	case plan.AggHLLMerge:
		return agg.HLLMerge(ctx, vec, groups)
	case plan.AggApproxPercentile, plan.AggApproxCountDistinct:
		return nil, moerr.NewInternalError(ctx, "aggregation %s must be staged before execution", a.Op)
	default:
		return nil, moerr.NewNYI(ctx, "aggregation %s", a.Op)
	}
}
