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
	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/sql/colexec/concat"
	"github.com/skiffdata/skiff/pkg/sql/colexec/group"
	"github.com/skiffdata/skiff/pkg/sql/colexec/join"
	"github.com/skiffdata/skiff/pkg/sql/colexec/limit"
	"github.com/skiffdata/skiff/pkg/sql/colexec/mergegroup"
	"github.com/skiffdata/skiff/pkg/sql/colexec/order"
	"github.com/skiffdata/skiff/pkg/sql/colexec/projection"
	"github.com/skiffdata/skiff/pkg/sql/colexec/restrict"
	"github.com/skiffdata/skiff/pkg/sql/colexec/scan"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

// Compile lowers a physical plan into a pipeline stage tree. psets resolves
// in-memory scan keys; a missing key means the planner handed us an
// inconsistent plan.
func Compile(proc *process.Process, node plan.Node, psets map[string][]*batch.Batch) (*vm.PipelineNode, error) {
	switch n := node.(type) {
	case *plan.PhysicalScan:
		return vm.NewSourceNode(scan.NewTaskSource(n.Tasks)), nil

	case *plan.InMemoryScan:
		bats, ok := psets[n.CacheKey]
		if !ok {
			return nil, moerr.NewInternalError(proc.Ctx, "cache key %s not found in the pset map", n.CacheKey)
		}
		return vm.NewSourceNode(scan.NewMemorySource(n.CacheKey, bats)), nil

	case *plan.Project:
		child, err := Compile(proc, n.Input, psets)
		if err != nil {
			return nil, err
		}
		return vm.NewIntermediateNode(projection.New(n.Exprs), child), nil

	case *plan.Filter:
		child, err := Compile(proc, n.Input, psets)
		if err != nil {
			return nil, err
		}
		return vm.NewIntermediateNode(restrict.New(n.Predicate), child), nil

	case *plan.Limit:
		child, err := Compile(proc, n.Input, psets)
		if err != nil {
			return nil, err
		}
		return vm.NewIntermediateNode(limit.New(n.Count), child), nil

	case *plan.Concat:
		left, err := Compile(proc, n.Input, psets)
		if err != nil {
			return nil, err
		}
		right, err := Compile(proc, n.Other, psets)
		if err != nil {
			return nil, err
		}
		return vm.NewDoubleSinkNode(concat.New(), left, right), nil

	case *plan.Sort:
		child, err := Compile(proc, n.Input, psets)
		if err != nil {
			return nil, err
		}
		return vm.NewSingleSinkNode(order.New(n.By, n.Descending), child), nil

	case *plan.UngroupedAggregate:
		return compileAggregate(proc, n.Input, n.Aggs, nil, psets)

	case *plan.HashAggregate:
		return compileAggregate(proc, n.Input, n.Aggs, n.GroupBy, psets)

	case *plan.HashJoin:
		left, err := Compile(proc, n.Left, psets)
		if err != nil {
			return nil, err
		}
		right, err := Compile(proc, n.Right, psets)
		if err != nil {
			return nil, err
		}
		sink := join.New(n.Typ, n.LeftOn, n.RightOn, n.Left.Schema(), n.Right.Schema())
		return vm.NewDoubleSinkNode(sink, left, right), nil

	default:
		return nil, moerr.NewNYI(proc.Ctx, "physical plan node %T", node)
	}
}

// compileAggregate lowers one logical aggregation into the three-stage
// form: a streaming partial operator, a blocking combine sink and a final
// projection.
func compileAggregate(proc *process.Process, input plan.Node, aggs []*plan.AggExpr, groupBy []plan.Expr, psets map[string][]*batch.Batch) (*vm.PipelineNode, error) {
	child, err := Compile(proc, input, psets)
	if err != nil {
		return nil, err
	}

	first, second, final, err := plan.StageAggregations(proc.Ctx, aggs, groupBy)
	if err != nil {
		return nil, err
	}
	partialSch, err := plan.StageSchema(proc.Ctx, input.Schema(), first, groupBy)
	if err != nil {
		return nil, err
	}

	// The combine stage groups by the key columns as the partial stage
	// names them.
	combineKeys := make([]plan.Expr, len(groupBy))
	for i, key := range groupBy {
		combineKeys[i] = plan.Col(plan.ExprName(key))
	}

	partial := vm.NewIntermediateNode(group.New(first, groupBy), child)
	combine := vm.NewSingleSinkNode(mergegroup.New(second, combineKeys, partialSch), partial)
	return vm.NewIntermediateNode(projection.New(final), combine), nil
}
