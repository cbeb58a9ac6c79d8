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

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/types"
)

// ExprType resolves the static type of a column-shaped expression against a
// schema. It covers the shapes aggregation staging emits (columns, aliases,
// constants); general function typing stays at runtime.
func ExprType(ctx context.Context, s *Schema, e Expr) (types.Type, error) {
	switch expr := e.(type) {
	case *ColExpr:
		pos := s.Position(expr.Name)
		if pos < 0 {
			return types.Type{}, moerr.NewSchemaMismatch(ctx, "column %s not found in schema %v", expr.Name, s.Attrs)
		}
		return s.Types[pos], nil
	case *AliasExpr:
		return ExprType(ctx, s, expr.Child)
	case *ConstExpr:
		return expr.Typ, nil
	default:
		return types.Type{}, moerr.NewNYI(ctx, "static typing of %T", e)
	}
}

// AggType is the result type of one aggregation over a child of the given
// type.
func AggType(ctx context.Context, op AggOp, child types.Type) (types.Type, error) {
	switch op {
	case AggSum:
		promoted, ok := child.SumPromotion()
		if !ok {
			return types.Type{}, moerr.NewTypeMismatch(ctx, "numeric sum is not implemented for type %s", child)
		}
		return promoted, nil
	case AggCount:
		return types.New(types.T_uint64), nil
	case AggMean:
		return types.New(types.T_float64), nil
	case AggMin, AggMax, AggAnyValue:
		return child, nil
	case AggList, AggConcat:
		return types.New(types.T_list), nil
	case AggApproxSketch, AggMergeSketch:
		return types.New(types.T_sketch), nil
	case AggHLLSketch, AggHLLMerge:
		return types.New(types.T_varbinary), nil
	case AggApproxPercentile:
		return types.New(types.T_float64), nil
	case AggApproxCountDistinct:
		return types.New(types.T_uint64), nil
	default:
		return types.Type{}, moerr.NewNYI(ctx, "typing of aggregation %s", op)
	}
}

// StageSchema is the output schema of one aggregation stage: group keys
// first, one column per aggregation after.
func StageSchema(ctx context.Context, input *Schema, aggs []*AggExpr, groupBy []Expr) (*Schema, error) {
	out := &Schema{}
	for _, key := range groupBy {
		typ, err := ExprType(ctx, input, key)
		if err != nil {
			return nil, err
		}
		out.Attrs = append(out.Attrs, ExprName(key))
		out.Types = append(out.Types, typ)
	}
	for _, a := range aggs {
		child, err := ExprType(ctx, input, a.Child)
		if err != nil {
			return nil, err
		}
		typ, err := AggType(ctx, a.Op, child)
		if err != nil {
			return nil, err
		}
		out.Attrs = append(out.Attrs, ExprName(a))
		out.Types = append(out.Types, typ)
	}
	return out, nil
}
