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

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
)

// AggList wraps each group's rows into a single list-typed cell, or the
// whole column into one cell when ungrouped.
func AggList(_ context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	ltyp := types.New(types.T_list)
	if groups == nil {
		cell := vec.Take(toSels(allRows(vec.Length())))
		return vector.NewWithFixed(ltyp, []*vector.Vector{cell}, nil), nil
	}
	cells := make([]*vector.Vector, len(groups))
	for i, group := range groups {
		cells[i] = vec.Take(toSels(group))
	}
	return vector.NewWithFixed(ltyp, cells, nil), nil
}

// AggConcat concatenates the per-row list contents within each group into
// one list per group. Valid only for list columns; NULL rows contribute
// nothing.
func AggConcat(ctx context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	if vec.Typ.Oid != types.T_list {
		return nil, moerr.NewTypeMismatch(ctx, "concat aggregation is only valid for list types, got %s", vec.Typ)
	}
	cells := vector.MustFixedCol[*vector.Vector](vec)
	elem := elemType(cells)
	concat := func(rows []uint64) *vector.Vector {
		out := vector.New(elem)
		for _, row := range rows {
			if nulls.Contains(vec.Nsp, row) || cells[row] == nil {
				continue
			}
			out.Union(cells[row])
		}
		return out
	}
	ltyp := types.New(types.T_list)
	if groups == nil {
		return vector.NewWithFixed(ltyp, []*vector.Vector{concat(allRows(len(cells)))}, nil), nil
	}
	out := make([]*vector.Vector, len(groups))
	for i, group := range groups {
		out[i] = concat(group)
	}
	return vector.NewWithFixed(ltyp, out, nil), nil
}

// elemType recovers the element type from the first non-NULL cell; an
// all-NULL (or empty) list column has no recoverable element type.
func elemType(cells []*vector.Vector) types.Type {
	for _, cell := range cells {
		if cell != nil {
			return cell.Typ
		}
	}
	return types.New(types.T_any)
}

func toSels(rows []uint64) []int64 {
	sels := make([]int64, len(rows))
	for i, row := range rows {
		sels[i] = int64(row)
	}
	return sels
}
