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

	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/vector"
)

// AnyValue picks one representative row per group (or one row globally) as
// an index selection followed by a generic gather, so it works uniformly
// over every physical type including lists and sketches.
//
// Policy for ignoreNulls on an all-NULL group: the result row is NULL. An
// empty group, or an empty ungrouped column, is NULL as well.
func AnyValue(_ context.Context, vec *vector.Vector, groups GroupIndices, ignoreNulls bool) (*vector.Vector, error) {
	var sels []int64
	if groups == nil {
		sels = []int64{anyValueSel(vec, allRows(vec.Length()), ignoreNulls)}
	} else {
		sels = make([]int64, len(groups))
		for i, group := range groups {
			sels[i] = anyValueSel(vec, group, ignoreNulls)
		}
	}
	return vec.Take(sels), nil
}

func anyValueSel(vec *vector.Vector, rows []uint64, ignoreNulls bool) int64 {
	if len(rows) == 0 {
		return -1
	}
	if ignoreNulls && nulls.Any(vec.Nsp) {
		for _, row := range rows {
			if !nulls.Contains(vec.Nsp, row) {
				return int64(row)
			}
		}
		return -1
	}
	return int64(rows[0])
}
