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
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
)

// GroupIndices is an ordered sequence of groups, each an ordered sequence of
// row positions into the batch being aggregated. A nil GroupIndices selects
// the global (ungrouped) kernel variant, which reduces to a single row.
type GroupIndices [][]uint64

// CountMode controls which rows a count aggregation sees.
type CountMode uint8

const (
	// CountAll counts every row.
	CountAll CountMode = iota
	// CountValid counts non-NULL rows.
	CountValid
	// CountNull counts NULL rows.
	CountNull
)

func (m CountMode) String() string {
	switch m {
	case CountAll:
		return "all"
	case CountValid:
		return "valid"
	case CountNull:
		return "null"
	}
	return "unknown"
}

// makeResult wraps per-group reduction outputs into a vector, marking
// groups without any valid input row as NULL.
func makeResult[T any](typ types.Type, vals []T, valid []bool) *vector.Vector {
	var nsp *nulls.Nulls
	for i, ok := range valid {
		if !ok {
			if nsp == nil {
				nsp = nulls.Build()
			}
			nulls.Add(nsp, uint64(i))
		}
	}
	return vector.NewWithFixed(typ, vals, nsp)
}
