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

// Package sum holds the pure slice reduction kernels behind the sum
// aggregation. Inputs are already promoted to their sum result type.
package sum

import "github.com/skiffdata/skiff/pkg/container/nulls"

type Summable interface {
	~int64 | ~uint64 | ~float32 | ~float64
}

// Sum reduces the whole column. ok is false when every row is NULL.
func Sum[T Summable](xs []T, nsp *nulls.Nulls) (T, bool) {
	var acc T
	ok := false
	if !nulls.Any(nsp) {
		for _, x := range xs {
			acc += x
		}
		return acc, len(xs) > 0
	}
	for i, x := range xs {
		if nulls.Contains(nsp, uint64(i)) {
			continue
		}
		acc += x
		ok = true
	}
	return acc, ok
}

// GroupedSum reduces each group independently. valid[i] is false when group
// i has no valid rows.
func GroupedSum[T Summable](xs []T, groups [][]uint64, nsp *nulls.Nulls) ([]T, []bool) {
	sums := make([]T, len(groups))
	valid := make([]bool, len(groups))
	for i, group := range groups {
		for _, row := range group {
			if nulls.Contains(nsp, row) {
				continue
			}
			sums[i] += xs[row]
			valid[i] = true
		}
	}
	return sums, valid
}
