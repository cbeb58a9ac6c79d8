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

// Package minmax holds comparison reduction kernels. They run on the
// column's native physical type; min/max never promote.
package minmax

import "github.com/skiffdata/skiff/pkg/container/nulls"

type Ordered interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~string
}

// Reduce folds less-favored values away with the given comparator: pass a
// less function for min, a greater function for max.
func Reduce[T any](xs []T, nsp *nulls.Nulls, before func(a, b T) bool) (T, bool) {
	var best T
	ok := false
	for i, x := range xs {
		if nulls.Contains(nsp, uint64(i)) {
			continue
		}
		if !ok || before(x, best) {
			best = x
			ok = true
		}
	}
	return best, ok
}

func GroupedReduce[T any](xs []T, groups [][]uint64, nsp *nulls.Nulls, before func(a, b T) bool) ([]T, []bool) {
	out := make([]T, len(groups))
	valid := make([]bool, len(groups))
	for i, group := range groups {
		for _, row := range group {
			if nulls.Contains(nsp, row) {
				continue
			}
			if !valid[i] || before(xs[row], out[i]) {
				out[i] = xs[row]
				valid[i] = true
			}
		}
	}
	return out, valid
}

func Less[T Ordered](a, b T) bool {
	return a < b
}

func Greater[T Ordered](a, b T) bool {
	return a > b
}
