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
	"bytes"
	"context"
	"sort"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
)

// SortOrder returns the stable row permutation that orders n rows by the
// given key vectors, most significant first. desc[i] flips the i-th key's
// direction. NULL cells sort after every value in both directions.
func SortOrder(ctx context.Context, vecs []*vector.Vector, desc []bool, n int) ([]int64, error) {
	for _, vec := range vecs {
		if vec.Typ.Oid == types.T_list || vec.Typ.Oid == types.T_sketch {
			return nil, moerr.NewTypeMismatch(ctx, "%s columns cannot be sort keys", vec.Typ)
		}
	}
	sels := make([]int64, n)
	for i := range sels {
		sels[i] = int64(i)
	}
	sort.SliceStable(sels, func(x, y int) bool {
		a, b := uint64(sels[x]), uint64(sels[y])
		for k, vec := range vecs {
			c := compareAt(vec, a, b)
			if c == 0 {
				continue
			}
			// null markers from compareAt already sort last; only value
			// comparisons honor the direction flag.
			if c == cmpNullFirst || c == cmpNullSecond {
				return c == cmpNullSecond
			}
			if desc[k] {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return sels, nil
}

const (
	cmpNullFirst  = 2  // left is NULL, right is not
	cmpNullSecond = -2 // right is NULL, left is not
)

func compareAt(vec *vector.Vector, a, b uint64) int {
	an := nulls.Contains(vec.Nsp, a)
	bn := nulls.Contains(vec.Nsp, b)
	switch {
	case an && bn:
		return 0
	case an:
		return cmpNullFirst
	case bn:
		return cmpNullSecond
	}
	switch vec.Typ.Oid {
	case types.T_bool:
		return cmpBool(vector.MustFixedCol[bool](vec), a, b)
	case types.T_int8:
		return cmpFixedAt(vector.MustFixedCol[int8](vec), a, b)
	case types.T_int16:
		return cmpFixedAt(vector.MustFixedCol[int16](vec), a, b)
	case types.T_int32:
		return cmpFixedAt(vector.MustFixedCol[int32](vec), a, b)
	case types.T_int64:
		return cmpFixedAt(vector.MustFixedCol[int64](vec), a, b)
	case types.T_uint8:
		return cmpFixedAt(vector.MustFixedCol[uint8](vec), a, b)
	case types.T_uint16:
		return cmpFixedAt(vector.MustFixedCol[uint16](vec), a, b)
	case types.T_uint32:
		return cmpFixedAt(vector.MustFixedCol[uint32](vec), a, b)
	case types.T_uint64:
		return cmpFixedAt(vector.MustFixedCol[uint64](vec), a, b)
	case types.T_float32:
		return cmpFixedAt(vector.MustFixedCol[float32](vec), a, b)
	case types.T_float64:
		return cmpFixedAt(vector.MustFixedCol[float64](vec), a, b)
	case types.T_decimal128:
		xs := vector.MustFixedCol[types.Decimal128](vec)
		return xs[a].Compare(xs[b])
	case types.T_varchar:
		return cmpFixedAt(vector.MustFixedCol[string](vec), a, b)
	case types.T_varbinary:
		xs := vector.MustFixedCol[[]byte](vec)
		return bytes.Compare(xs[a], xs[b])
	}
	return 0
}

func cmpFixedAt[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | string](xs []T, a, b uint64) int {
	switch {
	case xs[a] < xs[b]:
		return -1
	case xs[a] > xs[b]:
		return 1
	}
	return 0
}

// false sorts before true.
func cmpBool(xs []bool, a, b uint64) int {
	switch {
	case xs[a] == xs[b]:
		return 0
	case !xs[a]:
		return -1
	}
	return 1
}
