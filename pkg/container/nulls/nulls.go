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

// Package nulls wraps the roaring bitmap library into a validity mask.
// A set bit marks a NULL row. A nil *Nulls (or a Nulls with a nil bitmap)
// means the column is all-valid.
package nulls

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"
)

type Nulls struct {
	Np *roaring64.Bitmap
}

// Build returns a mask with the given rows set.
func Build(rows ...uint64) *Nulls {
	nsp := &Nulls{Np: roaring64.New()}
	nsp.Np.AddMany(rows)
	return nsp
}

func (nsp *Nulls) Clone() *Nulls {
	if nsp == nil {
		return nil
	}
	if nsp.Np == nil {
		return &Nulls{}
	}
	return &Nulls{Np: nsp.Np.Clone()}
}

// Any reports whether the mask holds at least one NULL.
func Any(nsp *Nulls) bool {
	return nsp != nil && nsp.Np != nil && !nsp.Np.IsEmpty()
}

// Contains reports whether the row is NULL.
func Contains(nsp *Nulls, row uint64) bool {
	return nsp != nil && nsp.Np != nil && nsp.Np.Contains(row)
}

func Add(nsp *Nulls, rows ...uint64) {
	if len(rows) == 0 {
		return
	}
	if nsp.Np == nil {
		nsp.Np = roaring64.New()
	}
	nsp.Np.AddMany(rows)
}

func Del(nsp *Nulls, rows ...uint64) {
	if nsp == nil || nsp.Np == nil {
		return
	}
	for _, row := range rows {
		nsp.Np.Remove(row)
	}
}

// Count returns the number of NULL rows.
func Count(nsp *Nulls) int {
	if nsp == nil || nsp.Np == nil {
		return 0
	}
	return int(nsp.Np.GetCardinality())
}

// Set performs a union of nsp and m in place on nsp.
func Set(nsp, m *Nulls) {
	if m == nil || m.Np == nil {
		return
	}
	if nsp.Np == nil {
		nsp.Np = roaring64.New()
	}
	nsp.Np.Or(m.Np)
}

// RemoveRange clears rows in [start, end).
func RemoveRange(nsp *Nulls, start, end uint64) {
	if nsp != nil && nsp.Np != nil {
		nsp.Np.RemoveRange(start, end)
	}
}

// Filter rebuilds the mask for a selection: row i of the result is NULL
// when sels[i] was NULL in nsp. Negative selections mark the result row
// NULL unconditionally (used by gather with absent indices).
func Filter(nsp *Nulls, sels []int64) *Nulls {
	var out *Nulls
	for i, sel := range sels {
		if sel < 0 || Contains(nsp, uint64(sel)) {
			if out == nil {
				out = Build()
			}
			out.Np.Add(uint64(i))
		}
	}
	return out
}

func (nsp *Nulls) ToArray() []uint64 {
	if nsp == nil || nsp.Np == nil {
		return nil
	}
	return nsp.Np.ToArray()
}

func String(nsp *Nulls) string {
	if nsp == nil || nsp.Np == nil {
		return "[]"
	}
	return fmt.Sprintf("%v", nsp.Np.ToArray())
}
