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

// Package vector implements the typed column container (a "series"). Col
// always holds one of the slice kinds enumerated in newCol; the physical
// type on Typ decides which one. Vectors are never mutated once their batch
// has been handed to a downstream stage; transforms gather into new vectors.
package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
)

type Vector struct {
	Typ types.Type
	// Col is the backing slice; see newCol for the Oid -> slice mapping.
	Col any
	// Nsp marks NULL rows. nil means all-valid.
	Nsp *nulls.Nulls
}

func New(typ types.Type) *Vector {
	return &Vector{Typ: typ, Col: newCol(typ.Oid, 0)}
}

// NewWithFixed wraps an existing slice; the caller guarantees the slice kind
// matches typ.
func NewWithFixed[T any](typ types.Type, vals []T, nsp *nulls.Nulls) *Vector {
	return &Vector{Typ: typ, Col: vals, Nsp: nsp}
}

func newCol(oid types.T, n int) any {
	switch oid {
	case types.T_bool:
		return make([]bool, n)
	case types.T_int8:
		return make([]int8, n)
	case types.T_int16:
		return make([]int16, n)
	case types.T_int32:
		return make([]int32, n)
	case types.T_int64:
		return make([]int64, n)
	case types.T_uint8:
		return make([]uint8, n)
	case types.T_uint16:
		return make([]uint16, n)
	case types.T_uint32:
		return make([]uint32, n)
	case types.T_uint64:
		return make([]uint64, n)
	case types.T_float32:
		return make([]float32, n)
	case types.T_float64:
		return make([]float64, n)
	case types.T_decimal128:
		return make([]types.Decimal128, n)
	case types.T_varchar:
		return make([]string, n)
	case types.T_varbinary:
		return make([][]byte, n)
	case types.T_list:
		return make([]*Vector, n)
	case types.T_sketch:
		return make([]*ddsketch.DDSketch, n)
	}
	return nil
}

// MustFixedCol returns the backing slice. The caller has already dispatched
// on the physical type.
func MustFixedCol[T any](v *Vector) []T {
	return v.Col.([]T)
}

func (v *Vector) Length() int {
	switch col := v.Col.(type) {
	case []bool:
		return len(col)
	case []int8:
		return len(col)
	case []int16:
		return len(col)
	case []int32:
		return len(col)
	case []int64:
		return len(col)
	case []uint8:
		return len(col)
	case []uint16:
		return len(col)
	case []uint32:
		return len(col)
	case []uint64:
		return len(col)
	case []float32:
		return len(col)
	case []float64:
		return len(col)
	case []types.Decimal128:
		return len(col)
	case []string:
		return len(col)
	case [][]byte:
		return len(col)
	case []*Vector:
		return len(col)
	case []*ddsketch.DDSketch:
		return len(col)
	}
	return 0
}

// AppendFixed appends one value. isNull still appends a placeholder value so
// row positions stay aligned with the mask.
func AppendFixed[T any](v *Vector, val T, isNull bool) {
	col := v.Col.([]T)
	if isNull {
		if v.Nsp == nil {
			v.Nsp = nulls.Build()
		}
		nulls.Add(v.Nsp, uint64(len(col)))
		var zero T
		val = zero
	}
	v.Col = append(col, val)
}

func appendMany[T any](v *Vector, w *Vector) {
	vcol := v.Col.([]T)
	wcol := w.Col.([]T)
	base := uint64(len(vcol))
	v.Col = append(vcol, wcol...)
	if nulls.Any(w.Nsp) {
		if v.Nsp == nil {
			v.Nsp = nulls.Build()
		}
		for _, row := range w.Nsp.ToArray() {
			nulls.Add(v.Nsp, base+row)
		}
	}
}

// Union appends all rows of w to v. Both vectors share a physical type.
func (v *Vector) Union(w *Vector) {
	switch v.Col.(type) {
	case []bool:
		appendMany[bool](v, w)
	case []int8:
		appendMany[int8](v, w)
	case []int16:
		appendMany[int16](v, w)
	case []int32:
		appendMany[int32](v, w)
	case []int64:
		appendMany[int64](v, w)
	case []uint8:
		appendMany[uint8](v, w)
	case []uint16:
		appendMany[uint16](v, w)
	case []uint32:
		appendMany[uint32](v, w)
	case []uint64:
		appendMany[uint64](v, w)
	case []float32:
		appendMany[float32](v, w)
	case []float64:
		appendMany[float64](v, w)
	case []types.Decimal128:
		appendMany[types.Decimal128](v, w)
	case []string:
		appendMany[string](v, w)
	case [][]byte:
		appendMany[[]byte](v, w)
	case []*Vector:
		appendMany[*Vector](v, w)
	case []*ddsketch.DDSketch:
		appendMany[*ddsketch.DDSketch](v, w)
	}
}

func takeFixed[T any](v *Vector, sels []int64) *Vector {
	col := v.Col.([]T)
	out := make([]T, len(sels))
	for i, sel := range sels {
		if sel >= 0 {
			out[i] = col[sel]
		}
	}
	return &Vector{Typ: v.Typ, Col: out, Nsp: nulls.Filter(v.Nsp, sels)}
}

// Take gathers rows by position into a new vector. A negative position
// produces a NULL row; source NULLs stay NULL. This is the generic gather
// every physical type supports, which is what lets any-value aggregation
// work uniformly over nested types.
func (v *Vector) Take(sels []int64) *Vector {
	switch v.Col.(type) {
	case []bool:
		return takeFixed[bool](v, sels)
	case []int8:
		return takeFixed[int8](v, sels)
	case []int16:
		return takeFixed[int16](v, sels)
	case []int32:
		return takeFixed[int32](v, sels)
	case []int64:
		return takeFixed[int64](v, sels)
	case []uint8:
		return takeFixed[uint8](v, sels)
	case []uint16:
		return takeFixed[uint16](v, sels)
	case []uint32:
		return takeFixed[uint32](v, sels)
	case []uint64:
		return takeFixed[uint64](v, sels)
	case []float32:
		return takeFixed[float32](v, sels)
	case []float64:
		return takeFixed[float64](v, sels)
	case []types.Decimal128:
		return takeFixed[types.Decimal128](v, sels)
	case []string:
		return takeFixed[string](v, sels)
	case [][]byte:
		return takeFixed[[]byte](v, sels)
	case []*Vector:
		return takeFixed[*Vector](v, sels)
	case []*ddsketch.DDSketch:
		return takeFixed[*ddsketch.DDSketch](v, sels)
	}
	// T_any has no backing slice; every gathered row is NULL.
	nsp := nulls.Build()
	for i := range sels {
		nsp.Np.Add(uint64(i))
	}
	return &Vector{Typ: v.Typ, Nsp: nsp}
}

// SetLength truncates the vector to its first n rows.
func (v *Vector) SetLength(n int) {
	old := v.Length()
	if n >= old {
		return
	}
	switch col := v.Col.(type) {
	case []bool:
		v.Col = col[:n]
	case []int8:
		v.Col = col[:n]
	case []int16:
		v.Col = col[:n]
	case []int32:
		v.Col = col[:n]
	case []int64:
		v.Col = col[:n]
	case []uint8:
		v.Col = col[:n]
	case []uint16:
		v.Col = col[:n]
	case []uint32:
		v.Col = col[:n]
	case []uint64:
		v.Col = col[:n]
	case []float32:
		v.Col = col[:n]
	case []float64:
		v.Col = col[:n]
	case []types.Decimal128:
		v.Col = col[:n]
	case []string:
		v.Col = col[:n]
	case [][]byte:
		v.Col = col[:n]
	case []*Vector:
		v.Col = col[:n]
	case []*ddsketch.DDSketch:
		v.Col = col[:n]
	}
	nulls.RemoveRange(v.Nsp, uint64(n), uint64(old))
}

// RowBytes appends a canonical byte encoding of the row to buf, for group
// keys and hashing. Numeric kinds widen to 8 bytes so the encoding length is
// stable per type. Returns nil for list and sketch columns, which have no
// hashable encoding.
func (v *Vector) RowBytes(buf []byte, row uint64) []byte {
	switch col := v.Col.(type) {
	case []bool:
		if col[row] {
			return append(buf, 1)
		}
		return append(buf, 0)
	case []int8:
		return binary.LittleEndian.AppendUint64(buf, uint64(int64(col[row])))
	case []int16:
		return binary.LittleEndian.AppendUint64(buf, uint64(int64(col[row])))
	case []int32:
		return binary.LittleEndian.AppendUint64(buf, uint64(int64(col[row])))
	case []int64:
		return binary.LittleEndian.AppendUint64(buf, uint64(col[row]))
	case []uint8:
		return binary.LittleEndian.AppendUint64(buf, uint64(col[row]))
	case []uint16:
		return binary.LittleEndian.AppendUint64(buf, uint64(col[row]))
	case []uint32:
		return binary.LittleEndian.AppendUint64(buf, uint64(col[row]))
	case []uint64:
		return binary.LittleEndian.AppendUint64(buf, col[row])
	case []float32:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(float64(col[row])))
	case []float64:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(col[row]))
	case []types.Decimal128:
		buf = binary.LittleEndian.AppendUint64(buf, col[row].Lo)
		return binary.LittleEndian.AppendUint64(buf, col[row].Hi)
	case []string:
		return append(buf, col[row]...)
	case [][]byte:
		return append(buf, col[row]...)
	}
	return nil
}

func (v *Vector) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s%v", v.Typ, v.Col)
	if nulls.Any(v.Nsp) {
		fmt.Fprintf(&buf, "-%s", nulls.String(v.Nsp))
	}
	return buf.String()
}
