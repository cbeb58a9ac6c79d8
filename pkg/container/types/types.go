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

package types

import "fmt"

// T is the physical storage type of a column. The set of supported physical
// types is enumerated here and nowhere else; every kernel dispatch switches
// over this enum so that adding a type is a single-site change.
type T uint8

const (
	// T_any is the type of columns whose every row is NULL.
	T_any T = iota
	T_bool
	T_int8
	T_int16
	T_int32
	T_int64
	T_uint8
	T_uint16
	T_uint32
	T_uint64
	T_float32
	T_float64
	T_decimal128
	T_varchar
	// T_varbinary stores one byte slice per row. HyperLogLog register
	// columns use this encoding.
	T_varbinary
	// T_list stores one vector-valued cell per row.
	T_list
	// T_sketch stores one quantile sketch per row. Produced only by the
	// approximate-sketch aggregations.
	T_sketch
)

// Type is a physical type plus its parameters. Width/Scale are meaningful
// for decimals only.
type Type struct {
	Oid   T
	Width int32
	Scale int32
}

func New(oid T) Type {
	return Type{Oid: oid}
}

func NewDecimal(width, scale int32) Type {
	return Type{Oid: T_decimal128, Width: width, Scale: scale}
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "INT8"
	case T_int16:
		return "INT16"
	case T_int32:
		return "INT32"
	case T_int64:
		return "INT64"
	case T_uint8:
		return "UINT8"
	case T_uint16:
		return "UINT16"
	case T_uint32:
		return "UINT32"
	case T_uint64:
		return "UINT64"
	case T_float32:
		return "FLOAT32"
	case T_float64:
		return "FLOAT64"
	case T_decimal128:
		return "DECIMAL128"
	case T_varchar:
		return "VARCHAR"
	case T_varbinary:
		return "VARBINARY"
	case T_list:
		return "LIST"
	case T_sketch:
		return "SKETCH"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

func (t Type) String() string {
	if t.Oid == T_decimal128 {
		return fmt.Sprintf("DECIMAL128(%d,%d)", t.Width, t.Scale)
	}
	return t.Oid.String()
}

func (t T) IsSignedInt() bool {
	switch t {
	case T_int8, T_int16, T_int32, T_int64:
		return true
	}
	return false
}

func (t T) IsUnsignedInt() bool {
	switch t {
	case T_uint8, T_uint16, T_uint32, T_uint64:
		return true
	}
	return false
}

func (t T) IsFloat() bool {
	return t == T_float32 || t == T_float64
}

// IsNumeric reports whether t participates in numeric promotion. Decimals
// are handled separately by their unscaled representation.
func (t T) IsNumeric() bool {
	return t.IsSignedInt() || t.IsUnsignedInt() || t.IsFloat()
}

// SumPromotion returns the result type of a sum over a column of type t:
// signed integers widen to INT64, unsigned integers to UINT64, floats keep
// their width and decimals keep their scale at maximum width.
func (t Type) SumPromotion() (Type, bool) {
	switch {
	case t.Oid.IsSignedInt():
		return New(T_int64), true
	case t.Oid.IsUnsignedInt():
		return New(T_uint64), true
	case t.Oid.IsFloat():
		return New(t.Oid), true
	case t.Oid == T_decimal128:
		return NewDecimal(38, t.Scale), true
	}
	return Type{}, false
}
