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

import (
	"math/big"
	"math/bits"
)

// Decimal128 is the unscaled two's-complement 128-bit integer behind a
// decimal column. The scale lives on the column Type, not on the value;
// sums therefore reduce over raw 128-bit integers.
type Decimal128 struct {
	Lo uint64
	Hi uint64
}

func Decimal128FromInt64(v int64) Decimal128 {
	d := Decimal128{Lo: uint64(v)}
	if v < 0 {
		d.Hi = ^uint64(0)
	}
	return d
}

func (x Decimal128) Add(y Decimal128) Decimal128 {
	lo, carry := bits.Add64(x.Lo, y.Lo, 0)
	hi, _ := bits.Add64(x.Hi, y.Hi, carry)
	return Decimal128{Lo: lo, Hi: hi}
}

func (x Decimal128) IsNegative() bool {
	return int64(x.Hi) < 0
}

// Compare orders x and y as signed 128-bit integers.
func (x Decimal128) Compare(y Decimal128) int {
	xh, yh := int64(x.Hi), int64(y.Hi)
	if xh != yh {
		if xh < yh {
			return -1
		}
		return 1
	}
	if x.Lo != y.Lo {
		if x.Lo < y.Lo {
			return -1
		}
		return 1
	}
	return 0
}

func (x Decimal128) Less(y Decimal128) bool {
	return x.Compare(y) < 0
}

func (x Decimal128) BigInt() *big.Int {
	v := new(big.Int).SetUint64(x.Hi)
	v.Lsh(v, 64)
	v.Add(v, new(big.Int).SetUint64(x.Lo))
	if x.IsNegative() {
		m := new(big.Int).Lsh(big.NewInt(1), 128)
		v.Sub(v, m)
	}
	return v
}

func (x Decimal128) String() string {
	return x.BigInt().String()
}
