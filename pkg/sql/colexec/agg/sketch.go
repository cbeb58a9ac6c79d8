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

	"github.com/DataDog/sketches-go/ddsketch"
	hll "github.com/axiomhq/hyperloglog"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
)

// SketchRelativeAccuracy is the DDSketch accuracy for approximate quantile
// aggregations; config.Apply overrides it at startup.
var SketchRelativeAccuracy = 0.01

// ApproxSketch promotes any numeric input to FLOAT64 and folds each group
// into a quantile sketch. Groups without a valid row produce a NULL cell.
func ApproxSketch(ctx context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	if !vec.Typ.Oid.IsNumeric() {
		return nil, moerr.NewTypeMismatch(ctx, "approx sketch is not implemented for type %s", vec.Typ)
	}
	xs := castToFloat64(vec)
	build := func(rows []uint64) (*ddsketch.DDSketch, error) {
		var sk *ddsketch.DDSketch
		for _, row := range rows {
			if nulls.Contains(vec.Nsp, row) {
				continue
			}
			if sk == nil {
				var err error
				if sk, err = ddsketch.NewDefaultDDSketch(SketchRelativeAccuracy); err != nil {
					return nil, err
				}
			}
			if err := sk.Add(xs[row]); err != nil {
				return nil, err
			}
		}
		return sk, nil
	}
	return sketchResult(vec, groups, len(xs), build)
}

// MergeSketch merges the per-group partial sketches produced by
// ApproxSketch; valid only on sketch columns.
func MergeSketch(ctx context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	if vec.Typ.Oid != types.T_sketch {
		return nil, moerr.NewTypeMismatch(ctx, "merge sketch is not implemented for type %s", vec.Typ)
	}
	cells := vector.MustFixedCol[*ddsketch.DDSketch](vec)
	merge := func(rows []uint64) (*ddsketch.DDSketch, error) {
		var merged *ddsketch.DDSketch
		for _, row := range rows {
			if nulls.Contains(vec.Nsp, row) || cells[row] == nil {
				continue
			}
			if merged == nil {
				var err error
				if merged, err = ddsketch.NewDefaultDDSketch(SketchRelativeAccuracy); err != nil {
					return nil, err
				}
			}
			if err := merged.MergeWith(cells[row]); err != nil {
				return nil, err
			}
		}
		return merged, nil
	}
	return sketchResult(vec, groups, len(cells), merge)
}

func sketchResult(vec *vector.Vector, groups GroupIndices, n int, fold func([]uint64) (*ddsketch.DDSketch, error)) (*vector.Vector, error) {
	styp := types.New(types.T_sketch)
	if groups == nil {
		sk, err := fold(allRows(n))
		if err != nil {
			return nil, err
		}
		return makeResult(styp, []*ddsketch.DDSketch{sk}, []bool{sk != nil}), nil
	}
	out := make([]*ddsketch.DDSketch, len(groups))
	valid := make([]bool, len(groups))
	for i, group := range groups {
		sk, err := fold(group)
		if err != nil {
			return nil, err
		}
		out[i], valid[i] = sk, sk != nil
	}
	return makeResult(styp, out, valid), nil
}

// HLLSketch folds each group's valid rows into serialized HyperLogLog
// registers (a varbinary column). Any hashable physical type is accepted.
func HLLSketch(ctx context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	if vec.Typ.Oid == types.T_list || vec.Typ.Oid == types.T_sketch {
		return nil, moerr.NewTypeMismatch(ctx, "hll sketch is not implemented for type %s", vec.Typ)
	}
	build := func(rows []uint64) ([]byte, error) {
		sk := hll.New16()
		for _, row := range rows {
			if nulls.Contains(vec.Nsp, row) {
				continue
			}
			sk.Insert(vec.RowBytes(nil, row))
		}
		return sk.MarshalBinary()
	}
	return hllResult(vec, groups, build)
}

// HLLMerge merges serialized HyperLogLog registers per group; the
// register-wise maximum is delegated to the hyperloglog library. Valid only
// on varbinary register columns.
func HLLMerge(ctx context.Context, vec *vector.Vector, groups GroupIndices) (*vector.Vector, error) {
	if vec.Typ.Oid != types.T_varbinary {
		return nil, moerr.NewTypeMismatch(ctx, "hll merge is only valid for HLL register columns, got %s", vec.Typ)
	}
	cells := vector.MustFixedCol[[]byte](vec)
	merge := func(rows []uint64) ([]byte, error) {
		base := hll.New16()
		for _, row := range rows {
			if nulls.Contains(vec.Nsp, row) || len(cells[row]) == 0 {
				continue
			}
			part := hll.New16()
			if err := part.UnmarshalBinary(cells[row]); err != nil {
				return nil, moerr.NewInvalidInput(ctx, "malformed HLL registers: %v", err)
			}
			if err := base.Merge(part); err != nil {
				return nil, moerr.NewInvalidInput(ctx, "cannot merge HLL registers: %v", err)
			}
		}
		return base.MarshalBinary()
	}
	return hllResult(vec, groups, merge)
}

func hllResult(vec *vector.Vector, groups GroupIndices, fold func([]uint64) ([]byte, error)) (*vector.Vector, error) {
	btyp := types.New(types.T_varbinary)
	if groups == nil {
		data, err := fold(allRows(vec.Length()))
		if err != nil {
			return nil, err
		}
		return vector.NewWithFixed(btyp, [][]byte{data}, nil), nil
	}
	out := make([][]byte, len(groups))
	for i, group := range groups {
		data, err := fold(group)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return vector.NewWithFixed(btyp, out, nil), nil
}
