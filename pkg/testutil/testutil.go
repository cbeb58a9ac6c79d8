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

// Package testutil builds small batches and vectors for tests.
package testutil

import (
	"context"

	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

func NewProc() *process.Process {
	return process.New(context.Background(), process.Limitation{
		SpoolBufferSize:        8,
		WorkerPoolSize:         16,
		SketchRelativeAccuracy: 0.01,
	})
}

// NewVector builds a typed vector with the given values and NULL rows.
func NewVector[T any](oid types.T, vals []T, nullRows ...uint64) *vector.Vector {
	var nsp *nulls.Nulls
	if len(nullRows) > 0 {
		nsp = nulls.Build(nullRows...)
	}
	return vector.NewWithFixed(types.New(oid), vals, nsp)
}

func NewInt64Vector(vals []int64, nullRows ...uint64) *vector.Vector {
	return NewVector(types.T_int64, vals, nullRows...)
}

func NewFloat64Vector(vals []float64, nullRows ...uint64) *vector.Vector {
	return NewVector(types.T_float64, vals, nullRows...)
}

func NewStringVector(vals []string, nullRows ...uint64) *vector.Vector {
	return NewVector(types.T_varchar, vals, nullRows...)
}

func NewBoolVector(vals []bool, nullRows ...uint64) *vector.Vector {
	return NewVector(types.T_bool, vals, nullRows...)
}

// NewBatch bundles columns into a batch; every vector must have the same
// length.
func NewBatch(attrs []string, vecs ...*vector.Vector) *batch.Batch {
	bat := batch.New(attrs)
	for i, vec := range vecs {
		bat.Vecs[i] = vec
	}
	if len(vecs) > 0 {
		bat.SetRowCount(vecs[0].Length())
	}
	return bat
}

// Int64Rows reads an int64 result column back out, with ok=false at NULLs.
func Int64Rows(vec *vector.Vector) ([]int64, []bool) {
	vals := vector.MustFixedCol[int64](vec)
	valid := make([]bool, len(vals))
	for i := range vals {
		valid[i] = !nulls.Contains(vec.Nsp, uint64(i))
	}
	return vals, valid
}
