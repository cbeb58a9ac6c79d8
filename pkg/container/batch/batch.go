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

// Package batch implements the unit of data flowing through a pipeline:
// an immutable columnar table fragment. Batches are shared by reference
// across stages; the refcount tracks fan-out ownership and transforms
// always gather into fresh batches.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/vector"
)

type Batch struct {
	// Cnt counts the stages holding a reference when the batch fans out.
	Cnt int64

	Attrs []string
	Vecs  []*vector.Vector

	rowCount int
}

func New(attrs []string) *Batch {
	return &Batch{
		Cnt:   1,
		Attrs: attrs,
		Vecs:  make([]*vector.Vector, len(attrs)),
	}
}

func NewWithSize(n int) *Batch {
	return &Batch{
		Cnt:  1,
		Vecs: make([]*vector.Vector, n),
	}
}

func (bat *Batch) RowCount() int {
	return bat.rowCount
}

func (bat *Batch) SetRowCount(n int) {
	bat.rowCount = n
}

func (bat *Batch) VectorCount() int {
	return len(bat.Vecs)
}

func (bat *Batch) GetVector(pos int32) *vector.Vector {
	return bat.Vecs[pos]
}

func (bat *Batch) SetVector(pos int32, vec *vector.Vector) {
	bat.Vecs[pos] = vec
}

// Pos returns the position of the named column, or -1.
func (bat *Batch) Pos(attr string) int {
	for i, a := range bat.Attrs {
		if a == attr {
			return i
		}
	}
	return -1
}

func (bat *Batch) AddCnt(cnt int) {
	atomic.AddInt64(&bat.Cnt, int64(cnt))
}

func (bat *Batch) GetCnt() int64 {
	return atomic.LoadInt64(&bat.Cnt)
}

// SetLength truncates the batch to its first n rows.
func SetLength(bat *Batch, n int) {
	for _, vec := range bat.Vecs {
		vec.SetLength(n)
	}
	bat.rowCount = n
}

// Take gathers rows by position into a new batch. Negative positions
// produce NULL rows in every column.
func (bat *Batch) Take(sels []int64) *Batch {
	rbat := New(bat.Attrs)
	for i, vec := range bat.Vecs {
		rbat.Vecs[i] = vec.Take(sels)
	}
	rbat.rowCount = len(sels)
	return rbat
}

// GetSubBatch projects the named columns without copying.
func (bat *Batch) GetSubBatch(cols []string) *Batch {
	rbat := New(cols)
	for i, col := range cols {
		if pos := bat.Pos(col); pos >= 0 {
			rbat.Vecs[i] = bat.Vecs[pos]
		}
	}
	rbat.rowCount = bat.rowCount
	return rbat
}

// Append unions b's rows onto bat. bat must be a batch private to the
// caller (an accumulating sink), never one received from upstream.
func (bat *Batch) Append(ctx context.Context, b *Batch) (*Batch, error) {
	if bat == nil {
		bat = New(b.Attrs)
		for i, vec := range b.Vecs {
			bat.Vecs[i] = vector.New(vec.Typ)
		}
	}
	if len(bat.Vecs) != len(b.Vecs) {
		return nil, moerr.NewInternalError(ctx, "batch append column count mismatch: %d vs %d", len(bat.Vecs), len(b.Vecs))
	}
	for i := range bat.Vecs {
		bat.Vecs[i].Union(b.Vecs[i])
	}
	bat.rowCount += b.rowCount
	return bat, nil
}

// Merge unions a run of same-schema batches into one private batch.
func Merge(ctx context.Context, bats []*Batch) (*Batch, error) {
	var rbat *Batch
	var err error
	for _, b := range bats {
		if rbat, err = rbat.Append(ctx, b); err != nil {
			return nil, err
		}
	}
	return rbat, nil
}

func (bat *Batch) String() string {
	var buf bytes.Buffer
	for i, vec := range bat.Vecs {
		fmt.Fprintf(&buf, "%s : %s\n", bat.Attrs[i], vec.String())
	}
	return buf.String()
}
