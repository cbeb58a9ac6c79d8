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

package limit

import (
	"bytes"
	"strconv"

	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

// Argument passes rows through until the budget is spent. The batch that
// crosses the budget is not touched: its leading rows are gathered into a
// fresh batch, since the inbound one may still be owned by the caller (pset
// batches) or alias upstream vectors. Once done, the runner stops pulling
// from upstream.
type Argument struct {
	Limit uint64
	Seen  uint64
}

func New(limit uint64) *Argument {
	return &Argument{Limit: limit}
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString("limit(")
	buf.WriteString(strconv.FormatUint(arg.Limit, 10))
	buf.WriteByte(')')
}

func (arg *Argument) Done() bool {
	return arg.Seen >= arg.Limit
}

func (arg *Argument) Exec(_ *process.Process, bat *batch.Batch) (*batch.Batch, error) {
	if arg.Seen >= arg.Limit {
		return nil, nil
	}
	n := uint64(bat.RowCount())
	if arg.Seen+n > arg.Limit {
		keep := int(arg.Limit - arg.Seen)
		arg.Seen = arg.Limit
		sels := make([]int64, keep)
		for i := range sels {
			sels[i] = int64(i)
		}
		return bat.Take(sels), nil
	}
	arg.Seen += n
	return bat, nil
}
