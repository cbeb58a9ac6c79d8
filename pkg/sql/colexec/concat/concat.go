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

// Package concat emits every left-side row before any right-side row, no
// matter how the two inputs interleave in time.
package concat

import (
	"bytes"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/vm"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

type Argument struct {
	left  []*batch.Batch
	right []*batch.Batch
}

func New() *Argument {
	return &Argument{}
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString("concat")
}

func (arg *Argument) SinkLeft(_ *process.Process, bat *batch.Batch) (vm.SinkResult, error) {
	if bat.RowCount() > 0 {
		arg.left = append(arg.left, bat)
	}
	return vm.SinkNeedMore, nil
}

func (arg *Argument) SinkRight(proc *process.Process, bat *batch.Batch) (vm.SinkResult, error) {
	if bat.RowCount() == 0 {
		return vm.SinkNeedMore, nil
	}
	if len(arg.left) > 0 && bat.VectorCount() != arg.left[0].VectorCount() {
		return vm.SinkNeedMore, moerr.NewSchemaMismatch(proc.Ctx,
			"concat inputs have %d and %d columns", arg.left[0].VectorCount(), bat.VectorCount())
	}
	arg.right = append(arg.right, bat)
	return vm.SinkNeedMore, nil
}

func (arg *Argument) Finalize(_ *process.Process, emit func(*batch.Batch) bool) error {
	for _, bat := range arg.left {
		if !emit(bat) {
			return nil
		}
	}
	for _, bat := range arg.right {
		if !emit(bat) {
			return nil
		}
	}
	return nil
}
