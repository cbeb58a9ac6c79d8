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

// Package vm defines the stage contracts of the push-based pipeline: sources
// produce batches, intermediate operators map them one at a time, and sinks
// absorb a whole stream (or two) before emitting. The compiler assembles
// stages into a PipelineNode tree and the driver runs one goroutine per node.
package vm

import (
	"bytes"
	"context"

	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/vm/process"
)

// Source produces the leaf stream of a pipeline. Read returns nil when the
// stream is exhausted; after that the runner closes the downstream spool.
type Source interface {
	String(buf *bytes.Buffer)
	Read(proc *process.Process) (*batch.Batch, error)
}

// IntermediateOperator transforms one input batch into zero or one output
// batch. A nil result with nil error means the batch was consumed without
// output (a filter that matched nothing).
type IntermediateOperator interface {
	String(buf *bytes.Buffer)
	Exec(proc *process.Process, bat *batch.Batch) (*batch.Batch, error)
}

// EarlyStopper is an optional extension of IntermediateOperator. When Done
// reports true after an Exec, the runner forwards that last output, drops
// its input register and closes downstream, ending the stream early.
type EarlyStopper interface {
	Done() bool
}

// SinkResult is a sink's verdict after absorbing one batch.
type SinkResult uint8

const (
	// SinkNeedMore asks the runner for the next batch.
	SinkNeedMore SinkResult = iota
	// SinkDone declares the sink satisfied; the runner stops pulling and
	// drops its input registers so upstream stages stop early.
	SinkDone
)

// SingleInputSink absorbs its whole input stream, then emits its results
// from Finalize. Emitted batches go to the node's downstream spool via emit;
// emit reports false when the query is shutting down.
type SingleInputSink interface {
	String(buf *bytes.Buffer)
	Sink(proc *process.Process, bat *batch.Batch) (SinkResult, error)
	Finalize(proc *process.Process, emit func(*batch.Batch) bool) error
}

// DoubleInputSink absorbs two whole streams. The runner feeds the left
// stream to completion before the right one.
type DoubleInputSink interface {
	String(buf *bytes.Buffer)
	SinkLeft(proc *process.Process, bat *batch.Batch) (SinkResult, error)
	SinkRight(proc *process.Process, bat *batch.Batch) (SinkResult, error)
	Finalize(proc *process.Process, emit func(*batch.Batch) bool) error
}

// ScanReader is what a source reads from; the pipeline compiler adapts plan
// scan tasks into these.
type ScanReader interface {
	Read(ctx context.Context) (*batch.Batch, error)
}

type NodeKind uint8

const (
	NodeSource NodeKind = iota
	NodeIntermediate
	NodeSingleSink
	NodeDoubleSink
)

// PipelineNode is one stage of a compiled pipeline plus its inputs. Exactly
// one of Src, Op, Sink, Sink2 is set, according to Kind.
type PipelineNode struct {
	Kind NodeKind

	Src   Source
	Op    IntermediateOperator
	Sink  SingleInputSink
	Sink2 DoubleInputSink

	// Children feed this node. Sources have none, intermediate operators
	// and single sinks have one, double sinks have two (left, right).
	Children []*PipelineNode
}

func NewSourceNode(src Source) *PipelineNode {
	return &PipelineNode{Kind: NodeSource, Src: src}
}

func NewIntermediateNode(op IntermediateOperator, child *PipelineNode) *PipelineNode {
	return &PipelineNode{Kind: NodeIntermediate, Op: op, Children: []*PipelineNode{child}}
}

func NewSingleSinkNode(sink SingleInputSink, child *PipelineNode) *PipelineNode {
	return &PipelineNode{Kind: NodeSingleSink, Sink: sink, Children: []*PipelineNode{child}}
}

func NewDoubleSinkNode(sink DoubleInputSink, left, right *PipelineNode) *PipelineNode {
	return &PipelineNode{Kind: NodeDoubleSink, Sink2: sink, Children: []*PipelineNode{left, right}}
}

// StageCount is the number of runner goroutines the tree needs.
func (n *PipelineNode) StageCount() int {
	cnt := 1
	for _, child := range n.Children {
		cnt += child.StageCount()
	}
	return cnt
}

func (n *PipelineNode) String() string {
	var buf bytes.Buffer
	n.describe(&buf, 0)
	return buf.String()
}

func (n *PipelineNode) describe(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
	switch n.Kind {
	case NodeSource:
		n.Src.String(buf)
	case NodeIntermediate:
		n.Op.String(buf)
	case NodeSingleSink:
		n.Sink.String(buf)
	case NodeDoubleSink:
		n.Sink2.String(buf)
	}
	buf.WriteByte('\n')
	for _, child := range n.Children {
		child.describe(buf, depth+1)
	}
}
