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

// Package process holds the per-query execution context shared by every
// stage of a pipeline: the cancelable context, the query id and the
// resource limits the stages consult.
package process

import (
	"context"

	"github.com/google/uuid"
)

// Limitation caps the resources one query may use.
type Limitation struct {
	// SpoolBufferSize is the channel depth of every stage-to-stage transport.
	SpoolBufferSize int
	// WorkerPoolSize is the minimum goroutine pool size for stage runners.
	WorkerPoolSize int
	// SketchRelativeAccuracy configures percentile sketches.
	SketchRelativeAccuracy float64
}

// Process is the shared state of one running query. Canceling Ctx stops
// every stage; stages observe it in their send/receive selects.
type Process struct {
	Id     string
	Ctx    context.Context
	Cancel context.CancelFunc
	Lim    Limitation
}

func New(ctx context.Context, lim Limitation) *Process {
	ctx, cancel := context.WithCancel(ctx)
	return &Process{
		Id:     uuid.NewString(),
		Ctx:    ctx,
		Cancel: cancel,
		Lim:    lim,
	}
}
