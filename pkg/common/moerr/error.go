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

package moerr

import (
	"context"
	"fmt"
)

const (
	Ok uint16 = 0

	// Group 1: internal errors. These indicate a planner/executor contract
	// violation, not a user mistake, but they still surface as ordinary
	// errors rather than process aborts.
	ErrInternal uint16 = 20101
	ErrNYI      uint16 = 20102

	// Group 2: type and schema errors.
	ErrTypeMismatch   uint16 = 20200
	ErrSchemaMismatch uint16 = 20201

	// Group 3: invalid input.
	ErrInvalidInput uint16 = 20301
)

// Error is the only error type produced by the engine. The code decides how
// callers should classify the failure; the message carries the offending
// type/count/key for the user.
type Error struct {
	code    uint16
	message string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

// IsInternal reports whether the error is a defect rather than a
// user-triggerable condition.
func (e *Error) IsInternal() bool {
	return e.code == ErrInternal || e.code == ErrNYI
}

func newError(_ context.Context, code uint16, format string, args ...any) *Error {
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
	}
}

func NewInternalError(ctx context.Context, format string, args ...any) *Error {
	return newError(ctx, ErrInternal, "internal error: "+format, args...)
}

func NewNYI(ctx context.Context, format string, args ...any) *Error {
	return newError(ctx, ErrNYI, format+" is not yet implemented", args...)
}

func NewTypeMismatch(ctx context.Context, format string, args ...any) *Error {
	return newError(ctx, ErrTypeMismatch, format, args...)
}

func NewSchemaMismatch(ctx context.Context, format string, args ...any) *Error {
	return newError(ctx, ErrSchemaMismatch, format, args...)
}

func NewInvalidInput(ctx context.Context, format string, args ...any) *Error {
	return newError(ctx, ErrInvalidInput, format, args...)
}

// IsMoErrCode reports whether err is an engine error carrying the given code.
func IsMoErrCode(err error, code uint16) bool {
	if err == nil {
		return code == Ok
	}
	me, ok := err.(*Error)
	if !ok {
		return false
	}
	return me.code == code
}
