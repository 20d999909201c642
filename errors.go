// Copyright (C) 2017. See AUTHORS.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bn

// #include "shim.h"
import "C"

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

// Library and reason codes that callers commonly branch on. Compare them with
// QueueEntry.Lib and QueueEntry.Reason, or use Error.HasReason.
const (
	LibBN int = C.ERR_LIB_BN

	ReasonDivByZero     int = C.BN_R_DIV_BY_ZERO
	ReasonNoInverse     int = C.BN_R_NO_INVERSE
	ReasonInvalidRange  int = C.BN_R_INVALID_RANGE
	ReasonBitsTooSmall  int = C.BN_R_BITS_TOO_SMALL
	ReasonInvalidLength int = C.BN_R_INVALID_LENGTH
	ReasonInvalidShift  int = C.BN_R_INVALID_SHIFT
)

// QueueEntry is a single record taken off the OpenSSL error queue.
type QueueEntry struct {
	Code     uint64
	LibName  string
	FuncName string
	Reason   string
	File     string
	Line     int
	Data     string

	lib    int
	reason int
}

// Lib returns the library part of the packed error code.
func (e QueueEntry) Lib() int { return e.lib }

// ReasonCode returns the reason part of the packed error code.
func (e QueueEntry) ReasonCode() int { return e.reason }

func (e QueueEntry) Error() string {
	msg := fmt.Sprintf("error:%08X:%s:%s:%s", e.Code, e.LibName, e.FuncName, e.Reason)
	if e.Data != "" {
		msg += ":" + e.Data
	}
	return msg
}

// Error is a snapshot of the OpenSSL error queue, taken on the failing thread
// right after a primitive returned 0 or NULL. It is the only error type the
// package returns.
type Error struct {
	// Op names the libcrypto primitive that reported the failure.
	Op    string
	queue *multierror.Error
}

func (e *Error) Error() string {
	if e.queue.ErrorOrNil() == nil {
		return fmt.Sprintf("bn: %s failed (error queue empty)", e.Op)
	}
	return fmt.Sprintf("bn: %s failed: %s", e.Op, e.queue.Error())
}

// Unwrap exposes the captured queue so errors.As can reach individual entries.
func (e *Error) Unwrap() error {
	return e.queue.ErrorOrNil()
}

// Entries returns the captured queue, oldest entry first.
func (e *Error) Entries() []QueueEntry {
	if e.queue == nil {
		return nil
	}
	entries := make([]QueueEntry, 0, len(e.queue.Errors))
	for _, err := range e.queue.Errors {
		if entry, ok := err.(QueueEntry); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// HasReason reports whether any captured entry carries the given library and
// reason codes.
func (e *Error) HasReason(lib, reason int) bool {
	for _, entry := range e.Entries() {
		if entry.lib == lib && entry.reason == reason {
			return true
		}
	}
	return false
}

func formatQueue(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// drainErrorQueue empties the calling thread's error queue.
func drainErrorQueue() []QueueEntry {
	var entries []QueueEntry
	for {
		var file, fn, data *C.char
		var line, flags C.int
		code := C.ERR_get_error_all(&file, &line, &fn, &data, &flags)
		if code == 0 {
			return entries
		}
		entry := QueueEntry{
			Code:     uint64(code),
			LibName:  C.GoString(C.ERR_lib_error_string(code)),
			FuncName: C.GoString(fn),
			Reason:   C.GoString(C.ERR_reason_error_string(code)),
			File:     C.GoString(file),
			Line:     int(line),
			lib:      int(C.X_ERR_GET_LIB(code)),
			reason:   int(C.X_ERR_GET_REASON(code)),
		}
		if flags&C.ERR_TXT_STRING != 0 {
			entry.Data = C.GoString(data)
		}
		entries = append(entries, entry)
	}
}

// errorFromErrorQueue needs to run in the same OS thread as the operation
// that caused the possible error, before anything else touches the queue.
func errorFromErrorQueue(op string) error {
	queue := &multierror.Error{ErrorFormat: formatQueue}
	for _, entry := range drainErrorQueue() {
		queue = multierror.Append(queue, entry)
	}
	return &Error{Op: op, queue: queue}
}

// raise records a BN failure with the given reason on the queue and returns
// its snapshot, for arguments the wrapper rejects before reaching libcrypto.
func raise(op string, reason int) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ensureErrorQueueIsClear()

	C.X_BN_raise(C.int(reason))
	return errorFromErrorQueue(op)
}

// cint narrows v to a C int. Values outside its range fail with reason
// instead of wrapping around.
func cint(op string, v int, reason int) (C.int, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, raise(op, reason)
	}
	return C.int(v), nil
}

// ensureErrorQueueIsClear discards entries left behind by unrelated code so
// that the next snapshot only describes the call about to be made.
func ensureErrorQueueIsClear() {
	if C.ERR_peek_error() == 0 {
		return
	}
	stale := drainErrorQueue()
	logger().WithField("entries", len(stale)).
		Warnf("bn: discarding stale error queue entries: %v", stale)
}
