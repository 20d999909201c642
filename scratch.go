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
	"runtime"
	"unsafe"
)

func newScratch(cfg *Config) *C.BN_CTX {
	if injectFault(siteScratch) {
		return nil
	}
	var ctx *C.BN_CTX
	if cfg.SecureScratch {
		ctx = C.BN_CTX_secure_new_ex(cfg.LibraryContext.raw())
	} else {
		ctx = C.BN_CTX_new_ex(cfg.LibraryContext.raw())
	}
	if ctx != nil {
		owned.acquire(unsafe.Pointer(ctx), siteScratch)
	}
	return ctx
}

func freeScratch(ctx *C.BN_CTX) {
	owned.release(unsafe.Pointer(ctx))
	C.BN_CTX_free(ctx)
}

// withScratch runs fn with a scratch context that is released on every exit
// path, panics included. If no context can be acquired fn does not run.
func withScratch(op string, fn func(ctx *C.BN_CTX) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cfg := activeConfig.Load()
	ctx := newScratch(cfg)
	if ctx == nil {
		err := errorFromErrorQueue(op)
		cfg.logger().WithError(err).Debug("bn: scratch context unavailable")
		return err
	}
	defer func() {
		freeScratch(ctx)
		runtime.KeepAlive(cfg.LibraryContext)
	}()
	return fn(ctx)
}

// primitive writes its result into r and reports libcrypto's success
// convention. ctx is nil unless the primitive was lifted with scratch.
type primitive func(r *C.BIGNUM, ctx *C.BN_CTX) bool

// lift turns a fallible out-parameter primitive into a fresh BigNum. The
// destination is freed on failure; inputs stay reachable until the
// primitive has returned.
func lift(op string, needsScratch bool, inputs []*BigNum, fn primitive) (*BigNum, error) {
	defer runtime.KeepAlive(inputs)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ensureErrorQueueIsClear()

	r, err := allocBigNum(op)
	if err != nil {
		return nil, err
	}
	done := false
	defer func() {
		if !done {
			r.Free()
		}
	}()

	run := func(ctx *C.BN_CTX) error {
		if !fn(r.bn, ctx) {
			return errorFromErrorQueue(op)
		}
		return nil
	}
	if needsScratch {
		err = withScratch(op, run)
	} else {
		err = run(nil)
	}
	if err != nil {
		return nil, err
	}
	done = true
	return r, nil
}

func fresh(op string, inputs []*BigNum, fn primitive) (*BigNum, error) {
	return lift(op, false, inputs, fn)
}

func freshInCtx(op string, inputs []*BigNum, fn primitive) (*BigNum, error) {
	return lift(op, true, inputs, fn)
}

func keep(inputs ...*BigNum) []*BigNum { return inputs }

// mutate runs an in-place primitive on b and snapshots the queue if it fails.
func (b *BigNum) mutate(op string, fn func(bn *C.BIGNUM) C.int) error {
	defer runtime.KeepAlive(b)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ensureErrorQueueIsClear()

	if fn(b.raw()) != 1 {
		return errorFromErrorQueue(op)
	}
	return nil
}
