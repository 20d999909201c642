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
	"runtime"
	"unsafe"

	pointer "github.com/mattn/go-pointer"
)

// PrimeStage identifies the kind of progress event OpenSSL reports while
// searching for a prime.
type PrimeStage int

const (
	// PrimeCandidate is reported for every candidate generated.
	PrimeCandidate PrimeStage = 0
	// PrimeTestRound is reported for every primality test round.
	PrimeTestRound PrimeStage = 1
	// PrimeFound is reported once a prime has been accepted.
	PrimeFound PrimeStage = 2
)

func (s PrimeStage) String() string {
	switch s {
	case PrimeCandidate:
		return "candidate"
	case PrimeTestRound:
		return "test-round"
	case PrimeFound:
		return "found"
	}
	return fmt.Sprintf("stage-%d", int(s))
}

// PrimeProgress observes prime generation. n is the counter OpenSSL attaches
// to the event. It runs on the generating goroutine.
type PrimeProgress func(stage PrimeStage, n int)

type progressTracker struct {
	fn       PrimeProgress
	panicked interface{}
}

//export go_bn_gencb_callback
func go_bn_gencb_callback(p C.int, n C.int, cb *C.BN_GENCB) (rc C.int) {
	t, ok := pointer.Restore(C.BN_GENCB_get_arg(cb)).(*progressTracker)
	if !ok || t == nil {
		return 1
	}
	defer func() {
		if err := recover(); err != nil {
			logger().Errorf("bn: prime progress callback panic'd: %v", err)
			t.panicked = err
			rc = 0
		}
	}()
	t.fn(PrimeStage(p), int(n))
	return 1
}

// newGenCB returns a BN_GENCB bound to t and its release function. A nil
// tracker needs no callback. It must run on a locked thread.
func newGenCB(t *progressTracker) (*C.BN_GENCB, func(), bool) {
	if t == nil {
		return nil, func() {}, true
	}
	if injectFault(siteCallback) {
		return nil, nil, false
	}
	arg := pointer.Save(t)
	cb := C.X_BN_GENCB_new_go(arg)
	if cb == nil {
		pointer.Unref(arg)
		return nil, nil, false
	}
	owned.acquire(unsafe.Pointer(cb), siteCallback)
	return cb, func() {
		owned.release(unsafe.Pointer(cb))
		C.BN_GENCB_free(cb)
		pointer.Unref(arg)
	}, true
}

func optional(b *BigNum) *C.BIGNUM {
	if b == nil {
		return nil
	}
	return b.raw()
}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// GeneratePrime returns a prime of exactly bits bits. With safe set, (p-1)/2
// is prime too. add and rem may be nil: with both, p ≡ rem (mod add); with
// only add, p ≡ 1 (mod add) (3 for safe primes); rem alone is ignored.
func GeneratePrime(bits int, safe bool, add, rem *BigNum) (*BigNum, error) {
	return GeneratePrimeWithProgress(bits, safe, add, rem, nil)
}

// GeneratePrimeWithProgress is GeneratePrime reporting progress to fn. A
// panic in fn aborts the search and is returned as an error.
func GeneratePrimeWithProgress(bits int, safe bool, add, rem *BigNum, fn PrimeProgress) (*BigNum, error) {
	cbits, err := cint("BN_generate_prime_ex2", bits, ReasonInvalidLength)
	if err != nil {
		return nil, err
	}
	var tracker *progressTracker
	if fn != nil {
		tracker = &progressTracker{fn: fn}
	}
	p, err := freshInCtx("BN_generate_prime_ex2", keep(add, rem), func(r *C.BIGNUM, ctx *C.BN_CTX) bool {
		cb, release, ok := newGenCB(tracker)
		if !ok {
			return false
		}
		defer release()
		return C.BN_generate_prime_ex2(
			r, cbits, cbool(safe), optional(add), optional(rem), cb, ctx,
		) == 1
	})
	if err != nil && tracker != nil && tracker.panicked != nil {
		return nil, fmt.Errorf("bn: prime progress callback panicked: %v: %w", tracker.panicked, err)
	}
	return p, err
}

// IsPrime runs checks Miller-Rabin rounds after trial division by small
// primes.
func (b *BigNum) IsPrime(checks int) (bool, error) {
	return b.primality("BN_is_prime_ex", checks, func(checks C.int, ctx *C.BN_CTX) C.int {
		return C.BN_is_prime_ex(b.raw(), checks, ctx, nil)
	})
}

// IsPrimeFast is IsPrime with explicit control over trial division.
func (b *BigNum) IsPrimeFast(checks int, trialDivision bool) (bool, error) {
	return b.primality("BN_is_prime_fasttest_ex", checks, func(checks C.int, ctx *C.BN_CTX) C.int {
		return C.BN_is_prime_fasttest_ex(b.raw(), checks, ctx, cbool(trialDivision), nil)
	})
}

func (b *BigNum) primality(op string, checks int, test func(checks C.int, ctx *C.BN_CTX) C.int) (bool, error) {
	defer runtime.KeepAlive(b)

	cchecks, err := cint(op, checks, ReasonInvalidLength)
	if err != nil {
		return false, err
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ensureErrorQueueIsClear()

	prime := false
	err = withScratch(op, func(ctx *C.BN_CTX) error {
		rc := test(cchecks, ctx)
		if rc < 0 {
			return errorFromErrorQueue(op)
		}
		prime = rc == 1
		return nil
	})
	return prime, err
}
