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
)

// The Must* forms, Neg, Clone, Zero and One never return an error: any
// failure underneath is logged and turned into a panic. They are for code
// where failure cannot happen short of memory exhaustion. Anything that has
// to degrade gracefully must use the error-returning forms.

func abort(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger().Panic(msg)
	// a FieldLogger that is not logrus may not panic
	panic(msg)
}

func must(r *BigNum, err error) *BigNum {
	if err != nil {
		abort("bn: unexpected failure: %v", err)
	}
	return r
}

// MustAdd returns a + b.
func (a *BigNum) MustAdd(b *BigNum) *BigNum { return must(a.Add(b)) }

// MustSub returns a - b.
func (a *BigNum) MustSub(b *BigNum) *BigNum { return must(a.Sub(b)) }

// MustMul returns a * b.
func (a *BigNum) MustMul(b *BigNum) *BigNum { return must(a.Mul(b)) }

// MustDiv returns a / b. A zero divisor panics.
func (a *BigNum) MustDiv(b *BigNum) *BigNum { return must(a.Div(b)) }

// MustMod returns the remainder of a / b. A zero divisor panics.
func (a *BigNum) MustMod(b *BigNum) *BigNum { return must(a.Mod(b)) }

// MustShl returns a * 2^k.
func (a *BigNum) MustShl(k int) *BigNum { return must(a.Shl(k)) }

// MustShr returns a / 2^k.
func (a *BigNum) MustShr(k int) *BigNum { return must(a.Shr(k)) }

// Clone returns an independent copy of a.
func (a *BigNum) Clone() *BigNum {
	defer runtime.KeepAlive(a)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ensureErrorQueueIsClear()

	var raw *C.BIGNUM
	if !injectFault(siteBigNum) {
		raw = C.BN_dup(a.raw())
	}
	if raw == nil {
		abort("bn: unexpected NULL from BN_dup: %v", errorFromErrorQueue("BN_dup"))
	}
	return wrapBigNum(raw)
}

// Neg returns -a as a new value.
func (a *BigNum) Neg() *BigNum {
	n := a.Clone()
	n.Negate()
	return n
}

// Zero returns a new BigNum valued 0.
func Zero() *BigNum { return must(NewFromUint64(0)) }

// One returns a new BigNum valued 1.
func One() *BigNum { return must(NewFromUint64(1)) }
